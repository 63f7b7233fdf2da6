package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"ble-autolock.klederson.com/internal/bluetooth"
	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/control"
	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"
	"ble-autolock.klederson.com/internal/samplelog"
)

func newStatusCmd() *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the config, the running monitor and recent samples",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store := configStore()
			cfg, err := store.Load()
			switch {
			case errors.Is(err, config.ErrNotConfigured):
				fmt.Println("No device configured. Run `ble-autolock pair` or `ble-autolock setup`.")
			case err != nil:
				fmt.Printf("Config unreadable (%v). Re-create it with `ble-autolock setup`.\n", err)
			default:
				printConfig(store.Path(), cfg)
			}

			fmt.Println()
			resp, err := control.Call(config.SocketPath(), control.Request{Command: control.CmdStatus})
			if err != nil || resp.Status == nil {
				fmt.Println("Monitor: not running")
			} else {
				printLive(resp.PID, *resp.Status)
			}

			fmt.Println()
			return printTail(lines)
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", config.StatusTail, "Number of log lines to show")
	return cmd
}

func printConfig(path string, cfg config.Config) {
	name := cfg.DeviceName
	if name == "" {
		name = "[unnamed]"
	}
	autoLock := "ENABLED"
	if !cfg.AutoLockEnabled {
		autoLock = "DISABLED"
	}
	fmt.Printf("Config:          %s\n", path)
	fmt.Printf("Device:          %s (%s)\n", name, cfg.DeviceID)
	fmt.Printf("RSSI Threshold:  %d dBm\n", cfg.ThresholdDBm)
	fmt.Printf("Scan Interval:   %ss\n", formatFloat(cfg.ScanIntervalSeconds))
	fmt.Printf("Lock Delay:      %ss (%d samples)\n", formatFloat(cfg.LockDelaySeconds),
		proximity.RequiredSamples(cfg.LockDelay(), cfg.ScanInterval()))
	fmt.Printf("Auto-lock:       %s\n", autoLock)
}

func printLive(pid int, st monitor.Status) {
	fmt.Printf("Monitor:         running (pid %d, session %s)\n", pid, st.SessionID)
	fmt.Printf("Uptime:          %s\n", samplelog.FormatUptime(time.Since(st.Started)))
	fmt.Printf("Samples:         %d\n", st.Samples)
	if st.SourceHealth != "" {
		fmt.Printf("Adapter:         %s\n", st.SourceHealth)
	}
	if st.Samples > 0 {
		signal := "NOT FOUND"
		if st.LastFound {
			signal = fmt.Sprintf("%d dBm", st.LastRSSI)
		}
		fmt.Printf("Last Sample:     %s (%s)\n", signal, st.LastBucket)
	}
	fmt.Printf("Weak Streak:     %d/%d\n", st.Streak, st.Required)
	if st.Remaining > 0 {
		fmt.Printf("Locks In:        %s\n", st.Remaining)
	}
	last := "never"
	if !st.LastTrigger.IsZero() {
		last = st.LastTrigger.Format(time.DateTime)
	}
	fmt.Printf("Locks:           %d (last: %s)\n", st.Triggers, last)
}

func printTail(n int) error {
	lines, err := samplelog.Tail(config.DefaultLogPath(), n)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Println("No log yet.")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Printf("Last %d log lines:\n", len(lines))
	for _, l := range lines {
		fmt.Println(l)
	}
	return nil
}

func newLogsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logs [N]",
		Short: "Print the last N sample log lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n := 50
			if len(args) == 1 {
				v, err := strconv.Atoi(args[0])
				if err != nil || v < 0 {
					return fmt.Errorf("line count must be a non-negative integer, got %q", args[0])
				}
				n = v
			}
			return printTail(n)
		},
	}
}

func newAutoLockCmd(enable bool) *cobra.Command {
	use, short := "disable-autolock", "Keep monitoring but never lock"
	if enable {
		use, short = "enable-autolock", "Lock the host when the device leaves"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := configStore().SetAutoLock(enable)
			if err != nil {
				return err
			}
			state := "enabled"
			if !cfg.AutoLockEnabled {
				state = "disabled"
			}
			fmt.Printf("Auto-lock %s.\n", state)
			if _, err := control.Call(config.SocketPath(), control.Request{Command: control.CmdStatus}); err == nil {
				fmt.Println("A monitor is running; restart it to apply the change.")
			}
			return nil
		},
	}
}

func newClearLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-log",
		Short: "Delete the sample log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultLogPath()
			size := samplelog.Size(path)
			removed, err := samplelog.Clear(path)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Println("Log is already empty.")
				return nil
			}
			fmt.Printf("Cleared %s (%d bytes).\n", path, size)
			return nil
		},
	}
}

func newSetupCmd() *cobra.Command {
	var (
		device, name, source string
		threshold            int
		interval, delay      float64
		calibrate            bool
	)
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Write the device config without the pairing page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(os.Stderr)
			if err != nil {
				return err
			}
			store := configStore()
			cfg, err := store.Load()
			if err != nil {
				cfg = config.Default()
			}

			flags := cmd.Flags()
			if flags.Changed("device") {
				cfg.DeviceID = device
			}
			if flags.Changed("name") {
				cfg.DeviceName = name
			}
			if flags.Changed("threshold") {
				if threshold < config.MinThresholdDBm || threshold > config.MaxThresholdDBm {
					return fmt.Errorf("threshold must be between %d and %d dBm, got %d",
						config.MinThresholdDBm, config.MaxThresholdDBm, threshold)
				}
				cfg.ThresholdDBm = threshold
			}
			if flags.Changed("interval") {
				cfg.ScanIntervalSeconds = interval
			}
			if flags.Changed("delay") {
				cfg.LockDelaySeconds = delay
			}

			if calibrate {
				if cfg.DeviceID == "" {
					return errors.New("--calibrate needs a device; pass --device")
				}
				src, closeSrc, err := openSource(runFlags{source: source, adapter: "hci0"}, demoMock(), logger)
				if err != nil {
					return err
				}
				defer closeSrc()

				fmt.Printf("Measuring %s for up to %s, keep the phone where it normally sits...\n",
					cfg.DeviceID, config.DiscoveryWindow)
				rssi, found, err := src.Scan(cmd.Context(), cfg.DeviceID, config.DiscoveryWindow)
				if err != nil || !found {
					return fmt.Errorf("device %s not seen during calibration: %v", cfg.DeviceID, err)
				}
				cfg.ThresholdDBm = proximity.RecommendThreshold(rssi)
				fmt.Printf("Observed %d dBm, threshold set to %d dBm.\n", rssi, cfg.ThresholdDBm)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := store.Save(cfg); err != nil {
				return err
			}
			fmt.Printf("Saved %s\n\n", store.Path())
			printConfig(store.Path(), cfg)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&device, "device", "", "Device address (AA:BB:CC:DD:EE:FF) or CoreBluetooth UUID")
	f.StringVar(&name, "name", "", "Display name for the device")
	f.IntVar(&threshold, "threshold", config.DefaultThresholdDBm, "RSSI threshold in dBm")
	f.Float64Var(&interval, "interval", config.DefaultScanIntervalSec, "Scan interval in seconds")
	f.Float64Var(&delay, "delay", config.DefaultLockDelaySec, "Seconds below threshold before locking")
	f.BoolVar(&calibrate, "calibrate", false, "Scan the device once and derive the threshold from its signal")
	f.StringVar(&source, "source", "ble", "Signal source for --calibrate: ble or bluez")
	return cmd
}

// demoMock returns a simulated source when --demo is set.
func demoMock() *bluetooth.MockSource {
	if !flagDemo {
		return nil
	}
	return bluetooth.NewMockSource(config.DemoWalkPeriod)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
