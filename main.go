package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
	flagDemo     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "ble-autolock",
		Short: "BLE Auto-Lock - lock this computer when your phone walks away",
		Long: `BLE Auto-Lock watches the Bluetooth Low Energy signal of a paired phone and
locks the session once the phone has stayed weak or out of range for longer
than the configured lock delay.

Pair a phone with "ble-autolock pair" (or "ble-autolock setup --device ..."),
then run "ble-autolock start" or the live dashboard "ble-autolock watch".

Real Bluetooth scanning may need sudo or the CAP_NET_ADMIN capability.
Use --demo for a simulated phone and a lock action that only logs.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Config file (default $XDG_CONFIG_HOME/ble-autolock/config.toml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().BoolVar(&flagDemo, "demo", false, "Simulate a phone walking away and back; never really locks")

	rootCmd.AddCommand(
		newStartCmd(),
		newWatchCmd(),
		newStopCmd(),
		newStatusCmd(),
		newLogsCmd(),
		newAutoLockCmd(true),
		newAutoLockCmd(false),
		newClearLogCmd(),
		newSetupCmd(),
		newPairCmd(),
		newHistoryCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
