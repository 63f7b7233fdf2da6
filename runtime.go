package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"ble-autolock.klederson.com/internal/bluetooth"
	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/history"
	"ble-autolock.klederson.com/internal/lock"
	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"
	"ble-autolock.klederson.com/internal/samplelog"
)

// demoDeviceID is the address used by --demo when nothing is configured.
const demoDeviceID = "DE:AD:BE:EF:00:01"

// runFlags are the flags shared by start and watch.
type runFlags struct {
	source  string
	adapter string
	lockCmd string
	dryRun  bool
}

func newLogger(w io.Writer) (*slog.Logger, error) {
	logger, err := config.NewLogger(w, flagLogLevel)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return logger, nil
}

func configStore() *config.Store {
	path := flagConfig
	if path == "" {
		path = config.DefaultConfigPath()
	}
	return config.NewStore(path)
}

// loadRunConfig loads and validates the config for a monitoring run. In
// demo mode a missing config is replaced by one calibrated to the mock.
func loadRunConfig(store *config.Store, mock *bluetooth.MockSource) (config.Config, error) {
	cfg, err := store.Load()
	switch {
	case errors.Is(err, config.ErrNotConfigured) && mock != nil:
		cfg = config.Default()
		cfg.DeviceID = demoDeviceID
		cfg.DeviceName = "Demo Phone"
		cfg.ThresholdDBm = proximity.RecommendThreshold(mock.Baseline())
		return cfg, nil
	case errors.Is(err, config.ErrNotConfigured):
		return cfg, fmt.Errorf("%w (config: %s)", err, store.Path())
	case err != nil:
		return cfg, fmt.Errorf("%w: fix or re-create %s with `ble-autolock setup`", err, store.Path())
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: fix it with `ble-autolock setup`", err)
	}
	return cfg, nil
}

// openSource builds the signal source. The returned closer is never nil.
func openSource(f runFlags, mock *bluetooth.MockSource, logger *slog.Logger) (bluetooth.Source, func(), error) {
	noop := func() {}
	if mock != nil {
		return mock, noop, nil
	}
	switch f.source {
	case "ble":
		s := bluetooth.NewBLEScanner()
		if err := s.Enable(); err != nil {
			return nil, noop, err
		}
		return bluetooth.NewBreakerSource(s, 0, 0, logger), noop, nil
	case "bluez":
		s, err := bluetooth.NewBlueZSource(f.adapter)
		if err != nil {
			return nil, noop, err
		}
		return bluetooth.NewBreakerSource(s, 0, 0, logger), func() { _ = s.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("unknown --source %q (want ble or bluez)", f.source)
	}
}

func openLocker(f runFlags, logger *slog.Logger) (lock.Locker, error) {
	switch {
	case flagDemo || f.dryRun:
		return lock.DryRun{Logger: logger}, nil
	case f.lockCmd != "":
		return lock.ParseCommand(f.lockCmd)
	default:
		return lock.Default()
	}
}

// openSinks opens the sample log and the history database. History is
// best effort: a broken database never prevents monitoring.
func openSinks(echo io.Writer, logger *slog.Logger) ([]monitor.Sink, func(), error) {
	log, err := samplelog.Open(config.DefaultLogPath(), echo)
	if err != nil {
		return nil, nil, err
	}
	sinks := []monitor.Sink{log}
	closers := []func() error{log.Close}

	if h, err := history.Open(config.DefaultHistoryPath()); err != nil {
		logger.Warn("session history disabled", "error", err)
	} else {
		sinks = append(sinks, h)
		closers = append(closers, h.Close)
	}

	return sinks, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("close sink", "error", err)
			}
		}
	}, nil
}

// monitorRun is everything a start or watch invocation needs.
type monitorRun struct {
	cfg     config.Config
	monitor *monitor.Monitor
	source  string
	logger  *slog.Logger
	closers []func()
}

func (r *monitorRun) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// prepareRun performs every start-time check. Any error here aborts before
// the first sample.
func prepareRun(f runFlags, logOut, echo io.Writer, onRecord func(monitor.Record)) (*monitorRun, error) {
	logger, err := newLogger(logOut)
	if err != nil {
		return nil, err
	}

	var mock *bluetooth.MockSource
	if flagDemo {
		mock = bluetooth.NewMockSource(config.DemoWalkPeriod)
	}

	cfg, err := loadRunConfig(configStore(), mock)
	if err != nil {
		return nil, err
	}

	run := &monitorRun{cfg: cfg, logger: logger, source: f.source}
	if mock != nil {
		run.source = "demo"
	}

	src, closeSrc, err := openSource(f, mock, logger)
	if err != nil {
		return nil, err
	}
	run.closers = append(run.closers, closeSrc)

	locker, err := openLocker(f, logger)
	if err != nil {
		run.Close()
		return nil, err
	}

	sinks, closeSinks, err := openSinks(echo, logger)
	if err != nil {
		run.Close()
		return nil, err
	}
	run.closers = append(run.closers, closeSinks)

	run.monitor, err = monitor.New(monitor.Options{
		Config:   cfg,
		Source:   src,
		Locker:   locker,
		Sinks:    sinks,
		OnRecord: onRecord,
		Logger:   logger,
		Now:      time.Now,
	})
	if err != nil {
		run.Close()
		return nil, err
	}
	return run, nil
}

func addRunFlags(cmd *cobra.Command, f *runFlags) {
	flags := cmd.Flags()
	flags.StringVar(&f.source, "source", "ble", "Signal source: ble (direct scan) or bluez (BlueZ D-Bus RSSI updates; only changed values are reported, so a motionless phone may briefly read as absent)")
	flags.StringVar(&f.adapter, "adapter", "hci0", "Bluetooth adapter for --source bluez")
	flags.StringVar(&f.lockCmd, "lock-cmd", "", "Command that locks the session, overriding the built-in method")
	flags.BoolVar(&f.dryRun, "dry-run", false, "Log lock triggers without locking")
}
