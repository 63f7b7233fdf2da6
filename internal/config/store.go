// Package config holds tunables, XDG paths and the persisted device config.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

var (
	// ErrNotConfigured is returned when no device has been paired yet.
	ErrNotConfigured = errors.New("no device configured, run `ble-autolock pair` or `ble-autolock setup`")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid config")
)

// Config is the persisted monitoring setup for one device.
// A monitor takes a copy at start and never sees later edits.
type Config struct {
	DeviceID            string
	DeviceName          string
	ThresholdDBm        int
	ScanIntervalSeconds float64
	LockDelaySeconds    float64
	AutoLockEnabled     bool
}

// Default returns a config with the stock timings and no device.
func Default() Config {
	return Config{
		ThresholdDBm:        DefaultThresholdDBm,
		ScanIntervalSeconds: DefaultScanIntervalSec,
		LockDelaySeconds:    DefaultLockDelaySec,
		AutoLockEnabled:     true,
	}
}

// ScanInterval returns the sampling cadence.
func (c Config) ScanInterval() time.Duration {
	return secondsToDuration(c.ScanIntervalSeconds)
}

// LockDelay returns the sustained-absence duration before a lock.
func (c Config) LockDelay() time.Duration {
	return secondsToDuration(c.LockDelaySeconds)
}

// Validate checks the fields a monitor needs before it may start.
func (c Config) Validate() error {
	if c.DeviceID == "" {
		return ErrNotConfigured
	}
	if !ValidDeviceID(c.DeviceID) {
		return fmt.Errorf("%w: device id %q is neither a MAC address nor a UUID", ErrInvalid, c.DeviceID)
	}
	if !representable(c.ScanIntervalSeconds) {
		return fmt.Errorf("%w: scan interval out of range, got %v", ErrInvalid, c.ScanIntervalSeconds)
	}
	if c.ScanIntervalSeconds <= 0 || c.ScanInterval() <= 0 {
		return fmt.Errorf("%w: scan interval must be positive, got %v", ErrInvalid, c.ScanIntervalSeconds)
	}
	if !representable(c.LockDelaySeconds) {
		return fmt.Errorf("%w: lock delay out of range, got %v", ErrInvalid, c.LockDelaySeconds)
	}
	if c.LockDelaySeconds < 0 {
		return fmt.Errorf("%w: lock delay must not be negative, got %v", ErrInvalid, c.LockDelaySeconds)
	}
	return nil
}

// representable reports whether s seconds converts to a time.Duration
// without overflowing.
func representable(s float64) bool {
	if math.IsNaN(s) || math.IsInf(s, 0) {
		return false
	}
	return s*float64(time.Second) < float64(math.MaxInt64)
}

// ValidDeviceID accepts BlueZ style MAC addresses and the UUIDs CoreBluetooth
// hands out on macOS.
func ValidDeviceID(id string) bool {
	if IsValidMAC(id) {
		return true
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidMAC reports whether mac looks like AA:BB:CC:DD:EE:FF.
func IsValidMAC(mac string) bool {
	if len(mac) != 17 {
		return false
	}
	for i, c := range mac {
		if (i+1)%3 == 0 {
			if c != ':' {
				return false
			}
		} else {
			if !((c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')) {
				return false
			}
		}
	}
	return true
}

// fileConfig maps the TOML file. Pointers tell a missing key from a zero value.
type fileConfig struct {
	Device struct {
		ID   *string `toml:"device_id"`
		Name *string `toml:"device_name"`
	} `toml:"device"`
	Monitor struct {
		ThresholdDBm        *int     `toml:"threshold_dbm"`
		ScanIntervalSeconds *float64 `toml:"scan_interval_seconds"`
		LockDelaySeconds    *float64 `toml:"lock_delay_seconds"`
		AutoLockEnabled     *bool    `toml:"auto_lock_enabled"`
	} `toml:"monitor"`
}

// Store persists a Config as TOML at a fixed path.
type Store struct {
	path string
}

// NewStore returns a store for path. An empty path means DefaultConfigPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultConfigPath()
	}
	return &Store{path: path}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.path
}

// Load reads the config. A missing file yields ErrNotConfigured; a file
// without a threshold is rejected rather than silently defaulted.
func (s *Store) Load() (Config, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return Config{}, ErrNotConfigured
		}
		return Config{}, fmt.Errorf("stat config: %w", err)
	}

	var fc fileConfig
	if _, err := toml.DecodeFile(s.path, &fc); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg := Default()
	if fc.Device.ID != nil {
		cfg.DeviceID = *fc.Device.ID
	}
	if fc.Device.Name != nil {
		cfg.DeviceName = *fc.Device.Name
	}
	if fc.Monitor.ThresholdDBm == nil {
		return cfg, fmt.Errorf("%w: threshold_dbm is missing in %s", ErrInvalid, s.path)
	}
	cfg.ThresholdDBm = *fc.Monitor.ThresholdDBm
	if fc.Monitor.ScanIntervalSeconds != nil {
		cfg.ScanIntervalSeconds = *fc.Monitor.ScanIntervalSeconds
	}
	if fc.Monitor.LockDelaySeconds != nil {
		cfg.LockDelaySeconds = *fc.Monitor.LockDelaySeconds
	}
	if fc.Monitor.AutoLockEnabled != nil {
		cfg.AutoLockEnabled = *fc.Monitor.AutoLockEnabled
	}
	return cfg, nil
}

// Save writes cfg, replacing the previous file atomically.
func (s *Store) Save(cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	var fc fileConfig
	fc.Device.ID = &cfg.DeviceID
	fc.Device.Name = &cfg.DeviceName
	fc.Monitor.ThresholdDBm = &cfg.ThresholdDBm
	fc.Monitor.ScanIntervalSeconds = &cfg.ScanIntervalSeconds
	fc.Monitor.LockDelaySeconds = &cfg.LockDelaySeconds
	fc.Monitor.AutoLockEnabled = &cfg.AutoLockEnabled

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(fc); err != nil {
		tmp.Close()
		return fmt.Errorf("encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace config: %w", err)
	}
	return nil
}

// SetAutoLock flips the persisted auto-lock flag. Running monitors keep
// their snapshot until restarted.
func (s *Store) SetAutoLock(enabled bool) (Config, error) {
	cfg, err := s.Load()
	if err != nil {
		return Config{}, err
	}
	cfg.AutoLockEnabled = enabled
	if err := s.Save(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
