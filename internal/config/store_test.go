package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreRoundTrip(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nested", "config.toml"))

	want := Config{
		DeviceID:            "AA:BB:CC:DD:EE:FF",
		DeviceName:          "iPhone 15 Pro",
		ThresholdDBm:        -67,
		ScanIntervalSeconds: 2.5,
		LockDelaySeconds:    0,
		AutoLockEnabled:     false,
	}
	require.NoError(t, store.Save(want))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestStoreLoadMissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.toml"))

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestStoreLoadMissingThreshold(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[device]\ndevice_id = \"AA:BB:CC:DD:EE:FF\"\n\n[monitor]\nscan_interval_seconds = 3.0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := NewStore(path).Load()
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestStoreLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := "[device]\ndevice_id = \"AA:BB:CC:DD:EE:FF\"\n\n[monitor]\nthreshold_dbm = -60\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := NewStore(path).Load()
	require.NoError(t, err)
	assert.Equal(t, -60, cfg.ThresholdDBm)
	assert.Equal(t, 3*time.Second, cfg.ScanInterval())
	assert.Equal(t, 10*time.Second, cfg.LockDelay())
	assert.True(t, cfg.AutoLockEnabled)
}

func TestSetAutoLock(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "config.toml"))
	cfg := Default()
	cfg.DeviceID = "AA:BB:CC:DD:EE:FF"
	require.NoError(t, store.Save(cfg))

	_, err := store.SetAutoLock(false)
	require.NoError(t, err)

	got, err := store.Load()
	require.NoError(t, err)
	assert.False(t, got.AutoLockEnabled)
	assert.Equal(t, cfg.ThresholdDBm, got.ThresholdDBm)
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.DeviceID = "AA:BB:CC:DD:EE:FF"

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"ok", func(c *Config) {}, nil},
		{"uuid device id", func(c *Config) { c.DeviceID = "6F1C2A52-4B3E-4E1A-9C51-0C8D2E7B9A10" }, nil},
		{"zero delay", func(c *Config) { c.LockDelaySeconds = 0 }, nil},
		{"no device", func(c *Config) { c.DeviceID = "" }, ErrNotConfigured},
		{"bad device", func(c *Config) { c.DeviceID = "my phone" }, ErrInvalid},
		{"zero interval", func(c *Config) { c.ScanIntervalSeconds = 0 }, ErrInvalid},
		{"negative interval", func(c *Config) { c.ScanIntervalSeconds = -1 }, ErrInvalid},
		{"negative delay", func(c *Config) { c.LockDelaySeconds = -5 }, ErrInvalid},
		{"largest representable delay", func(c *Config) { c.LockDelaySeconds = 9e9 }, nil},
		{"overflowing delay", func(c *Config) { c.LockDelaySeconds = 1e10 }, ErrInvalid},
		{"NaN delay", func(c *Config) { c.LockDelaySeconds = math.NaN() }, ErrInvalid},
		{"infinite delay", func(c *Config) { c.LockDelaySeconds = math.Inf(1) }, ErrInvalid},
		{"overflowing interval", func(c *Config) { c.ScanIntervalSeconds = 1e10 }, ErrInvalid},
		{"NaN interval", func(c *Config) { c.ScanIntervalSeconds = math.NaN() }, ErrInvalid},
		{"infinite interval", func(c *Config) { c.ScanIntervalSeconds = math.Inf(1) }, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestIsValidMAC(t *testing.T) {
	assert.True(t, IsValidMAC("aa:bb:cc:dd:ee:ff"))
	assert.False(t, IsValidMAC("AA-BB-CC-DD-EE-FF"))
	assert.False(t, IsValidMAC("AA:BB:CC:DD:EE"))
	assert.False(t, IsValidMAC("GG:BB:CC:DD:EE:FF"))
}

func TestParseLogLevel(t *testing.T) {
	for _, s := range []string{"", "info", "debug", "WARN", "warning", "error"} {
		_, err := ParseLogLevel(s)
		assert.NoError(t, err, s)
	}
	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}
