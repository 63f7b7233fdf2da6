package config

import (
	"os"
	"path/filepath"
)

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, ".local", "share")
}

// DefaultConfigPath returns the default TOML device config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), AppSlug, "config.toml")
}

// DefaultLogPath returns the default sample log path.
func DefaultLogPath() string {
	return filepath.Join(XDGDataHome(), AppSlug, "monitor.log")
}

// DefaultHistoryPath returns the default SQLite history path.
func DefaultHistoryPath() string {
	return filepath.Join(XDGDataHome(), AppSlug, "history.db")
}

// SocketPath returns the control socket of a running monitor.
func SocketPath() string {
	dir := os.Getenv("XDG_RUNTIME_DIR")
	if dir == "" {
		dir = os.TempDir()
	}
	return filepath.Join(dir, AppSlug+".sock")
}
