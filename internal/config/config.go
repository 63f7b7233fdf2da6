package config

import "time"

const (
	// RSSI to distance estimation (dashboard only; lock decisions use the buckets)
	MeasuredPower = -59.0 // RSSI at 1 meter (dBm)
	PathLossExp   = 2.5   // Path loss exponent (N)

	// Device config defaults
	DefaultThresholdDBm    = -70
	DefaultScanIntervalSec = 3.0
	DefaultLockDelaySec    = 10.0
	MinThresholdDBm        = -100
	MaxThresholdDBm        = -30

	// Scanner
	ScanWindow      = 2 * time.Second  // Upper bound for one target scan
	DiscoveryWindow = 10 * time.Second // Pairing discovery duration
	SmoothingAlpha  = 0.3              // EMA smoothing factor for discovery candidates

	// Monitor
	StatusTail   = 20 // Log lines shown by `status`
	HistoryRings = 60 // Samples kept for the dashboard sparkline
	RecentLines  = 8  // Records kept in the dashboard log panel

	// Dashboard
	TargetFPS = 10

	// Demo mode
	DemoWalkPeriod = 90 * time.Second // One full "leave the desk and come back" cycle

	// App
	AppName    = "BLE-AUTOLOCK"
	AppSlug    = "ble-autolock"
	AppVersion = "1.0"
)
