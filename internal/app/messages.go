package app

import (
	"time"

	"ble-autolock.klederson.com/internal/monitor"
)

// TickMsg triggers a frame update for countdowns and uptime.
type TickMsg time.Time

// RecordMsg carries one sample from the monitor loop.
type RecordMsg struct {
	Record monitor.Record
}

// MonitorDoneMsg reports that the monitor loop returned.
type MonitorDoneMsg struct {
	Err error
}
