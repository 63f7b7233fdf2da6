package monitor

import (
	"time"

	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/proximity"
)

// Session identifies one monitoring run.
type Session struct {
	ID      string
	Config  config.Config
	Started time.Time
}

// Record is everything known about one sample. Sinks receive it whole.
type Record struct {
	SessionID      string
	Seq            int
	At             time.Time
	Uptime         time.Duration
	Classification proximity.Classification
	Decision       proximity.Decision
	AutoLock       bool
}

// Sink receives the sample stream of a session.
type Sink interface {
	Begin(s Session) error
	Record(r Record) error
	End(s Session, final proximity.State) error
}

// Status is a point-in-time view of a running monitor, safe to hand to
// other goroutines.
type Status struct {
	SessionID   string        `json:"session_id"`
	DeviceID    string        `json:"device_id"`
	DeviceName  string        `json:"device_name"`
	Started     time.Time     `json:"started"`
	Samples     int           `json:"samples"`
	Streak      int           `json:"streak"`
	Required    int           `json:"required"`
	Triggers    int           `json:"triggers"`
	LastTrigger time.Time     `json:"last_trigger"`
	LastRSSI    int           `json:"last_rssi"`
	LastFound   bool          `json:"last_found"`
	LastBucket  string        `json:"last_bucket"`
	Remaining   time.Duration `json:"remaining"`
	AutoLock    bool          `json:"auto_lock"`

	// SourceHealth is the adapter breaker state, empty for sources that
	// do not track it.
	SourceHealth string `json:"source_health,omitempty"`
}
