package bluetooth

import (
	"context"
	"math"
	"time"
)

// Source performs a single bounded scan for one device. A device that does
// not answer within timeout is reported as found=false with a nil error;
// err is reserved for adapter faults, which callers treat the same way.
type Source interface {
	Scan(ctx context.Context, address string, timeout time.Duration) (rssi int, found bool, err error)
}

// HealthReporter is implemented by sources that track adapter health.
type HealthReporter interface {
	Health() string
}

// Candidate is a device seen during pairing discovery.
type Candidate struct {
	MAC          string
	Name         string
	Manufacturer string
	RSSI         float64
	LastSeen     time.Time
	Distance     float64 // Estimated distance in meters
}

// DisplayName returns the device name or "[unnamed]" if empty.
func (c *Candidate) DisplayName() string {
	if c.Name == "" {
		return "[unnamed]"
	}
	return c.Name
}

// RSSIToDistance estimates distance from RSSI using the log-distance path loss model.
// Formula: d = 10^((measuredPower - rssi) / (10 * n))
func RSSIToDistance(rssi, measuredPower, pathLossExp float64) float64 {
	if rssi >= 0 {
		return 0.1
	}
	d := math.Pow(10, (measuredPower-rssi)/(10*pathLossExp))
	if d < 0.1 {
		return 0.1
	}
	return d
}
