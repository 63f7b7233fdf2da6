package bluetooth

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Default breaker settings for adapter faults.
const (
	defaultBreakerFailures uint32        = 5
	defaultBreakerCooldown time.Duration = 30 * time.Second
)

type scanResult struct {
	rssi  int
	found bool
}

// BreakerSource wraps a Source so a faulting adapter is left alone for a
// cooldown instead of being hit on every tick. Only errors count as
// failures; a device that is simply not found is a healthy scan. While open,
// Scan fails fast with gobreaker.ErrOpenState.
type BreakerSource struct {
	inner   Source
	breaker *gobreaker.CircuitBreaker[scanResult]
}

// NewBreakerSource wraps inner. Zero failures or cooldown select defaults.
func NewBreakerSource(inner Source, failures uint32, cooldown time.Duration, logger *slog.Logger) *BreakerSource {
	if failures == 0 {
		failures = defaultBreakerFailures
	}
	if cooldown == 0 {
		cooldown = defaultBreakerCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker[scanResult](gobreaker.Settings{
		Name:        "bluetooth-adapter",
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("adapter breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerSource{inner: inner, breaker: cb}
}

// Scan implements Source.
func (b *BreakerSource) Scan(ctx context.Context, address string, timeout time.Duration) (int, bool, error) {
	res, err := b.breaker.Execute(func() (scanResult, error) {
		rssi, found, err := b.inner.Scan(ctx, address, timeout)
		return scanResult{rssi: rssi, found: found}, err
	})
	if err != nil {
		return 0, false, err
	}
	return res.rssi, res.found, nil
}

// Health reports the breaker state: "closed", "half-open" or "open".
func (b *BreakerSource) Health() string {
	return b.breaker.State().String()
}
