package proximity

import (
	"math"
	"time"

	"ble-autolock.klederson.com/internal/config"
)

// State is the engine's per-session bookkeeping. It lives only as long as one
// monitoring run; every run starts with the device assumed present.
type State struct {
	ConsecutiveWeak int
	LastTrigger     time.Time // zero until the first trigger
	TotalSamples    int
	Triggers        int
	SessionStart    time.Time
}

// Decision is what Observe concluded about one sample.
type Decision struct {
	Triggered bool
	// Streak is the weak streak after this sample (zero right after a trigger).
	Streak int
	// Remaining is the hold-off left before a trigger, zero when the streak
	// is empty, a trigger fired, or auto-lock is off.
	Remaining time.Duration
}

// Engine is the debounced lock trigger for a single device.
//
// The lock delay is enforced as a sample count: a streak of
// ceil(delay/interval) consecutive below-threshold samples fires. Scan
// latency is bounded by the interval, so streak*interval approximates the
// wall-clock weak duration without depending on clock readings.
type Engine struct {
	cfg      config.Config
	interval time.Duration
	required int
	state    State
}

// NewEngine snapshots cfg for the whole session.
func NewEngine(cfg config.Config, start time.Time) *Engine {
	interval := cfg.ScanInterval()
	return &Engine{
		cfg:      cfg,
		interval: interval,
		required: RequiredSamples(cfg.LockDelay(), interval),
		state:    State{SessionStart: start},
	}
}

// RequiredSamples converts a lock delay to the streak length that fires a
// trigger. At least one weak sample is always needed.
func RequiredSamples(delay, interval time.Duration) int {
	if interval <= 0 {
		return 1
	}
	n := int(delay / interval)
	if delay%interval != 0 {
		n++
	}
	if n < 1 {
		n = 1
	}
	return n
}

// Required returns the streak length that fires a trigger.
func (e *Engine) Required() int {
	return e.required
}

// Config returns the snapshot the engine runs with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// State returns a copy of the current bookkeeping.
func (e *Engine) State() State {
	return e.state
}

// Observe folds one classified sample into the streak.
func (e *Engine) Observe(c Classification, now time.Time) Decision {
	e.state.TotalSamples++

	if !c.Below {
		e.state.ConsecutiveWeak = 0
		return Decision{}
	}

	e.state.ConsecutiveWeak++
	if !e.cfg.AutoLockEnabled {
		return Decision{Streak: e.state.ConsecutiveWeak}
	}

	if e.state.ConsecutiveWeak >= e.required {
		e.state.ConsecutiveWeak = 0
		e.state.LastTrigger = now
		e.state.Triggers++
		return Decision{Triggered: true}
	}

	return Decision{
		Streak:    e.state.ConsecutiveWeak,
		Remaining: remaining(e.required-e.state.ConsecutiveWeak, e.interval),
	}
}

// remaining saturates instead of overflowing for delays near the
// time.Duration limit.
func remaining(steps int, interval time.Duration) time.Duration {
	if interval > 0 && int64(steps) > math.MaxInt64/int64(interval) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(steps) * interval
}
