// Package monitor drives the sampling cadence: scan, classify, observe,
// record, and lock when the engine says so.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"ble-autolock.klederson.com/internal/bluetooth"
	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/lock"
	"ble-autolock.klederson.com/internal/proximity"
)

const defaultLockTimeout = 10 * time.Second

// Options configures a Monitor. Config, Source and Locker are required.
type Options struct {
	Config config.Config
	Source bluetooth.Source
	Locker lock.Locker
	Sinks  []Sink

	// ScanWindow caps a single scan; it is further capped by the interval.
	ScanWindow time.Duration
	// LockTimeout bounds one lock attempt.
	LockTimeout time.Duration
	// OnRecord is called from the loop goroutine after every sample. Optional.
	OnRecord func(Record)

	// Logger for structured logging. Uses slog.Default() if nil.
	Logger *slog.Logger
	Now    func() time.Time
}

// Monitor runs the sampling loop for one device. The engine state is owned
// by the goroutine inside Run; other goroutines only see Status copies.
type Monitor struct {
	opts   Options
	logger *slog.Logger
	now    func() time.Time

	// sinks holds the sinks that began the current session. Only the Run
	// goroutine touches it.
	sinks []Sink

	mu     sync.Mutex
	status Status
}

// New validates opts and returns a Monitor ready to Run.
func New(opts Options) (*Monitor, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("monitor: no signal source")
	}
	if opts.Locker == nil {
		return nil, fmt.Errorf("monitor: no lock action")
	}
	if opts.ScanWindow <= 0 {
		opts.ScanWindow = config.ScanWindow
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	m := &Monitor{
		opts:   opts,
		logger: opts.Logger,
		now:    opts.Now,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m, nil
}

// Status returns the latest snapshot.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Run samples until ctx is cancelled. Cancellation is honored between ticks
// and while idle; a scan already in flight finishes or times out on its own
// so the last record is always complete. Run returns nil on cancellation.
func (m *Monitor) Run(ctx context.Context) error {
	cfg := m.opts.Config
	start := m.now()
	engine := proximity.NewEngine(cfg, start)
	session := Session{ID: uuid.NewString(), Config: cfg, Started: start}

	// A sink that cannot begin is dropped for this session; monitoring
	// never depends on a sink being writable.
	m.sinks = m.sinks[:0]
	for _, s := range m.opts.Sinks {
		if err := s.Begin(session); err != nil {
			m.logger.Warn("sample sink unavailable, continuing without it", "error", err)
			continue
		}
		m.sinks = append(m.sinks, s)
	}

	m.mu.Lock()
	m.status = Status{
		SessionID:  session.ID,
		DeviceID:   cfg.DeviceID,
		DeviceName: cfg.DeviceName,
		Started:    start,
		Required:   engine.Required(),
		AutoLock:   cfg.AutoLockEnabled,
	}
	m.mu.Unlock()

	interval := cfg.ScanInterval()
	m.logger.Info("monitor started",
		"session", session.ID,
		"device", cfg.DeviceID,
		"threshold_dbm", cfg.ThresholdDBm,
		"interval", interval,
		"lock_delay", cfg.LockDelay(),
		"required_samples", engine.Required(),
		"auto_lock", cfg.AutoLockEnabled,
	)

	var locks sync.WaitGroup
	next := start
	for seq := 1; ctx.Err() == nil; seq++ {
		m.tick(ctx, engine, session.ID, seq, start, &locks)

		next = next.Add(interval)
		wait := next.Sub(m.now())
		if wait < 0 {
			// Scan overran the interval; restart the cadence from now.
			next = m.now()
			wait = 0
		}
		select {
		case <-ctx.Done():
		case <-time.After(wait):
		}
	}

	locks.Wait()
	final := engine.State()
	for _, s := range m.sinks {
		if err := s.End(session, final); err != nil {
			m.logger.Warn("close sample sink", "error", err)
		}
	}
	m.logger.Info("monitor stopped",
		"session", session.ID,
		"samples", final.TotalSamples,
		"triggers", final.Triggers,
	)
	return nil
}

func (m *Monitor) tick(ctx context.Context, engine *proximity.Engine, sessionID string, seq int, start time.Time, locks *sync.WaitGroup) {
	cfg := m.opts.Config

	timeout := m.opts.ScanWindow
	if iv := cfg.ScanInterval(); iv < timeout {
		timeout = iv
	}

	rssi, found, err := m.scan(ctx, timeout)
	at := m.now()
	reading := proximity.Absent(at)
	switch {
	case err != nil:
		m.logger.Debug("scan failed, counting as absent", "seq", seq, "error", err)
	case found:
		reading = proximity.Observed(rssi, at)
	}

	c := proximity.Classify(reading, cfg.ThresholdDBm)
	d := engine.Observe(c, at)
	rec := Record{
		SessionID:      sessionID,
		Seq:            seq,
		At:             at,
		Uptime:         at.Sub(start),
		Classification: c,
		Decision:       d,
		AutoLock:       cfg.AutoLockEnabled,
	}

	for _, s := range m.sinks {
		if err := s.Record(rec); err != nil {
			m.logger.Warn("record sample", "seq", seq, "error", err)
		}
	}

	if d.Triggered {
		m.logger.Info("device out of range, locking host", "seq", seq, "bucket", c.Bucket.String())
		m.fireLock(ctx, locks)
	}

	st := engine.State()
	m.mu.Lock()
	m.status.Samples = st.TotalSamples
	m.status.Streak = st.ConsecutiveWeak
	m.status.Triggers = st.Triggers
	m.status.LastTrigger = st.LastTrigger
	m.status.LastRSSI = reading.RSSI
	m.status.LastFound = reading.Present
	m.status.LastBucket = c.Bucket.String()
	m.status.Remaining = d.Remaining
	if h, ok := m.opts.Source.(bluetooth.HealthReporter); ok {
		m.status.SourceHealth = h.Health()
	}
	m.mu.Unlock()

	if m.opts.OnRecord != nil {
		m.opts.OnRecord(rec)
	}
}

// scan detaches from ctx so cancellation never cuts a scan short; the
// timeout alone bounds it. Source panics degrade to an absent sample.
func (m *Monitor) scan(ctx context.Context, timeout time.Duration) (rssi int, found bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			rssi, found, err = 0, false, fmt.Errorf("scan panicked: %v", r)
		}
	}()
	scanCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return m.opts.Source.Scan(scanCtx, m.opts.Config.DeviceID, timeout)
}

// fireLock runs the lock action without blocking the loop. Its outcome is
// logged only.
func (m *Monitor) fireLock(ctx context.Context, locks *sync.WaitGroup) {
	locks.Add(1)
	go func() {
		defer locks.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("lock action panicked", "panic", r)
			}
		}()

		lockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.opts.LockTimeout)
		defer cancel()
		if err := m.opts.Locker.Lock(lockCtx); err != nil {
			m.logger.Warn("lock attempted but failed", "error", err)
			return
		}
		m.logger.Info("host lock requested")
	}()
}
