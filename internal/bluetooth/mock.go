package bluetooth

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Phases of one simulated walk, as fractions of the period.
const (
	mockLeaveAt  = 0.60 // starts walking away
	mockGoneAt   = 0.70 // out of range
	mockReturnAt = 0.90 // walking back
	mockFarRSSI  = -95.0
	mockDropRate = 0.03 // missed advertisements while at the desk
	mockLatency  = 300 * time.Millisecond
)

// MockSource simulates a phone that sits on the desk, leaves the room and
// comes back once per period. It is used by --demo.
type MockSource struct {
	mu        sync.Mutex
	rng       *rand.Rand
	now       func() time.Time
	start     time.Time
	period    time.Duration
	baseRSSI  float64
	amplitude float64
	phase     float64
	latency   time.Duration
}

// NewMockSource creates a simulated device with a random desk-side baseline.
func NewMockSource(period time.Duration) *MockSource {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &MockSource{
		rng:       rng,
		now:       time.Now,
		start:     time.Now(),
		period:    period,
		baseRSSI:  -45 - rng.Float64()*10, // -45 to -55 dBm
		amplitude: 2 + rng.Float64()*4,    // 2-6 dBm fluctuation
		phase:     rng.Float64() * 2 * math.Pi,
		latency:   mockLatency,
	}
}

// Baseline returns the simulated at-the-desk signal, for demo calibration.
func (s *MockSource) Baseline() int {
	return int(math.Round(s.baseRSSI))
}

// Scan returns the simulated reading for the current point of the walk.
// The address is ignored; the demo has exactly one device.
func (s *MockSource) Scan(ctx context.Context, address string, timeout time.Duration) (int, bool, error) {
	wait := s.latency
	if timeout < wait {
		wait = timeout
	}
	select {
	case <-ctx.Done():
		return 0, false, nil
	case <-time.After(wait):
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	rssi, ok := s.sample(s.now().Sub(s.start))
	return rssi, ok, nil
}

func (s *MockSource) sample(elapsed time.Duration) (int, bool) {
	frac := math.Mod(elapsed.Seconds(), s.period.Seconds()) / s.period.Seconds()
	t := elapsed.Seconds()

	// Sinusoidal RSSI fluctuation + noise
	desk := s.baseRSSI + s.amplitude*math.Sin(t*0.5+s.phase) + (s.rng.Float64()-0.5)*4

	switch {
	case frac < mockLeaveAt:
		if s.rng.Float64() < mockDropRate {
			return 0, false
		}
		return int(desk), true
	case frac < mockGoneAt:
		p := (frac - mockLeaveAt) / (mockGoneAt - mockLeaveAt)
		return int(desk + (mockFarRSSI-desk)*p), true
	case frac < mockReturnAt:
		return 0, false
	default:
		p := (frac - mockReturnAt) / (1 - mockReturnAt)
		return int(mockFarRSSI + (desk-mockFarRSSI)*p), true
	}
}
