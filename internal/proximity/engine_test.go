package proximity

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-autolock.klederson.com/internal/config"
)

func testConfig(threshold int, interval, delay float64, enabled bool) config.Config {
	return config.Config{
		DeviceID:            "AA:BB:CC:DD:EE:FF",
		ThresholdDBm:        threshold,
		ScanIntervalSeconds: interval,
		LockDelaySeconds:    delay,
		AutoLockEnabled:     enabled,
	}
}

// feed runs readings through a fresh engine and returns the 1-based sample
// numbers that triggered.
func feed(e *Engine, readings []Reading) []int {
	var fired []int
	cfg := e.Config()
	for i, r := range readings {
		d := e.Observe(Classify(r, cfg.ThresholdDBm), r.At)
		if d.Triggered {
			fired = append(fired, i+1)
		}
	}
	return fired
}

func TestEngineScenarioA(t *testing.T) {
	start := time.Now()
	e := NewEngine(testConfig(-60, 3, 9, true), start)

	var readings []Reading
	for i, rssi := range []int{-50, -50, -65, -68, -70, -72} {
		readings = append(readings, Observed(rssi, start.Add(time.Duration(i)*3*time.Second)))
	}

	assert.Equal(t, []int{5}, feed(e, readings))

	st := e.State()
	assert.Equal(t, 1, st.ConsecutiveWeak, "-72 after the trigger starts a new streak")
	assert.Equal(t, 6, st.TotalSamples)
	assert.Equal(t, 1, st.Triggers)
	assert.Equal(t, readings[4].At, st.LastTrigger)
}

func TestEngineFirstTriggerAtCeilDelayOverInterval(t *testing.T) {
	tests := []struct {
		interval, delay float64
		want            int
	}{
		{3, 9, 3},
		{3, 10, 4},
		{5, 10, 2},
		{3, 1, 1},
		{3, 0, 1},
		{0.5, 2.2, 5},
		{1, 30, 30},
	}
	for _, tt := range tests {
		e := NewEngine(testConfig(-70, tt.interval, tt.delay, true), time.Time{})
		require.Equal(t, tt.want, e.Required(), "interval %v delay %v", tt.interval, tt.delay)

		for i := 1; i <= tt.want; i++ {
			d := e.Observe(Classify(Absent(time.Time{}), -70), time.Time{})
			if i < tt.want {
				assert.False(t, d.Triggered, "sample %d of %d", i, tt.want)
				assert.Equal(t, i, d.Streak)
				continue
			}
			assert.True(t, d.Triggered, "sample %d", i)
			assert.Equal(t, 0, e.State().ConsecutiveWeak, "streak resets right after the trigger")
		}
	}
}

func TestEngineKeepsTriggeringOnLongAbsence(t *testing.T) {
	e := NewEngine(testConfig(-70, 3, 9, true), time.Time{})

	readings := make([]Reading, 9)
	for i := range readings {
		readings[i] = Absent(time.Time{})
	}
	assert.Equal(t, []int{3, 6, 9}, feed(e, readings))
}

func TestEngineAutoLockDisabledNeverTriggers(t *testing.T) {
	e := NewEngine(testConfig(-70, 1, 3, false), time.Time{})

	for i := 1; i <= 500; i++ {
		d := e.Observe(Classify(Absent(time.Time{}), -70), time.Time{})
		require.False(t, d.Triggered)
		assert.Zero(t, d.Remaining)
	}
	assert.Equal(t, 500, e.State().ConsecutiveWeak)
	assert.True(t, e.State().LastTrigger.IsZero())
}

func TestEngineStrongSampleResetsStreak(t *testing.T) {
	e := NewEngine(testConfig(-70, 3, 12, true), time.Time{})
	weak := Observed(-90, time.Time{})
	strong := Observed(-70, time.Time{}) // at threshold counts as present

	fired := feed(e, []Reading{weak, weak, weak, strong})
	assert.Empty(t, fired)
	assert.Equal(t, 0, e.State().ConsecutiveWeak)

	fired = feed(e, []Reading{weak, weak, weak, weak})
	assert.Equal(t, []int{4}, fired)
}

func TestEngineRemainingCountsDown(t *testing.T) {
	e := NewEngine(testConfig(-70, 3, 9, true), time.Time{})
	absent := Classify(Absent(time.Time{}), -70)

	assert.Equal(t, 6*time.Second, e.Observe(absent, time.Time{}).Remaining)
	assert.Equal(t, 3*time.Second, e.Observe(absent, time.Time{}).Remaining)
	d := e.Observe(absent, time.Time{})
	assert.True(t, d.Triggered)
	assert.Zero(t, d.Remaining)
}

func TestRequiredSamplesDegenerateInterval(t *testing.T) {
	assert.Equal(t, 1, RequiredSamples(10*time.Second, 0))
}

func TestRequiredSamplesNearDurationLimit(t *testing.T) {
	delay := time.Duration(math.MaxInt64)
	n := RequiredSamples(delay, 3*time.Second)
	assert.Equal(t, int(delay/(3*time.Second))+1, n)
	assert.Greater(t, n, 1)
}

func TestEngineHugeDelayDoesNotFireEarly(t *testing.T) {
	cfg := testConfig(-70, 3, 9e9, true)
	require.NoError(t, cfg.Validate())

	e := NewEngine(cfg, time.Time{})
	assert.Equal(t, 3_000_000_000, e.Required())

	absent := Classify(Absent(time.Time{}), -70)
	for i := 0; i < 5; i++ {
		d := e.Observe(absent, time.Time{})
		assert.False(t, d.Triggered, "sample %d", i+1)
		assert.Positive(t, d.Remaining)
	}
}

func TestEngineAbsentAndVeryWeakStreamsDecideAlike(t *testing.T) {
	start := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	cfg := testConfig(-60, 3, 9, true)
	absentEngine := NewEngine(cfg, start)
	weakEngine := NewEngine(cfg, start)

	for i := 0; i < 10; i++ {
		at := start.Add(time.Duration(i) * 3 * time.Second)
		got := absentEngine.Observe(Classify(Absent(at), cfg.ThresholdDBm), at)
		want := weakEngine.Observe(Classify(Observed(-200, at), cfg.ThresholdDBm), at)
		assert.Equal(t, want, got, "sample %d", i+1)
	}
	assert.Equal(t, weakEngine.State(), absentEngine.State())
}
