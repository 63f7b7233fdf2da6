package app

import (
	"fmt"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ble-autolock.klederson.com/internal/config"
	"ble-autolock.klederson.com/internal/monitor"
	"ble-autolock.klederson.com/internal/proximity"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.DeviceID = "AA:BB:CC:DD:EE:FF"
	cfg.DeviceName = "Phone"
	return cfg
}

func rec(seq int, r proximity.Reading, d proximity.Decision) RecordMsg {
	return RecordMsg{Record: monitor.Record{
		Seq:            seq,
		At:             r.At,
		Classification: proximity.Classify(r, -70),
		Decision:       d,
	}}
}

func TestReadingRingWraps(t *testing.T) {
	r := NewReadingRing(3)
	assert.Nil(t, r.Values())
	for i := 1; i <= 5; i++ {
		r.Push(proximity.Observed(-i, time.Time{}))
	}
	require.Equal(t, 3, r.Len())
	vals := r.Values()
	assert.Equal(t, []int{-3, -4, -5}, []int{vals[0].RSSI, vals[1].RSSI, vals[2].RSSI})
}

func TestRecordsUpdateCounters(t *testing.T) {
	var m tea.Model = New(testConfig(), "demo", nil)
	now := time.Now()

	m, _ = m.Update(rec(1, proximity.Observed(-50, now), proximity.Decision{}))
	m, _ = m.Update(rec(2, proximity.Absent(now), proximity.Decision{Streak: 1, Remaining: 6 * time.Second}))
	m, _ = m.Update(rec(3, proximity.Absent(now), proximity.Decision{Triggered: true}))

	got := m.(Model)
	assert.Equal(t, 1, got.triggers)
	assert.Equal(t, 3, got.last.Seq)
	assert.Len(t, got.shared.recent, 3)
	assert.Contains(t, got.shared.recent[2], "MAC LOCKED")
	assert.Equal(t, 3, got.shared.history.Len())
}

func TestPauseFreezesLogOnly(t *testing.T) {
	var m tea.Model = New(testConfig(), "demo", nil)
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("p")})
	m, _ = m.Update(rec(1, proximity.Observed(-50, time.Now()), proximity.Decision{}))

	got := m.(Model)
	assert.True(t, got.paused)
	assert.Empty(t, got.shared.recent)
	assert.Equal(t, 1, got.shared.history.Len())
}

func TestQuitStopsMonitor(t *testing.T) {
	stopped := false
	var m tea.Model = New(testConfig(), "demo", func() { stopped = true })
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.True(t, stopped)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestMonitorDone(t *testing.T) {
	var m tea.Model = New(testConfig(), "ble", nil)
	m, _ = m.Update(MonitorDoneMsg{Err: fmt.Errorf("adapter gone")})
	got := m.(Model)
	assert.False(t, got.running)
	assert.EqualError(t, got.Err(), "adapter gone")
}

func TestViewRenders(t *testing.T) {
	var m tea.Model = New(testConfig(), "demo", nil)
	assert.Contains(t, m.View(), "Initializing")

	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	m, _ = m.Update(rec(1, proximity.Observed(-62, time.Now()), proximity.Decision{}))
	out := m.View()
	assert.Contains(t, out, "TARGET DEVICE")
	assert.Contains(t, out, "SAMPLES [1]")
	assert.Contains(t, out, "-62 dBm")
}
