package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"ble-autolock.klederson.com/internal/proximity"
)

func TestRenderSparkline(t *testing.T) {
	history := []proximity.Reading{
		proximity.Observed(-100, time.Time{}),
		proximity.Observed(-30, time.Time{}),
		proximity.Absent(time.Time{}),
		proximity.Observed(-65, time.Time{}),
	}
	assert.Equal(t, "_^x-", renderSparkline(history, 10))
	assert.Equal(t, "x-", renderSparkline(history, 2))
}

func TestSignalRatioClamps(t *testing.T) {
	assert.Equal(t, 0.0, signalRatio(-120))
	assert.Equal(t, 1.0, signalRatio(-10))
	assert.InDelta(t, 0.5, signalRatio(-65), 1e-9)
}

func TestRenderSignalBarWidth(t *testing.T) {
	bar := renderSignalBar(-55, true, -70, 20)
	assert.Equal(t, 22, lipgloss.Width(bar))

	absent := renderSignalBar(0, false, -30, 20)
	assert.Equal(t, 22, lipgloss.Width(absent))
}

func TestRenderLogPanelKeepsNewest(t *testing.T) {
	var lines []string
	for i := 0; i < 30; i++ {
		lines = append(lines, strings.Repeat("x", i%5)+"line")
	}
	lines[29] = "newest line"

	out := RenderLogPanel(lines, 60, 10)
	assert.Contains(t, out, "newest line")
	assert.Equal(t, 10, lipgloss.Height(out))
}

func TestRenderSignalPanelStates(t *testing.T) {
	v := SignalView{DeviceID: "AA:BB:CC:DD:EE:FF", ThresholdDBm: -70, Required: 4, AutoLock: true}
	out := RenderSignalPanel(v, 60, 20)
	assert.Contains(t, out, "waiting...")
	assert.Contains(t, out, "[unnamed]")

	v.HaveSample = true
	v.Last = proximity.Classify(proximity.Absent(time.Time{}), -70)
	v.Streak = 2
	v.Remaining = 6 * time.Second
	out = RenderSignalPanel(v, 60, 20)
	assert.Contains(t, out, "NOT FOUND")
	assert.Contains(t, out, "6s")

	v.AutoLock = false
	assert.Contains(t, RenderSignalPanel(v, 60, 20), "auto-lock disabled")
}
