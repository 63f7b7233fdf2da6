package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"ble-autolock.klederson.com/internal/proximity"
)

// SignalView is what the signal panel shows about the target device.
type SignalView struct {
	Name         string
	DeviceID     string
	ThresholdDBm int
	Last         proximity.Classification
	HaveSample   bool
	Streak       int
	Required     int
	Remaining    time.Duration
	Triggered    bool
	LastTrigger  time.Time
	AutoLock     bool
	History      []proximity.Reading
}

// RenderSignalPanel renders the target device panel: identity, current
// signal, lock countdown and recent RSSI history.
func RenderSignalPanel(v SignalView, width, height int) string {
	innerW := max(20, width-4)

	lines := []string{
		StylePanelTitle.Render("TARGET DEVICE"),
		StyleRule.Render(strings.Repeat("-", innerW)),
		"",
	}

	name := v.Name
	if name == "" {
		name = "[unnamed]"
	}
	rssi, bucket, distance := "waiting...", "-", "-"
	if v.HaveSample {
		rssi = "NOT FOUND"
		if v.Last.Reading.Present {
			rssi = fmt.Sprintf("%d dBm", v.Last.Reading.RSSI)
		}
		bucket = lipgloss.NewStyle().Foreground(BucketColor(v.Last.Bucket)).Bold(true).Render(v.Last.Bucket.String())
		distance = v.Last.Distance
	}

	fields := []struct{ label, value string }{
		{"Name", name},
		{"Address", v.DeviceID},
		{"Threshold", fmt.Sprintf("%d dBm", v.ThresholdDBm)},
		{"RSSI", rssi},
		{"Signal", bucket},
		{"Distance", distance},
		{"Last lock", formatLastLock(v.LastTrigger)},
	}
	for _, f := range fields {
		lines = append(lines, StyleLabel.Render(fmt.Sprintf("  %-10s", f.label))+StyleValue.Render(f.value))
	}
	lines = append(lines, "")

	barW := max(10, innerW-22)
	present := v.HaveSample && v.Last.Reading.Present
	lines = append(lines, StyleLabel.Render("  Signal    ")+renderSignalBar(v.Last.Reading.RSSI, present, v.ThresholdDBm, barW))
	lines = append(lines, StyleLabel.Render("  Lock      ")+renderCountdown(v, barW))
	lines = append(lines, "")

	if len(v.History) > 0 {
		lines = append(lines, StyleLabel.Render("  RSSI History:"))
		spark := renderSparkline(v.History, max(10, innerW-4))
		lines = append(lines, "  "+lipgloss.NewStyle().Foreground(ColorGreen).Render(spark))
	}

	for len(lines) < height-2 {
		lines = append(lines, "")
	}
	if len(lines) > height-2 && height > 2 {
		lines = lines[:height-2]
	}

	border := StylePanelActive
	if v.Streak > 0 || v.Triggered {
		border = border.BorderForeground(ColorWarning)
	}
	return border.Width(width - 2).Height(height - 2).Render(strings.Join(lines, "\n"))
}

// renderSignalBar maps -100..-30 dBm onto width cells and marks the
// threshold with '|'.
func renderSignalBar(rssi int, present bool, threshold, width int) string {
	filled := 0
	if present {
		filled = int(math.Round(signalRatio(rssi) * float64(width)))
	}
	mark := int(math.Round(signalRatio(threshold) * float64(width)))
	if mark >= width {
		mark = width - 1
	}

	cells := []byte(strings.Repeat("=", filled) + strings.Repeat("-", width-filled))
	cells[mark] = '|'

	color := ColorError
	if present {
		color = BucketColor(bucketForRSSI(rssi))
	}
	filledPart := lipgloss.NewStyle().Foreground(color).Render(string(cells[:filled]))
	emptyPart := lipgloss.NewStyle().Foreground(ColorDimGreen).Render(string(cells[filled:]))
	return StyleHelp.Render("[") + filledPart + emptyPart + StyleHelp.Render("]")
}

func renderCountdown(v SignalView, width int) string {
	switch {
	case !v.AutoLock:
		return StyleHelp.Render("auto-lock disabled")
	case v.Triggered:
		return StyleLogLocked.Render("LOCKED")
	case v.Streak == 0 || v.Required == 0:
		return StyleValue.Render("armed")
	}
	filled := min(width, v.Streak*width/v.Required)
	bar := lipgloss.NewStyle().Foreground(ColorWarning).Render(strings.Repeat("#", filled)) +
		StyleHelp.Render(strings.Repeat(".", width-filled))
	return StyleHelp.Render("[") + bar + StyleHelp.Render("]") +
		StyleLogCountdown.Render(fmt.Sprintf(" %s", v.Remaining.Round(100*time.Millisecond)))
}

func signalRatio(rssi int) float64 {
	r := float64(rssi+100) / 70.0
	return math.Max(0, math.Min(1, r))
}

func bucketForRSSI(rssi int) proximity.Bucket {
	return proximity.Classify(proximity.Observed(rssi, time.Time{}), 0).Bucket
}

// renderSparkline draws one glyph per reading on a fixed -100..-30 dBm
// scale. Absent readings render as 'x'.
func renderSparkline(history []proximity.Reading, width int) string {
	chars := []byte{'_', '.', '-', '~', '^'}

	start := 0
	if len(history) > width {
		start = len(history) - width
	}

	var sb strings.Builder
	for _, r := range history[start:] {
		if !r.Present {
			sb.WriteByte('x')
			continue
		}
		idx := int(signalRatio(r.RSSI) * float64(len(chars)-1))
		sb.WriteByte(chars[idx])
	}
	return sb.String()
}

func formatLastLock(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	d := time.Since(t)
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm ago", int(d.Minutes()))
}
