package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderLogPanel renders the most recent sample lines, newest at the bottom.
// Lines that do not fit the width are cut, not wrapped.
func RenderLogPanel(lines []string, width, height int) string {
	innerW := max(10, width-4)
	innerH := max(3, height-2)

	all := []string{
		StylePanelTitle.Render(fmt.Sprintf("SAMPLES [%d]", len(lines))),
		StyleRule.Render(strings.Repeat("-", innerW)),
	}
	space := innerH - len(all)

	if len(lines) == 0 {
		all = append(all, "", StyleHelp.Render(" Waiting for first scan..."))
	} else {
		if len(lines) > space {
			lines = lines[len(lines)-space:]
		}
		for _, l := range lines {
			all = append(all, styleLogLine(truncate(l, innerW)))
		}
	}

	for len(all) < innerH {
		all = append(all, "")
	}
	if len(all) > innerH {
		all = all[:innerH]
	}
	return StylePanelBorder.Width(width - 2).Height(innerH).Render(strings.Join(all, "\n"))
}

func styleLogLine(l string) string {
	switch {
	case strings.Contains(l, "LOCKED"):
		return StyleLogLocked.Render(l)
	case strings.Contains(l, "Will lock"):
		return StyleLogCountdown.Render(l)
	default:
		return StyleLogLine.Render(l)
	}
}

func truncate(s string, w int) string {
	if lipgloss.Width(s) <= w {
		return s
	}
	r := []rune(s)
	if len(r) > w {
		r = r[:w]
	}
	return string(r)
}
