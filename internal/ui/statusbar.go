package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// RenderStatusBar renders the bottom status bar.
func RenderStatusBar(width int, autoLock bool, samples, locks int, uptime string) string {
	status := StyleStatusMonitoring.Render("[AUTO-LOCK ON]")
	if !autoLock {
		status = StyleStatusPaused.Render("[AUTO-LOCK OFF]")
	}

	info := fmt.Sprintf(" Samples: %d  Locks: %d  Uptime: %s", samples, locks, uptime)
	content := status + StyleStatusBar.Foreground(ColorGreen).Render(info)

	gap := max(0, width-lipgloss.Width(content))
	return StyleStatusBar.Width(width).Render(content + strings.Repeat(" ", gap))
}
