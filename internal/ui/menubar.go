package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"ble-autolock.klederson.com/internal/config"
)

// RenderMenuBar renders the top menu bar.
func RenderMenuBar(width int, source string, running, paused bool) string {
	title := fmt.Sprintf(" %s v%s ", config.AppName, config.AppVersion)

	keys := []struct{ key, label string }{
		{"P", "ause view"},
		{"C", "lear"},
		{"Q", "uit"},
	}

	var menu strings.Builder
	for _, k := range keys {
		menu.WriteString("  " + StyleMenuKey.Render("["+k.key+"]") + StyleMenuLabel.Render(k.label))
	}

	var status string
	switch {
	case !running:
		status = StyleStatusLocked.Render("STOPPED")
	case paused:
		status = StyleStatusPaused.Render("VIEW PAUSED")
	default:
		status = StyleStatusMonitoring.Render("MONITORING")
	}

	sourceInfo := StyleMenuLabel.Render("Source: " + source)

	left := StyleMenuKey.Render(title) + menu.String()
	right := status + "  " + sourceInfo + " "

	gap := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return StyleMenuBar.Width(width).Render(left + strings.Repeat(" ", gap) + right)
}
