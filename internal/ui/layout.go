package ui

import "github.com/charmbracelet/lipgloss"

// ComposeLayout joins the signal panel and log panel horizontally,
// with menu bar on top and status bar on bottom.
func ComposeLayout(menuBar, signalPanel, logPanel, statusBar string) string {
	middle := lipgloss.JoinHorizontal(lipgloss.Top, signalPanel, logPanel)
	return lipgloss.JoinVertical(lipgloss.Left, menuBar, middle, statusBar)
}
