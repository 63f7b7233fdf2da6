package ui

import (
	"github.com/charmbracelet/lipgloss"

	"ble-autolock.klederson.com/internal/proximity"
)

// Matrix color palette
var (
	ColorMatrixGreen  = lipgloss.Color("#00FF41")
	ColorGreen        = lipgloss.Color("#00CC33")
	ColorMidGreen     = lipgloss.Color("#008F11")
	ColorDimGreen     = lipgloss.Color("#004A0A")
	ColorBorderBright = lipgloss.Color("#00FF41")
	ColorBorderNorm   = lipgloss.Color("#00AA22")
	ColorError        = lipgloss.Color("#FF3300")
	ColorWarning      = lipgloss.Color("#FFAA00")
)

// Pre-built styles
var (
	StyleMenuBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleMenuKey = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleMenuLabel = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleStatusBar = lipgloss.NewStyle().
			Background(lipgloss.Color("#002200")).
			Foreground(ColorGreen).
			Padding(0, 1)

	StyleStatusMonitoring = lipgloss.NewStyle().
				Foreground(ColorMatrixGreen).
				Bold(true)

	StyleStatusPaused = lipgloss.NewStyle().
				Foreground(ColorWarning).
				Bold(true)

	StyleStatusLocked = lipgloss.NewStyle().
				Foreground(ColorError).
				Bold(true)

	StylePanelBorder = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderNorm)

	StylePanelActive = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(ColorBorderBright)

	StylePanelTitle = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true).
			Padding(0, 1)

	StyleLabel = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleValue = lipgloss.NewStyle().
			Foreground(ColorMatrixGreen).
			Bold(true)

	StyleRule = lipgloss.NewStyle().
			Foreground(ColorMidGreen)

	StyleHelp = lipgloss.NewStyle().
			Foreground(ColorDimGreen)

	StyleLogLine = lipgloss.NewStyle().
			Foreground(ColorGreen)

	StyleLogLocked = lipgloss.NewStyle().
			Foreground(ColorError).
			Bold(true)

	StyleLogCountdown = lipgloss.NewStyle().
				Foreground(ColorWarning)
)

// BucketColor maps a signal bucket to its display color.
func BucketColor(b proximity.Bucket) lipgloss.Color {
	switch b {
	case proximity.BucketExcellent:
		return ColorMatrixGreen
	case proximity.BucketGood:
		return ColorGreen
	case proximity.BucketFair:
		return lipgloss.Color("#AAFF00")
	case proximity.BucketWeak:
		return ColorWarning
	case proximity.BucketVeryWeak:
		return lipgloss.Color("#FF6600")
	default:
		return ColorError
	}
}
