// Package tui provides the interactive gnuplot console.
//
// The console uses Bubble Tea for the application framework and
// Lipgloss for styling. It shows a command prompt with history, a
// scrollback of command output, and a footer with live latency
// statistics.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red

	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	baseStyle = lipgloss.NewStyle().
			Foreground(colorText)

	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)
)

// =============================================================================
// Console Line Styles
// =============================================================================

var (
	promptStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)

	echoStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	outputStyle = lipgloss.NewStyle().
			Foreground(colorText)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Reverse(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorBorder)

	valueGoodStyle = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	valueWarnStyle = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)
)

// =============================================================================
// Indicators
// =============================================================================

// errorRateStyle picks a style by error rate.
func errorRateStyle(errorRate float64) lipgloss.Style {
	switch {
	case errorRate == 0:
		return valueGoodStyle
	case errorRate < 0.01: // <1%
		return valueWarnStyle
	default:
		return valueBadStyle
	}
}

// busyIndicator renders the prompt-side activity marker.
func busyIndicator(busy bool) string {
	if busy {
		return noticeStyle.Render("…")
	}
	return " "
}

// renderKeyValue renders a "label value" footer segment.
func renderKeyValue(label, value string) string {
	return dimStyle.Render(label+" ") + baseStyle.Render(value)
}

func formatPercent(value float64) string {
	return fmt.Sprintf("%.1f%%", value*100)
}
