package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorMomentary = lipgloss.Color("#2D846B")
	ColorShortTerm = lipgloss.Color("#92ADC4")
	ColorOrange    = lipgloss.Color("#DDA036") // Primary/Active
	ColorGray      = lipgloss.Color("#9A9EA0") // Inactive/Subtle
	ColorGrid      = lipgloss.Color("#3A4A5E")
	ColorRed       = lipgloss.Color("#E95420") // Error
	ColorGreen     = lipgloss.Color("#4CAF50") // Success
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorOrange)

	momentaryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMomentary)

	shortTermStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorShortTerm)

	dimStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	axisStyle = lipgloss.NewStyle().
			Foreground(ColorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(ColorRed)

	doneStyle = lipgloss.NewStyle().
			Foreground(ColorGreen)

	followStyle = lipgloss.NewStyle().
			Foreground(ColorOrange)

	cellStyles = [...]lipgloss.Style{
		cellEmpty:     lipgloss.NewStyle(),
		cellGrid:      lipgloss.NewStyle().Foreground(ColorGrid),
		cellMomentary: lipgloss.NewStyle().Foreground(ColorMomentary),
		cellShortTerm: lipgloss.NewStyle().Foreground(ColorShortTerm),
	}
)
