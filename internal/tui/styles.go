package tui

import "github.com/charmbracelet/lipgloss"

// Standard ANSI colors (0-15) so the player follows the terminal theme.
var (
	colorBorder = lipgloss.ANSIColor(8)  // bright black (dark gray)
	colorTitle  = lipgloss.ANSIColor(10) // bright green
	colorText   = lipgloss.ANSIColor(7)  // white (light gray)
	colorDim    = lipgloss.ANSIColor(8)  // bright black (dark gray)
	colorAccent = lipgloss.ANSIColor(11) // bright yellow
	colorActive = lipgloss.ANSIColor(10) // bright green
	colorError  = lipgloss.ANSIColor(9)  // bright red
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(1, 2).
			Width(72)

	titleStyle = lipgloss.NewStyle().
			Foreground(colorTitle).
			Bold(true)

	instructionStyle = lipgloss.NewStyle().
				Foreground(colorText)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorDim)

	accentStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	playingStyle = lipgloss.NewStyle().
			Foreground(colorActive).
			Bold(true)

	selectedStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Bold(true)

	scoreStyle = lipgloss.NewStyle().
			Foreground(colorActive).
			Bold(true)

	overtimeStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Blink(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorDim)
)
