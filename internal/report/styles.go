package report

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	primaryColor = lipgloss.Color("#0E7C86")
	mutedColor   = lipgloss.Color("#888888")
	textColor    = lipgloss.Color("#FFFFFF")
	redColor     = lipgloss.Color("#D7263D")
	yellowColor  = lipgloss.Color("#F4B400")
	greenColor   = lipgloss.Color("#2E9E44")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	SectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor).
			MarginTop(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(keyWidth)

	ValueStyle = lipgloss.NewStyle().
			Bold(true)

	DimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(redColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)
)

const keyWidth = 24

// levelStyle colors a triage level or quality grade.
func levelStyle(level string) lipgloss.Style {
	switch level {
	case "RED", "poor":
		return lipgloss.NewStyle().Bold(true).Foreground(redColor)
	case "YELLOW", "acceptable":
		return lipgloss.NewStyle().Bold(true).Foreground(yellowColor)
	case "GREEN", "good":
		return lipgloss.NewStyle().Bold(true).Foreground(greenColor)
	}
	return ValueStyle
}
