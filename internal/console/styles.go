package console

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#5A56E0")).
			Padding(0, 1)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8A8A8"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#767676"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262")).MarginTop(1)
	labelStyle   = lipgloss.NewStyle().Bold(true).Width(12)
	currentStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5A56E0")).Underline(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#5A56E0")).Padding(1, 2)
)
