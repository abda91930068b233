// Package ui holds the terminal styles used by dayflow's commands.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorError   = "#FF5F87"
	colorInfo    = "#626262"
	colorBorder  = "#874BFD"
)

var (
	// TitleStyle is used for headings.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorPrimary))

	// SuccessStyle marks completed actions.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorSuccess))

	// ErrorStyle prefixes errors.
	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorError))

	// InfoStyle is for secondary detail such as weights and excerpts.
	InfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorInfo))

	// BoxStyle frames the article preview.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(colorBorder)).
			Padding(0, 1)
)

// Article renders the "Your article is" line. The url is left unstyled so
// it stays copyable.
func Article(url string) string {
	return "Your article is " + url
}

// Error renders an error message for stderr.
func Error(msg string) string {
	return ErrorStyle.Render("Error: ") + msg
}
