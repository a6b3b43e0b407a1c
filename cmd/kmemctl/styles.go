package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Color palette
	primaryColor = lipgloss.Color("#7D56F4")
	successColor = lipgloss.Color("#04B575")
	warningColor = lipgloss.Color("#FFA500")
	errorColor   = lipgloss.Color("#FF4B4B")
	mutedColor   = lipgloss.Color("#666666")

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	screenStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	okStyle    = lipgloss.NewStyle().Foreground(successColor)
	warnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	errStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	usedCell = lipgloss.NewStyle().Foreground(primaryColor)
	freeCell = lipgloss.NewStyle().Foreground(successColor)
)

// render applies s unless colors are disabled.
func render(s lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return s.Render(text)
}

// renderScreen frames the boot console contents.
func renderScreen(lines []string) string {
	text := strings.Join(lines, "\n")
	if noColor {
		return text + "\n"
	}
	return screenStyle.Render(text) + "\n"
}
