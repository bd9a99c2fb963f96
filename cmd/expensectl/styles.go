package main

import (
	"github.com/charmbracelet/lipgloss"

	"expensetracker/internal/core"
)

var (
	primaryColor = lipgloss.Color("#6C5CE7")
	successColor = lipgloss.Color("#00B894")
	warningColor = lipgloss.Color("#FDCB6E")
	errorColor   = lipgloss.Color("#D63031")
	subtleColor  = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	successStyle = lipgloss.NewStyle().Foreground(successColor)
	warningStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(subtleColor)
	boldStyle    = lipgloss.NewStyle().Bold(true)
)

// stateStyle colors a goal line by its classification.
func stateStyle(state core.GoalState) lipgloss.Style {
	switch state {
	case core.StateCompleted:
		return successStyle
	case core.StateFailed:
		return errorStyle
	}
	return warningStyle
}

// swatch renders a colored block for a category color in #RRGGBB form.
func swatch(hex string) string {
	if hex == "" {
		return " "
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■")
}
