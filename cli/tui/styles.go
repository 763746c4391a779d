// Package tui provides the Bubble Tea chat interface of plandesk.
//
// The ChatModel drives a runtime.Orchestrator: keys call its operations,
// each returned effect runs as a tea.Cmd, and the resulting event comes back
// as a message that is fed to Handle on the UI goroutine.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/plandesk/types"
)

// Color palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// Styles for TUI components.
var (
	// TitleStyle for headers and titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	// LabelStyle for field labels.
	LabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(10)

	// ValueStyle for field values.
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))

	// SuccessStyle for success states.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(successColor)

	// WarningStyle for warning states.
	WarningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	// ErrorStyle for error states.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(errorColor)

	// BoxStyle for bordered containers.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	// HelpStyle for help text.
	HelpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	// UserStyle labels user messages.
	UserStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(highlightColor)

	// AgentStyle labels agent messages.
	AgentStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	// PendingStyle for placeholder text.
	PendingStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(mutedColor)

	// StatBoxStyle for stat display boxes.
	StatBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(highlightColor).
			Padding(0, 1).
			Width(14).
			Align(lipgloss.Center)

	// StatLabelStyle for stat labels.
	StatLabelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Align(lipgloss.Center)

	// StatValueStyle for stat values.
	StatValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Align(lipgloss.Center)
)

// StatusStyle returns a style for a query status.
func StatusStyle(status types.QueryStatus) lipgloss.Style {
	switch status {
	case types.StatusDone:
		return SuccessStyle
	case types.StatusPreprocessing, types.StatusWorking:
		return WarningStyle
	case types.StatusFailed, types.StatusTimeout:
		return ErrorStyle
	default:
		return ValueStyle
	}
}
