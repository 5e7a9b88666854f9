package ui

import "github.com/charmbracelet/lipgloss"

// Palette shared by every view.
const (
	colorAccent  = lipgloss.Color("#FF8C42")
	colorWarm    = lipgloss.Color("#FFB84D")
	colorMuted   = lipgloss.Color("#6B7280")
	colorText    = lipgloss.Color("#FFFFFF")
	colorError   = lipgloss.Color("#FF4757")
	colorSuccess = lipgloss.Color("#2ED573")
	colorNumeric = lipgloss.Color("#4DA8FF")
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent).MarginTop(1)

	LinkStyle     = lipgloss.NewStyle().Foreground(colorWarm).Underline(true)
	SubtitleStyle = lipgloss.NewStyle().Foreground(colorMuted)
	HelpStyle     = lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1)

	// Radio buttons and column checklist.
	SelectedStyle   = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	UnselectedStyle = lipgloss.NewStyle().Foreground(colorText)
	CheckedStyle    = lipgloss.NewStyle().Foreground(colorWarm).Bold(true)

	// Step confirmations and failures.
	SuccessStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)

	// StepStyle renders the trail of applied steps.
	StepStyle = lipgloss.NewStyle().Foreground(colorWarm).Italic(true)

	// Column kind tags in the column selection list.
	NumericKindStyle = lipgloss.NewStyle().Foreground(colorNumeric)
	TextKindStyle    = lipgloss.NewStyle().Foreground(colorMuted)

	PreviewHeaderStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.NormalBorder()).
				BorderForeground(colorMuted).
				BorderBottom(true).
				Foreground(colorAccent).
				Bold(true)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(1, 2)
)

func kindStyle(numeric bool) lipgloss.Style {
	if numeric {
		return NumericKindStyle
	}
	return TextKindStyle
}
