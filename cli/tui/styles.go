// Package tui is the interactive translation page: an input area, a
// direction selector and a streaming output area driven by a
// session.Controller.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/ltwin/communication-translator/output"
)

// Palette.
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	successColor   = lipgloss.Color("#10B981") // Green
	warningColor   = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	highlightColor = lipgloss.Color("#3B82F6") // Blue
)

// palette holds the colors that differ between themes.
type palette struct {
	text       lipgloss.Color
	background lipgloss.Color
	border     lipgloss.Color
	annotation lipgloss.Color
}

var palettes = map[output.Theme]palette{
	output.ThemeDark: {
		text:       lipgloss.Color("#F9FAFB"),
		background: lipgloss.Color("#111827"),
		border:     mutedColor,
		annotation: lipgloss.Color("#1E3A8A"),
	},
	output.ThemeLight: {
		text:       lipgloss.Color("#111827"),
		background: lipgloss.Color("#F9FAFB"),
		border:     lipgloss.Color("#D1D5DB"),
		annotation: lipgloss.Color("#DBEAFE"),
	},
}

// Styles is the full style set for one theme.
type Styles struct {
	Title       lipgloss.Style
	Label       lipgloss.Style
	Value       lipgloss.Style
	Muted       lipgloss.Style
	Input       lipgloss.Style
	Output      lipgloss.Style
	Annotation  lipgloss.Style
	HighConf    lipgloss.Style
	MediumConf  lipgloss.Style
	Error       lipgloss.Style
	Counter     lipgloss.Style
	CounterWarn lipgloss.Style
	CounterOver lipgloss.Style
	Flash       lipgloss.Style
	Help        lipgloss.Style
	Spinner     lipgloss.Style
}

// NewStyles builds the style set for theme. Unknown themes use dark.
func NewStyles(theme output.Theme) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes[output.ThemeDark]
	}

	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.border).
		Padding(0, 1)

	return Styles{
		Title:       lipgloss.NewStyle().Bold(true).Foreground(primaryColor),
		Label:       lipgloss.NewStyle().Foreground(mutedColor),
		Value:       lipgloss.NewStyle().Foreground(p.text),
		Muted:       lipgloss.NewStyle().Foreground(mutedColor).Italic(true),
		Input:       box,
		Output:      box.BorderForeground(highlightColor),
		Annotation:  lipgloss.NewStyle().Foreground(p.text).Background(p.annotation).Padding(0, 1),
		HighConf:    lipgloss.NewStyle().Bold(true).Foreground(successColor),
		MediumConf:  lipgloss.NewStyle().Bold(true).Foreground(warningColor),
		Error:       lipgloss.NewStyle().Foreground(errorColor),
		Counter:     lipgloss.NewStyle().Foreground(mutedColor),
		CounterWarn: lipgloss.NewStyle().Foreground(warningColor),
		CounterOver: lipgloss.NewStyle().Bold(true).Foreground(errorColor),
		Flash:       lipgloss.NewStyle().Foreground(successColor),
		Help:        lipgloss.NewStyle().Foreground(mutedColor).MarginTop(1),
		Spinner:     lipgloss.NewStyle().Foreground(primaryColor),
	}
}

// ConfidenceStyle returns the style for a confidence level.
func (s Styles) ConfidenceStyle(level string) lipgloss.Style {
	if level == "high" {
		return s.HighConf
	}
	return s.MediumConf
}
