package output

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
)

// Formatter turns the accumulated document into displayable text.
type Formatter interface {
	Format(text string) (string, error)
}

// Themed is implemented by formatters whose output depends on the theme.
type Themed interface {
	SetTheme(t Theme) error
}

// Theme is the light/dark color scheme.
type Theme string

// Supported themes.
const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// ParseTheme parses a theme name. Empty means dark.
func ParseTheme(s string) (Theme, error) {
	switch Theme(strings.ToLower(strings.TrimSpace(s))) {
	case "", ThemeDark:
		return ThemeDark, nil
	case ThemeLight:
		return ThemeLight, nil
	default:
		return "", fmt.Errorf("unknown theme %q (valid: light, dark)", s)
	}
}

// Toggle returns the other theme.
func (t Theme) Toggle() Theme {
	if t == ThemeLight {
		return ThemeDark
	}
	return ThemeLight
}

// Plain renders text unchanged.
type Plain struct{}

// Format returns text as is.
func (Plain) Format(text string) (string, error) {
	return text, nil
}

// DefaultWrap is the word-wrap width used when none is configured.
const DefaultWrap = 80

// Markdown renders the document as styled terminal markdown.
type Markdown struct {
	wrap  int
	theme Theme
	term  *glamour.TermRenderer
}

// NewMarkdown creates a markdown formatter for theme, wrapping at wrap
// columns (DefaultWrap when wrap <= 0).
func NewMarkdown(theme Theme, wrap int) (*Markdown, error) {
	if wrap <= 0 {
		wrap = DefaultWrap
	}
	m := &Markdown{wrap: wrap}
	if err := m.SetTheme(theme); err != nil {
		return nil, err
	}
	return m, nil
}

// SetTheme switches the glamour style.
func (m *Markdown) SetTheme(t Theme) error {
	style := styles.DarkStyle
	if t == ThemeLight {
		style = styles.LightStyle
	}
	term, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(m.wrap),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	m.term = term
	m.theme = t
	return nil
}

// Theme returns the current theme.
func (m *Markdown) Theme() Theme {
	return m.theme
}

// Format renders text as markdown.
func (m *Markdown) Format(text string) (string, error) {
	out, err := m.term.Render(text)
	if err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// NewFormatter returns the formatter registered under name
// ("markdown" or "plain").
func NewFormatter(name string, theme Theme, wrap int) (Formatter, error) {
	switch strings.ToLower(name) {
	case "", "markdown":
		return NewMarkdown(theme, wrap)
	case "plain":
		return Plain{}, nil
	default:
		return nil, fmt.Errorf("unknown formatter %q (valid: markdown, plain)", name)
	}
}
