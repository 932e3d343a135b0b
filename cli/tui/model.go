package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ltwin/communication-translator/export"
	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/session"
	"github.com/ltwin/communication-translator/types"
)

// Layout.
const (
	inputHeight   = 6
	minOutput     = 3
	defaultWidth  = 80
	defaultHeight = 30
	// chrome is every row outside the output viewport: title, direction,
	// input box, counter, output borders, flash and help.
	chrome = 1 + 1 + (inputHeight + 2) + 1 + 2 + 1 + 2
)

// FlashDuration is how long a copy notice stays visible.
const FlashDuration = 2 * time.Second

// warnRatio is the share of ContentMaxLength at which the counter warns.
const warnRatio = 0.9

// streamMsg carries one controller message into Update.
type streamMsg struct {
	msg session.Msg
}

// flashExpiredMsg clears the flash if no newer one replaced it.
type flashExpiredMsg struct {
	seq int
}

// waitForStream reads the next controller message.
func waitForStream(ch <-chan session.Msg) tea.Cmd {
	return func() tea.Msg {
		m, ok := <-ch
		if !ok {
			return nil
		}
		return streamMsg{msg: m}
	}
}

// Model is the Bubble Tea model for the translation page.
type Model struct {
	ctx    context.Context
	ctrl   *session.Controller
	bridge *Bridge

	input   textarea.Model
	output  viewport.Model
	spinner spinner.Model
	help    help.Model
	styles  Styles

	width    int
	height   int
	flash    string
	flashErr bool
	flashSeq int
	quitting bool
}

// New creates the page model. bridge must be the Surface and Listener the
// controller was created with.
func New(ctx context.Context, ctrl *session.Controller, bridge *Bridge) Model {
	ta := textarea.New()
	ta.Placeholder = ctrl.Mode().Placeholder()
	ta.CharLimit = types.ContentMaxLength
	ta.ShowLineNumbers = false
	ta.SetHeight(inputHeight)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	bridge.theme = ctrl.Theme()
	styles := NewStyles(bridge.theme)
	sp.Style = styles.Spinner

	m := Model{
		ctx:     ctx,
		ctrl:    ctrl,
		bridge:  bridge,
		input:   ta,
		output:  viewport.New(defaultWidth, minOutput),
		spinner: sp,
		help:    help.New(),
		styles:  styles,
	}
	m.resize(defaultWidth, defaultHeight)
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, waitForStream(m.ctrl.Messages()))
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.ctrl.Close()
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Submit):
			err := m.ctrl.Dispatch(m.ctx, session.Submit{Content: m.input.Value()})
			if err != nil && !types.IsValidationError(err) {
				cmds = append(cmds, m.setFlash(err.Error(), true))
			}

		case key.Matches(msg, keys.Direction):
			if m.bridge.translating {
				break
			}
			if err := m.ctrl.Dispatch(m.ctx, session.ChangeDirection{}); err == nil {
				m.input.Placeholder = m.ctrl.Mode().Placeholder()
			}

		case key.Matches(msg, keys.Theme):
			if err := m.ctrl.Dispatch(m.ctx, session.ToggleTheme{}); err == nil {
				m.styles = NewStyles(m.bridge.theme)
				m.spinner.Style = m.styles.Spinner
			}

		case key.Matches(msg, keys.Copy):
			if err := m.ctrl.Dispatch(m.ctx, session.Copy{}); err != nil {
				cmds = append(cmds, m.setFlash(copyErrorText(err), true))
			}

		case key.Matches(msg, keys.Scroll):
			var cmd tea.Cmd
			m.output, cmd = m.output.Update(msg)
			cmds = append(cmds, cmd)

		default:
			if !m.bridge.translating {
				var cmd tea.Cmd
				m.input, cmd = m.input.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case streamMsg:
		m.ctrl.Handle(msg.msg)
		for _, c := range m.bridge.takeCopied() {
			if c.err != nil {
				cmds = append(cmds, m.setFlash("Copy failed: "+c.err.Error(), true))
			} else {
				cmds = append(cmds, m.setFlash("Copied to "+c.target, false))
			}
		}
		cmds = append(cmds, waitForStream(m.ctrl.Messages()))

	case flashExpiredMsg:
		if msg.seq == m.flashSeq {
			m.flash = ""
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	}

	m.refresh()
	return m, tea.Batch(cmds...)
}

// setFlash shows text and schedules its removal.
func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flashSeq++
	m.flash = text
	m.flashErr = isErr
	seq := m.flashSeq
	return tea.Tick(FlashDuration, func(time.Time) tea.Msg {
		return flashExpiredMsg{seq: seq}
	})
}

func copyErrorText(err error) string {
	switch {
	case errors.Is(err, export.ErrEmpty):
		return "Nothing to copy yet"
	case errors.Is(err, session.ErrNoExporter):
		return "Copy is not configured"
	default:
		return "Copy failed: " + err.Error()
	}
}

// resize lays the page out for a terminal of w x h cells.
func (m *Model) resize(w, h int) {
	m.width, m.height = w, h
	inner := max(w-4, 10)
	m.input.SetWidth(inner)
	m.output.Width = inner
	m.output.Height = max(h-chrome, minOutput)
	m.help.Width = w
}

// refresh syncs input focus and output content with the controller.
func (m *Model) refresh() {
	if m.bridge.translating {
		m.input.Blur()
	} else if !m.input.Focused() {
		m.input.Focus()
	}

	m.output.SetContent(m.renderOutput(m.bridge.view))
	if m.bridge.view.Streaming {
		m.output.GotoBottom()
	}
}

// renderOutput draws a view as viewport content.
func (m Model) renderOutput(v output.View) string {
	if v.Error != "" {
		return m.styles.Error.Render("✗ " + v.Error)
	}
	if v.Empty() {
		return m.styles.Muted.Render(v.Placeholder)
	}

	var b strings.Builder
	if v.Annotation != "" {
		line := v.Annotation
		if v.Meta != nil {
			line = m.styles.ConfidenceStyle(v.Meta.ConfidenceLevel()).Render(line)
		}
		b.WriteString(m.styles.Annotation.Render(line))
		b.WriteString("\n")
		if v.Meta != nil && v.Meta.Reasoning != "" {
			b.WriteString(m.styles.Muted.Render(v.Meta.Reasoning))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(v.Body)
	return b.String()
}

// counterLevel classifies an input length for the character counter.
type counterLevel int

const (
	counterNormal counterLevel = iota
	counterWarn
	counterOver
)

func levelFor(n int) counterLevel {
	switch {
	case n > types.ContentMaxLength:
		return counterOver
	case float64(n) > warnRatio*types.ContentMaxLength:
		return counterWarn
	default:
		return counterNormal
	}
}

func (m Model) renderCounter() string {
	n := utf8.RuneCountInString(m.input.Value())
	text := fmt.Sprintf("%d / %d", n, types.ContentMaxLength)
	switch levelFor(n) {
	case counterOver:
		return m.styles.CounterOver.Render(text)
	case counterWarn:
		return m.styles.CounterWarn.Render(text)
	default:
		return m.styles.Counter.Render(text)
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	title := m.styles.Title.Render("Communication Translator")
	theme := m.styles.Label.Render(fmt.Sprintf("theme: %s", m.bridge.theme))
	header := lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", theme)

	status := m.styles.Label.Render("Direction: ") + m.styles.Value.Render(m.ctrl.Mode().Label())
	if m.bridge.translating {
		status += "  " + m.spinner.View() + m.styles.Label.Render(" Translating...")
	}

	counter := lipgloss.PlaceHorizontal(max(m.width-2, 0), lipgloss.Right, m.renderCounter())

	flash := ""
	if m.flash != "" {
		if m.flashErr {
			flash = m.styles.Error.Render(m.flash)
		} else {
			flash = m.styles.Flash.Render("✓ " + m.flash)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		status,
		m.styles.Input.Render(m.input.View()),
		counter,
		m.styles.Output.Render(m.output.View()),
		flash,
		m.styles.Help.Render(m.help.View(keys)),
	)
}
