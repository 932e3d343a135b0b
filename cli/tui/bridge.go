package tui

import (
	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/session"
)

// copyResult is one finished Copy.
type copyResult struct {
	target string
	err    error
}

// Bridge receives controller callbacks for the page. It implements
// output.Surface and session.Listener.
//
// The controller only calls it from Model.Update, so it needs no locking.
type Bridge struct {
	view        output.View
	translating bool
	theme       output.Theme
	copied      []copyResult
}

// NewBridge creates a bridge for the initial theme.
func NewBridge(theme output.Theme) *Bridge {
	if theme == "" {
		theme = output.ThemeDark
	}
	return &Bridge{theme: theme}
}

// Show stores the latest view.
func (b *Bridge) Show(v output.View) {
	b.view = v
}

// OnTranslating records the translating flag.
func (b *Bridge) OnTranslating(translating bool) {
	b.translating = translating
}

// OnTheme records the theme.
func (b *Bridge) OnTheme(theme output.Theme) {
	b.theme = theme
}

// OnCopied queues a copy result for the next Update.
func (b *Bridge) OnCopied(target string, err error) {
	b.copied = append(b.copied, copyResult{target: target, err: err})
}

func (b *Bridge) takeCopied() []copyResult {
	c := b.copied
	b.copied = nil
	return c
}

var (
	_ output.Surface   = (*Bridge)(nil)
	_ session.Listener = (*Bridge)(nil)
)
