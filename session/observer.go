package session

import (
	"time"

	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/types"
)

// Listener receives UI-state callbacks. Surrounding controls disable input
// while translating is true.
type Listener interface {
	OnTranslating(translating bool)
	OnTheme(theme output.Theme)
	OnCopied(target string, err error)
}

// Hooks adapts optional functions to Listener. Nil fields are skipped.
type Hooks struct {
	Translating func(translating bool)
	Theme       func(theme output.Theme)
	Copied      func(target string, err error)
}

// OnTranslating calls h.Translating.
func (h Hooks) OnTranslating(translating bool) {
	if h.Translating != nil {
		h.Translating(translating)
	}
}

// OnTheme calls h.Theme.
func (h Hooks) OnTheme(theme output.Theme) {
	if h.Theme != nil {
		h.Theme(theme)
	}
}

// OnCopied calls h.Copied.
func (h Hooks) OnCopied(target string, err error) {
	if h.Copied != nil {
		h.Copied(target, err)
	}
}

// Summary describes a finished session.
type Summary struct {
	SessionID string
	Content   string
	Mode      types.Mode
	State     types.SessionState
	Failure   string
	Reason    string
	Meta      *types.Meta
	Output    string
	Deltas    int
	Bytes     int64
	StartedAt time.Time
	EndedAt   time.Time
}

// Duration returns the session's wall time.
func (s Summary) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}

// Observer is notified on the owner goroutine whenever a session reaches a
// terminal state. Implementations must not block.
type Observer interface {
	SessionFinished(s Summary)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(s Summary)

// SessionFinished calls f(s).
func (f ObserverFunc) SessionFinished(s Summary) {
	f(s)
}
