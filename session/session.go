// Package session drives translation sessions: it owns the session state
// machine, runs the stream pump and feeds the progressive renderer.
//
// All mutable state lives in a Controller and is touched only by the
// goroutine that calls Dispatch, Start and Handle (the Bubble Tea update
// loop, or Await in headless mode). Pump goroutines read the transport and
// post messages to the controller inbox; each message carries its session
// ID so that nothing from a superseded stream is ever applied.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/types"
)

// ErrInvalidTransition is returned for state changes the machine forbids.
var ErrInvalidTransition = errors.New("invalid session transition")

// transitions lists the allowed target states for each state.
// Terminal states lead back to Requesting through a new session.
var transitions = map[types.SessionState][]types.SessionState{
	types.StateIdle:       {types.StateRequesting},
	types.StateRequesting: {types.StateStreaming, types.StateFailed, types.StateCancelled},
	types.StateStreaming:  {types.StateStreaming, types.StateCompleted, types.StateFailed, types.StateCancelled},
	types.StateCompleted:  {types.StateRequesting},
	types.StateFailed:     {types.StateRequesting},
	types.StateCancelled:  {types.StateRequesting},
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to types.SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FailureKind classifies why a session failed.
type FailureKind int

const (
	// FailureNone means the session did not fail.
	FailureNone FailureKind = iota
	// FailureTransport means the request never produced a stream.
	FailureTransport
	// FailureStream means the server sent an [ERROR] event.
	FailureStream
	// FailureConnection means the stream ended before Done or Error.
	FailureConnection
)

func (k FailureKind) String() string {
	switch k {
	case FailureTransport:
		return "transport"
	case FailureStream:
		return "stream"
	case FailureConnection:
		return "connection"
	default:
		return ""
	}
}

// Session is one submit-to-terminal lifecycle of a translation request.
// Accessors may only be called from the controller's owner goroutine.
type Session struct {
	id      string
	request types.TranslationRequest

	state   types.SessionState
	failure FailureKind
	reason  string
	err     error
	meta    *types.Meta
	deltas  int
	bytes   int64

	startedAt time.Time
	endedAt   time.Time

	cancel context.CancelFunc
	log    *log.Logger
}

func newSession(req types.TranslationRequest, logger *log.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:        id,
		request:   req,
		state:     types.StateIdle,
		startedAt: time.Now(),
		cancel:    func() {},
		log:       logger.WithSession(id, string(req.Mode())),
	}
}

func (s *Session) transition(to types.SessionState) error {
	if !CanTransition(s.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, s.state, to)
	}
	s.state = to
	return nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Request returns the request the session was started with.
func (s *Session) Request() types.TranslationRequest { return s.request }

// State returns the current state.
func (s *Session) State() types.SessionState { return s.state }

// Failure returns the failure kind, FailureNone unless Failed.
func (s *Session) Failure() FailureKind { return s.failure }

// Reason returns the user-facing failure or cancellation reason.
func (s *Session) Reason() string { return s.reason }

// Err returns the underlying error of a failed session.
func (s *Session) Err() error { return s.err }

// Meta returns the detection result shown for the session, if any.
func (s *Session) Meta() *types.Meta { return s.meta }

// Deltas returns the number of text deltas applied.
func (s *Session) Deltas() int { return s.deltas }

// StartedAt returns when the session was created.
func (s *Session) StartedAt() time.Time { return s.startedAt }

// EndedAt returns when the session reached a terminal state.
func (s *Session) EndedAt() time.Time { return s.endedAt }

// Duration returns the elapsed time until the terminal state, or until now.
func (s *Session) Duration() time.Duration {
	if s.endedAt.IsZero() {
		return time.Since(s.startedAt)
	}
	return s.endedAt.Sub(s.startedAt)
}
