package types

// SessionState is the lifecycle state of one translate-and-stream session.
type SessionState int

// Session states.
const (
	StateIdle SessionState = iota
	StateRequesting
	StateStreaming
	StateCompleted
	StateFailed
	StateCancelled
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsActive returns true while a request is in flight.
func (s SessionState) IsActive() bool {
	return s == StateRequesting || s == StateStreaming
}

// IsTerminal returns true for states that end a session.
// Terminal states end the session, not the UI: a new submit always starts over.
func (s SessionState) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed || s == StateCancelled
}
