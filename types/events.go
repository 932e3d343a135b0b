package types

import "math"

// EventKind discriminates StreamEvent.
type EventKind int

// Event kinds decoded from the translation stream.
const (
	// EventTextDelta carries a fragment of translated text.
	EventTextDelta EventKind = iota
	// EventMeta carries auto-detection metadata.
	EventMeta
	// EventDone marks successful completion.
	EventDone
	// EventError carries a server-side error message.
	EventError
)

// String returns the wire-independent name of the kind.
func (k EventKind) String() string {
	switch k {
	case EventTextDelta:
		return "text_delta"
	case EventMeta:
		return "meta"
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// IsTerminal returns true if this kind ends a session.
func (k EventKind) IsTerminal() bool {
	return k == EventDone || k == EventError
}

// StreamEvent is a decoded stream message. Exactly one Kind is set;
// only the field matching Kind is meaningful.
type StreamEvent struct {
	Kind EventKind
	// Text is the delta for EventTextDelta, verbatim.
	Text string
	// Meta is set for EventMeta.
	Meta *Meta
	// Message is the error text for EventError.
	Message string
}

// TextDelta returns an EventTextDelta event.
func TextDelta(text string) StreamEvent {
	return StreamEvent{Kind: EventTextDelta, Text: text}
}

// MetaEvent returns an EventMeta event.
func MetaEvent(m Meta) StreamEvent {
	return StreamEvent{Kind: EventMeta, Meta: &m}
}

// Done returns an EventDone event.
func Done() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// ErrorEvent returns an EventError event.
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Kind: EventError, Message: message}
}

// HighConfidence is the threshold above which a detection is shown as reliable.
const HighConfidence = 0.8

// Meta is the auto-detection result reported by the service.
type Meta struct {
	DetectedDirection Direction `json:"detected_direction" msgpack:"detected_direction"`
	// Confidence is in [0, 1].
	Confidence float64 `json:"confidence" msgpack:"confidence"`
	// Reasoning is an optional explanation from the detector.
	Reasoning string `json:"reasoning,omitempty" msgpack:"reasoning,omitempty"`
}

// ConfidencePercent returns the confidence rounded to a whole percentage.
func (m Meta) ConfidencePercent() int {
	return int(math.Round(m.Confidence * 100))
}

// ConfidenceLevel returns "high" at or above HighConfidence, else "medium".
func (m Meta) ConfidenceLevel() string {
	if m.Confidence >= HighConfidence {
		return "high"
	}
	return "medium"
}
