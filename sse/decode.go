package sse

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ltwin/communication-translator/types"
)

// Sentinel payloads with control meaning.
const (
	DoneToken   = "[DONE]"
	ErrorPrefix = "[ERROR]"
	MetaPrefix  = "[META]"
)

// DecodeErrorKind classifies decode failures.
type DecodeErrorKind int

const (
	// DecodeErrorUnprefixed indicates a frame without the "data: " prefix.
	DecodeErrorUnprefixed DecodeErrorKind = iota
	// DecodeErrorMeta indicates a malformed [META] payload.
	DecodeErrorMeta
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeErrorUnprefixed:
		return "unprefixed"
	case DecodeErrorMeta:
		return "meta"
	default:
		return "unknown"
	}
}

// DecodeError represents a frame that produced no event.
// Decode errors are warnings: the frame is dropped and the stream continues.
type DecodeError struct {
	Kind DecodeErrorKind
	Msg  string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsWarning returns true if err is a *DecodeError, which callers log and drop.
func IsWarning(err error) bool {
	var decErr *DecodeError
	return errors.As(err, &decErr)
}

// metaPayload mirrors the [META] JSON object. Confidence is a pointer so a
// missing field is distinguishable from zero.
type metaPayload struct {
	DetectedDirection types.Direction `json:"detected_direction"`
	Confidence        *float64        `json:"confidence"`
	Reasoning         string          `json:"reasoning"`
}

// Decode classifies a frame produced by Framer. Rules apply in order:
// [DONE], [ERROR] <message>, [META] <json>, then verbatim text.
func Decode(frame string) (types.StreamEvent, error) {
	payload, ok := strings.CutPrefix(frame, Prefix)
	if !ok {
		return types.StreamEvent{}, &DecodeError{
			Kind: DecodeErrorUnprefixed,
			Msg:  fmt.Sprintf("frame does not start with %q", Prefix),
		}
	}

	switch {
	case payload == DoneToken:
		return types.Done(), nil

	case strings.HasPrefix(payload, ErrorPrefix):
		msg := strings.TrimSpace(payload[len(ErrorPrefix):])
		if msg == "" {
			msg = types.DefaultErrorMessage
		}
		return types.ErrorEvent(msg), nil

	case strings.HasPrefix(payload, MetaPrefix):
		meta, err := decodeMeta(strings.TrimSpace(payload[len(MetaPrefix):]))
		if err != nil {
			return types.StreamEvent{}, err
		}
		return types.MetaEvent(meta), nil

	default:
		return types.TextDelta(payload), nil
	}
}

func decodeMeta(raw string) (types.Meta, error) {
	var p metaPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return types.Meta{}, &DecodeError{Kind: DecodeErrorMeta, Msg: "invalid meta JSON", Err: err}
	}
	if !p.DetectedDirection.Valid() {
		return types.Meta{}, &DecodeError{
			Kind: DecodeErrorMeta,
			Msg:  fmt.Sprintf("unknown detected_direction %q", p.DetectedDirection),
		}
	}
	if p.Confidence == nil || *p.Confidence < 0 || *p.Confidence > 1 {
		return types.Meta{}, &DecodeError{Kind: DecodeErrorMeta, Msg: "confidence missing or outside [0, 1]"}
	}
	return types.Meta{
		DetectedDirection: p.DetectedDirection,
		Confidence:        *p.Confidence,
		Reasoning:         p.Reasoning,
	}, nil
}
