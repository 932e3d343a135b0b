package types

import (
	"errors"
	"fmt"
)

// User-facing failure messages.
const (
	// DefaultErrorMessage is shown when the service sends an empty [ERROR] event.
	DefaultErrorMessage = "an error occurred during translation"
	// GenericTransportMessage is shown when the request never produced a stream.
	GenericTransportMessage = "translation request failed, please try again later"
	// ConnectionLostMessage is shown when the stream ends before a terminal event.
	ConnectionLostMessage = "the connection closed before the translation finished, please try again"
)

// ValidationError is a local input error. No request is sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// StreamError is an explicit error event emitted by the service mid-stream.
type StreamError struct {
	Message string
}

func (e *StreamError) Error() string {
	return "stream error: " + e.Message
}

// IsValidationError returns true if err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// UserMessage returns the message to show for err.
// Validation and stream errors carry their own text; anything else is a
// transport failure and gets the generic retry hint unless it provides a
// more specific message via a UserMessage() method.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Message
	}
	var serr *StreamError
	if errors.As(err, &serr) {
		return serr.Message
	}
	var detailed interface{ UserMessage() string }
	if errors.As(err, &detailed) {
		if msg := detailed.UserMessage(); msg != "" {
			return msg
		}
	}
	return GenericTransportMessage
}
