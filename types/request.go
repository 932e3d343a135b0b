package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Content length limits, in characters, after trimming.
const (
	ContentMinLength = 10
	ContentMaxLength = 2000
)

// validate is safe for concurrent use and caches struct metadata.
var validate = validator.New(validator.WithRequiredStructEnabled())

// requestInput carries the validation rules for a submission.
// The validator counts runes for string min/max, matching the
// service's character limits.
type requestInput struct {
	Content string `validate:"required,min=10,max=2000"`
}

// TranslationRequest is one immutable user submission.
// AutoDetect implies Direction == nil; build it with NewTranslationRequest.
type TranslationRequest struct {
	// Content is the trimmed text to translate.
	Content string `json:"content"`
	// Direction is the explicit direction, omitted in auto-detect mode.
	Direction *Direction `json:"direction,omitempty"`
	// AutoDetect asks the service to pick the direction.
	AutoDetect bool `json:"auto_detect"`
}

// NewTranslationRequest validates content and builds a request for mode.
// Returns a *ValidationError when the input cannot be submitted.
func NewTranslationRequest(content string, mode Mode) (TranslationRequest, error) {
	content = strings.TrimSpace(content)

	if err := validate.Struct(requestInput{Content: content}); err != nil {
		return TranslationRequest{}, contentError(err)
	}

	if mode.IsAuto() {
		return TranslationRequest{Content: content, AutoDetect: true}, nil
	}

	dir := mode.Direction()
	if dir == nil || !dir.Valid() {
		return TranslationRequest{}, &ValidationError{
			Field:   "direction",
			Message: fmt.Sprintf("unknown translation direction %q", mode),
		}
	}
	return TranslationRequest{Content: content, Direction: dir}, nil
}

// Mode returns the direction selection the request was built from.
func (r TranslationRequest) Mode() Mode {
	if r.AutoDetect || r.Direction == nil {
		return ModeAuto
	}
	return Mode(*r.Direction)
}

// contentError maps validator failures to user-facing messages.
func contentError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Field: "content", Message: err.Error()}
	}

	switch verrs[0].Tag() {
	case "required":
		return &ValidationError{Field: "content", Message: "please enter the content to translate"}
	case "min":
		return &ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content is too short, please provide more context (at least %d characters)", ContentMinLength),
		}
	case "max":
		return &ValidationError{
			Field:   "content",
			Message: fmt.Sprintf("content is too long, please keep it within %d characters", ContentMaxLength),
		}
	default:
		return &ValidationError{Field: "content", Message: verrs[0].Error()}
	}
}
