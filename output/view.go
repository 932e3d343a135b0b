// Package output accumulates streamed translation text and renders it for a
// display surface.
package output

import (
	"fmt"

	"github.com/ltwin/communication-translator/types"
)

// View is a complete snapshot of what the output area should show.
// Surfaces redraw from scratch on every View.
type View struct {
	// Placeholder is the empty-state hint. Non-empty only before any
	// content, annotation or error has been shown.
	Placeholder string
	// Annotation is the one-time auto-detection line shown ahead of Body.
	Annotation string
	// Meta is the detection result behind Annotation, for surfaces that
	// style confidence levels.
	Meta *types.Meta
	// Body is the formatted accumulated document.
	Body string
	// Error replaces Annotation and Body when set.
	Error string
	// Streaming reports whether the streaming indicator is on.
	Streaming bool
}

// Empty reports whether the view shows nothing but an optional placeholder.
func (v View) Empty() bool {
	return v.Annotation == "" && v.Body == "" && v.Error == ""
}

// Surface receives views to display.
type Surface interface {
	Show(v View)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(v View)

// Show calls f(v).
func (f SurfaceFunc) Show(v View) {
	f(v)
}

// Annotation formats the auto-detection line for m.
func Annotation(m types.Meta) string {
	return fmt.Sprintf("Auto-detected: %s (confidence: %d%%)", m.DetectedDirection.Label(), m.ConfidencePercent())
}
