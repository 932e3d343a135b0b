package output

import (
	"strings"

	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/types"
)

// Renderer accumulates text deltas for one session at a time and pushes a
// fresh View to its Surface after every change.
//
// Every delta re-formats the whole document. This is quadratic over a long
// stream, which is acceptable for translation-sized output and keeps
// markdown constructs that span deltas correct.
//
// A Renderer is owned by the session controller and is not safe for
// concurrent use.
type Renderer struct {
	formatter Formatter
	surface   Surface
	logger    *log.Logger

	placeholder     string
	showPlaceholder bool

	fragments []string
	meta      *types.Meta
	body      string
	errMsg    string
	streaming bool
}

// NewRenderer creates a renderer. A nil formatter means Plain, a nil surface
// discards views, and a nil logger discards formatter warnings.
func NewRenderer(formatter Formatter, surface Surface, logger *log.Logger) *Renderer {
	if formatter == nil {
		formatter = Plain{}
	}
	if surface == nil {
		surface = SurfaceFunc(func(View) {})
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Renderer{formatter: formatter, surface: surface, logger: logger}
}

// SetPlaceholder sets the empty-state hint and shows it if the output area
// is empty.
func (r *Renderer) SetPlaceholder(text string) {
	r.placeholder = text
	r.showPlaceholder = len(r.fragments) == 0 && r.meta == nil && r.errMsg == ""
	r.push()
}

// OnTextDelta removes the placeholder, appends text and re-renders.
func (r *Renderer) OnTextDelta(text string) {
	r.showPlaceholder = false
	r.fragments = append(r.fragments, text)
	r.body = r.format(r.FinalText())
	r.push()
}

// OnMeta renders the auto-detection annotation ahead of the document.
// Only the first meta of a session is shown; it reports whether m was used.
func (r *Renderer) OnMeta(m types.Meta) bool {
	r.showPlaceholder = false
	if r.meta != nil {
		return false
	}
	r.meta = &m
	r.push()
	return true
}

// FinalText returns the accumulated document, or "" before any content.
func (r *Renderer) FinalText() string {
	return strings.Join(r.fragments, "")
}

// Clear resets the document, annotation and error, and turns the streaming
// indicator off. The placeholder is not restored.
func (r *Renderer) Clear() {
	r.fragments = nil
	r.meta = nil
	r.body = ""
	r.errMsg = ""
	r.streaming = false
	r.showPlaceholder = false
	r.push()
}

// Begin turns the streaming indicator on.
func (r *Renderer) Begin() {
	r.streaming = true
	r.push()
}

// Finish turns the streaming indicator off.
func (r *Renderer) Finish() {
	r.streaming = false
	r.push()
}

// ShowError replaces the visible output with msg. Accumulated fragments are
// kept so FinalText still reports what arrived before the failure.
func (r *Renderer) ShowError(msg string) {
	r.showPlaceholder = false
	r.errMsg = msg
	r.streaming = false
	r.push()
}

// SetTheme forwards the theme to a themed formatter and re-renders.
func (r *Renderer) SetTheme(t Theme) {
	themed, ok := r.formatter.(Themed)
	if !ok {
		return
	}
	if err := themed.SetTheme(t); err != nil {
		r.logger.Warn("formatter theme change failed", map[string]any{
			"theme": string(t),
			"error": err.Error(),
		})
		return
	}
	if len(r.fragments) > 0 {
		r.body = r.format(r.FinalText())
	}
	r.push()
}

// View returns the current view.
func (r *Renderer) View() View {
	v := View{Streaming: r.streaming}
	if r.showPlaceholder {
		v.Placeholder = r.placeholder
	}
	if r.errMsg != "" {
		v.Error = r.errMsg
		return v
	}
	if r.meta != nil {
		m := *r.meta
		v.Meta = &m
		v.Annotation = Annotation(m)
	}
	v.Body = r.body
	return v
}

func (r *Renderer) format(text string) string {
	out, err := r.formatter.Format(text)
	if err != nil {
		r.logger.Warn("formatter failed, falling back to plain text", map[string]any{
			"error": err.Error(),
		})
		return text
	}
	return out
}

func (r *Renderer) push() {
	r.surface.Show(r.View())
}
