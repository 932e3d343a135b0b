package output

import (
	"errors"
	"strings"
	"testing"

	"github.com/ltwin/communication-translator/types"
)

type recordingSurface struct {
	views []View
}

func (s *recordingSurface) Show(v View) {
	s.views = append(s.views, v)
}

func (s *recordingSurface) last() View {
	if len(s.views) == 0 {
		return View{}
	}
	return s.views[len(s.views)-1]
}

type failingFormatter struct{}

func (failingFormatter) Format(string) (string, error) {
	return "", errors.New("boom")
}

type upperFormatter struct{}

func (upperFormatter) Format(text string) (string, error) {
	return strings.ToUpper(text), nil
}

func TestRenderer_AccumulatesDeltas(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)

	for _, d := range []string{"A", "B", "C"} {
		r.OnTextDelta(d)
	}

	if got := r.FinalText(); got != "ABC" {
		t.Errorf("FinalText() = %q, want %q", got, "ABC")
	}
	if got := surface.last().Body; got != "ABC" {
		t.Errorf("Body = %q, want %q", got, "ABC")
	}
	if len(surface.views) != 3 {
		t.Errorf("got %d views, want one per delta", len(surface.views))
	}
}

func TestRenderer_FinalTextBeforeContent(t *testing.T) {
	r := NewRenderer(nil, nil, nil)
	if got := r.FinalText(); got != "" {
		t.Errorf("FinalText() = %q, want empty", got)
	}
}

func TestRenderer_ReformatsWholeDocument(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(upperFormatter{}, surface, nil)

	r.OnTextDelta("hello ")
	r.OnTextDelta("world")

	if got := surface.last().Body; got != "HELLO WORLD" {
		t.Errorf("Body = %q, want %q", got, "HELLO WORLD")
	}
	if got := r.FinalText(); got != "hello world" {
		t.Errorf("FinalText() = %q, want raw text", got)
	}
}

func TestRenderer_PlaceholderRemovedByContent(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)

	r.SetPlaceholder("type something")
	if got := surface.last().Placeholder; got != "type something" {
		t.Fatalf("Placeholder = %q", got)
	}

	r.OnTextDelta("x")
	if got := surface.last().Placeholder; got != "" {
		t.Errorf("Placeholder = %q after delta, want removed", got)
	}
}

func TestRenderer_MetaOncePerSession(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)
	r.SetPlaceholder("hint")

	first := types.Meta{DetectedDirection: types.DirectionDevToProduct, Confidence: 0.92}
	if !r.OnMeta(first) {
		t.Fatal("first OnMeta() = false")
	}
	v := surface.last()
	if v.Placeholder != "" {
		t.Error("placeholder should be removed before the annotation")
	}
	if !strings.Contains(v.Annotation, "92%") || v.Meta == nil || v.Meta.ConfidenceLevel() != "high" {
		t.Errorf("annotation = %q, meta = %+v", v.Annotation, v.Meta)
	}

	if r.OnMeta(types.Meta{DetectedDirection: types.DirectionProductToDev, Confidence: 0.5}) {
		t.Error("second OnMeta() = true, want ignored")
	}
	if got := surface.last().Meta.DetectedDirection; got != types.DirectionDevToProduct {
		t.Errorf("DetectedDirection = %q, want first meta kept", got)
	}

	r.OnTextDelta("text")
	if r.FinalText() != "text" {
		t.Errorf("annotation must not be part of FinalText(), got %q", r.FinalText())
	}
	if surface.last().Annotation == "" {
		t.Error("annotation should stay ahead of the document")
	}
}

func TestRenderer_Clear(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)
	r.SetPlaceholder("hint")
	r.Begin()
	r.OnMeta(types.Meta{DetectedDirection: types.DirectionProductToDev, Confidence: 0.7})
	r.OnTextDelta("old")

	r.Clear()

	v := surface.last()
	if !v.Empty() || v.Streaming || v.Placeholder != "" {
		t.Errorf("view after Clear() = %+v, want empty", v)
	}
	if r.FinalText() != "" {
		t.Errorf("FinalText() = %q after Clear()", r.FinalText())
	}
	if !r.OnMeta(types.Meta{DetectedDirection: types.DirectionProductToDev, Confidence: 0.7}) {
		t.Error("meta should be accepted again after Clear()")
	}
}

func TestRenderer_BeginFinish(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)

	r.Begin()
	if !surface.last().Streaming {
		t.Error("Streaming = false after Begin()")
	}
	r.Finish()
	if surface.last().Streaming {
		t.Error("Streaming = true after Finish()")
	}
}

func TestRenderer_ShowErrorReplacesOutput(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(Plain{}, surface, nil)
	r.Begin()
	r.OnMeta(types.Meta{DetectedDirection: types.DirectionProductToDev, Confidence: 0.9})
	r.OnTextDelta("partial")

	r.ShowError("bad input")

	v := surface.last()
	if v.Error != "bad input" {
		t.Errorf("Error = %q", v.Error)
	}
	if v.Body != "" || v.Annotation != "" || v.Streaming {
		t.Errorf("view = %+v, want only the error", v)
	}
	if r.FinalText() != "partial" {
		t.Errorf("FinalText() = %q, want partial text retained", r.FinalText())
	}
}

func TestRenderer_FormatterFailureFallsBack(t *testing.T) {
	surface := &recordingSurface{}
	r := NewRenderer(failingFormatter{}, surface, nil)

	r.OnTextDelta("**raw**")

	if got := surface.last().Body; got != "**raw**" {
		t.Errorf("Body = %q, want plain fallback", got)
	}
}

type themedFormatter struct {
	theme Theme
}

func (f *themedFormatter) Format(text string) (string, error) {
	return string(f.theme) + ":" + text, nil
}

func (f *themedFormatter) SetTheme(t Theme) error {
	f.theme = t
	return nil
}

func TestRenderer_SetThemeRerenders(t *testing.T) {
	surface := &recordingSurface{}
	f := &themedFormatter{theme: ThemeDark}
	r := NewRenderer(f, surface, nil)
	r.OnTextDelta("doc")

	r.SetTheme(ThemeLight)

	if got := surface.last().Body; got != "light:doc" {
		t.Errorf("Body = %q, want %q", got, "light:doc")
	}
}
