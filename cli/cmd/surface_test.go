package cmd

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ltwin/communication-translator/output"
	"github.com/ltwin/communication-translator/types"
)

func TestStreamSurface_Incremental(t *testing.T) {
	var out, errOut bytes.Buffer
	s := newStreamSurface(&out, &errOut, true, true)

	meta := &types.Meta{DetectedDirection: types.DirectionDevToProduct, Confidence: 0.6}
	s.Show(output.View{Placeholder: "hint"})
	s.Show(output.View{Streaming: true})
	s.Show(output.View{Annotation: "Auto-detected: x", Meta: meta, Streaming: true})
	s.Show(output.View{Annotation: "Auto-detected: x", Meta: meta, Body: "A", Streaming: true})
	s.Show(output.View{Annotation: "Auto-detected: x", Meta: meta, Body: "AB", Streaming: true})
	s.Show(output.View{Annotation: "Auto-detected: x", Meta: meta, Body: "AB"})
	s.Finish()

	if out.String() != "AB\n" {
		t.Errorf("stdout = %q, want %q", out.String(), "AB\n")
	}
	if errOut.String() != "Auto-detected: x\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestStreamSurface_Formatted(t *testing.T) {
	var out, errOut bytes.Buffer
	s := newStreamSurface(&out, &errOut, false, true)

	s.Show(output.View{Streaming: true})
	s.Show(output.View{Body: "# A", Streaming: true})
	s.Show(output.View{Body: "# AB", Streaming: true})
	s.Show(output.View{Body: "# AB"})
	s.Show(output.View{Body: "# AB"})
	s.Finish()

	if out.String() != "# AB\n" {
		t.Errorf("stdout = %q", out.String())
	}
}

func TestStreamSurface_ErrorAfterPartial(t *testing.T) {
	var out, errOut bytes.Buffer
	s := newStreamSurface(&out, &errOut, true, true)

	s.Show(output.View{Body: "partial", Streaming: true})
	s.Show(output.View{Error: "boom"})
	s.Show(output.View{Error: "boom"})

	if out.String() != "partial\n" {
		t.Errorf("stdout = %q", out.String())
	}
	if errOut.String() != "Error: boom\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestStreamSurface_Copied(t *testing.T) {
	var out, errOut bytes.Buffer
	s := newStreamSurface(&out, &errOut, true, true)

	s.copied("out.md", nil)
	s.copied("s3://bucket/x", errors.New("denied"))

	want := "Exported to out.md\nExport to s3://bucket/x failed: denied\n"
	if errOut.String() != want {
		t.Errorf("stderr = %q, want %q", errOut.String(), want)
	}
}

func TestStreamSurface_FormattedErrorDropsPartial(t *testing.T) {
	var out, errOut bytes.Buffer
	s := newStreamSurface(&out, &errOut, false, true)

	s.Show(output.View{Streaming: true})
	s.Show(output.View{Body: "PARTIAL TEXT", Streaming: true})
	s.Show(output.View{Error: "model overloaded"})
	s.Finish()

	if out.String() != "" {
		t.Errorf("stdout = %q, want nothing", out.String())
	}
	if errOut.String() != "Error: model overloaded\n" {
		t.Errorf("stderr = %q", errOut.String())
	}
}
