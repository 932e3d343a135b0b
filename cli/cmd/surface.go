package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ltwin/communication-translator/output"
)

// streamSurface prints views for the headless translate command. The
// document goes to out; annotation, errors and export notices go to errOut.
//
// When incremental, each new body suffix is written as it arrives. Otherwise
// the finished body is written once when streaming stops, since formatted
// documents are re-rendered from scratch on every delta.
type streamSurface struct {
	out         io.Writer
	errOut      io.Writer
	incremental bool

	info  *color.Color
	muted *color.Color
	fail  *color.Color

	printed   string
	annotated bool
	lastError string
	wrote     bool
}

func newStreamSurface(out, errOut io.Writer, incremental, noColor bool) *streamSurface {
	s := &streamSurface{
		out:         out,
		errOut:      errOut,
		incremental: incremental,
		info:        color.New(color.FgCyan),
		muted:       color.New(color.Faint),
		fail:        color.New(color.FgRed, color.Bold),
	}
	if noColor {
		s.info.DisableColor()
		s.muted.DisableColor()
		s.fail.DisableColor()
	}
	return s
}

// Show implements output.Surface.
func (s *streamSurface) Show(v output.View) {
	if v.Error != "" {
		if v.Error != s.lastError {
			s.lastError = v.Error
			s.endLine()
			s.fail.Fprintln(s.errOut, "Error: "+v.Error)
		}
		return
	}

	if v.Annotation != "" && !s.annotated {
		s.annotated = true
		s.info.Fprintln(s.errOut, v.Annotation)
		if v.Meta != nil && v.Meta.Reasoning != "" {
			s.muted.Fprintln(s.errOut, v.Meta.Reasoning)
		}
	}

	switch {
	case s.incremental:
		if len(v.Body) > len(s.printed) && strings.HasPrefix(v.Body, s.printed) {
			_, _ = io.WriteString(s.out, v.Body[len(s.printed):])
			s.printed = v.Body
		}
	case !v.Streaming && v.Body != "" && !s.wrote:
		s.wrote = true
		fmt.Fprintln(s.out, v.Body)
	}
}

// Finish terminates a partially written line.
func (s *streamSurface) Finish() {
	s.endLine()
}

func (s *streamSurface) endLine() {
	if s.printed != "" && !strings.HasSuffix(s.printed, "\n") {
		fmt.Fprintln(s.out)
		s.printed += "\n"
	}
}

// copied reports an export result.
func (s *streamSurface) copied(target string, err error) {
	if err != nil {
		s.fail.Fprintf(s.errOut, "Export to %s failed: %v\n", target, err)
		return
	}
	s.muted.Fprintf(s.errOut, "Exported to %s\n", target)
}

var _ output.Surface = (*streamSurface)(nil)
