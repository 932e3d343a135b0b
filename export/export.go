// Package export delivers the final translated text to a sink: the terminal
// clipboard, a local file, a writer or an S3 object.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-osc52/v2"
)

// ErrEmpty is returned when there is no text to export.
var ErrEmpty = errors.New("nothing to export yet")

// Exporter consumes the final text of a session.
type Exporter interface {
	// Export delivers text. Must respect context cancellation.
	Export(ctx context.Context, text string) error
	// Target describes the destination for status messages.
	Target() string
}

// Clipboard copies text to the system clipboard with an OSC 52 escape
// sequence written to the terminal.
type Clipboard struct {
	// Out is the terminal. Nil means os.Stderr.
	Out io.Writer
	// Tmux wraps the sequence for tmux passthrough.
	Tmux bool
}

// Export writes the clipboard sequence.
func (c Clipboard) Export(_ context.Context, text string) error {
	if text == "" {
		return ErrEmpty
	}
	out := c.Out
	if out == nil {
		out = os.Stderr
	}
	seq := osc52.New(text)
	if c.Tmux {
		seq = seq.Tmux()
	}
	if _, err := seq.WriteTo(out); err != nil {
		return fmt.Errorf("clipboard: %w", err)
	}
	return nil
}

// Target returns "clipboard".
func (Clipboard) Target() string {
	return "clipboard"
}

// File writes text to a local file, creating parent directories.
type File struct {
	Path string
}

// Export writes the file, replacing any existing content.
func (f File) Export(_ context.Context, text string) error {
	if text == "" {
		return ErrEmpty
	}
	if dir := filepath.Dir(f.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("export file: %w", err)
		}
	}
	if err := os.WriteFile(f.Path, []byte(text), 0o644); err != nil {
		return fmt.Errorf("export file: %w", err)
	}
	return nil
}

// Target returns the file path.
func (f File) Target() string {
	return f.Path
}

// Writer writes text to an arbitrary writer, typically stdout.
type Writer struct {
	W    io.Writer
	Name string
}

// Export writes text followed by a newline.
func (w Writer) Export(_ context.Context, text string) error {
	if text == "" {
		return ErrEmpty
	}
	if _, err := io.WriteString(w.W, text+"\n"); err != nil {
		return fmt.Errorf("export %s: %w", w.Target(), err)
	}
	return nil
}

// Target returns the writer name.
func (w Writer) Target() string {
	if w.Name == "" {
		return "stdout"
	}
	return w.Name
}

// Options carries sink settings that a target string cannot express.
type Options struct {
	// Stdout receives "-" exports. Nil means os.Stdout.
	Stdout io.Writer
	// Terminal receives clipboard sequences. Nil means os.Stderr.
	Terminal io.Writer
	// S3 configures s3:// targets. Bucket and Prefix come from the target.
	S3 S3Config
}

// Parse resolves a target string into an exporter:
//
//	clipboard            terminal clipboard (OSC 52)
//	-                    stdout
//	s3://bucket/prefix   S3 object under prefix
//	file://path, path    local file
func Parse(ctx context.Context, target string, opts Options) (Exporter, error) {
	target = strings.TrimSpace(target)
	switch {
	case target == "":
		return nil, errors.New("export target is empty")
	case target == "clipboard":
		return Clipboard{Out: opts.Terminal, Tmux: os.Getenv("TMUX") != ""}, nil
	case target == "-":
		out := opts.Stdout
		if out == nil {
			out = os.Stdout
		}
		return Writer{W: out}, nil
	case strings.HasPrefix(target, "s3://"):
		cfg := opts.S3
		cfg.Bucket, cfg.Prefix = ParseS3Path(strings.TrimPrefix(target, "s3://"))
		return NewS3(ctx, cfg)
	case strings.HasPrefix(target, "file://"):
		return File{Path: strings.TrimPrefix(target, "file://")}, nil
	default:
		return File{Path: target}, nil
	}
}
