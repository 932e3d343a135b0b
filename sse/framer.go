// Package sse frames and decodes the translation service's event stream.
//
// The stream is a sequence of messages of the form "data: <payload>",
// separated by a blank line. Payloads are free text and may themselves
// contain blank lines, so a separator only counts when it is followed by
// the start of the next message or by the end of the stream.
package sse

import "strings"

// Wire constants.
const (
	// Prefix starts every message.
	Prefix = "data: "
	// Separator terminates a message when followed by Prefix or end of stream.
	Separator = "\n\n"
)

// Framer splits raw stream text into complete messages.
//
// Feed may be called with arbitrary substrings of the stream. Data after the
// last confirmed separator is retained until a later Feed or Flush resolves
// it. A Framer is not safe for concurrent use; one session owns it.
type Framer struct {
	// OnDiscard, if set, is called for fragments that do not start with Prefix.
	OnDiscard func(fragment string)

	buf string
	// scan is the offset in buf from which separator candidates still need
	// checking. Candidates before it were already rejected as payload text.
	scan int
}

// NewFramer creates a framer with an empty buffer.
func NewFramer() *Framer {
	return &Framer{}
}

// Feed appends chunk to the buffer and returns every message that is now
// complete, in stream order. Returned frames include the "data: " prefix.
func (f *Framer) Feed(chunk string) []string {
	f.buf += chunk

	var frames []string
	start := 0
	from := f.scan
	ambiguous := false

	for {
		idx := strings.Index(f.buf[from:], Separator)
		if idx < 0 {
			break
		}
		idx += from

		next := f.buf[idx+len(Separator):]
		if len(next) < len(Prefix) {
			if strings.HasPrefix(Prefix, next) {
				if isTerminal(f.buf[start:idx]) {
					// A terminal sentinel cannot continue; end of buffer ends it.
					frames = f.emit(frames, f.buf[start:idx])
					start = idx + len(Separator)
					from = start
					continue
				}
				// Lookahead is ambiguous until more data arrives.
				from = idx
				ambiguous = true
				break
			}
			from = idx + 1
			continue
		}
		if !strings.HasPrefix(next, Prefix) {
			// Blank line inside a payload.
			from = idx + 1
			continue
		}

		frames = f.emit(frames, f.buf[start:idx])
		start = idx + len(Separator)
		from = start
	}

	if !ambiguous {
		// Only a trailing "\n" can start a separator that the next chunk completes.
		from = max(from, len(f.buf)-1)
	}

	f.buf = f.buf[start:]
	f.scan = max(from-start, 0)
	return frames
}

// Flush returns the retained tail at end of stream. The end of the stream
// terminates the last message, so one trailing separator is dropped.
func (f *Framer) Flush() []string {
	tail := strings.TrimSuffix(f.buf, Separator)
	f.Reset()
	return f.emit(nil, tail)
}

// Reset discards any retained data.
func (f *Framer) Reset() {
	f.buf = ""
	f.scan = 0
}

// Buffered returns the number of retained bytes.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

func (f *Framer) emit(frames []string, msg string) []string {
	if msg == "" {
		return frames
	}
	if !strings.HasPrefix(msg, Prefix) {
		if f.OnDiscard != nil {
			f.OnDiscard(msg)
		}
		return frames
	}
	return append(frames, msg)
}

// isTerminal reports whether msg is a [DONE] or [ERROR] message.
func isTerminal(msg string) bool {
	payload, ok := strings.CutPrefix(msg, Prefix)
	return ok && (payload == DoneToken || strings.HasPrefix(payload, ErrorPrefix))
}
