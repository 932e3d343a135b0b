// Package history keeps an append-only local log of finished translation
// sessions.
//
// The file is a sequence of records, each a 4-byte big-endian length prefix
// followed by a msgpack payload. A truncated trailing record is reported as
// fatal; records before it are still returned.
package history

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/ltwin/communication-translator/session"
)

// Record size constants.
const (
	// LengthPrefixSize is the size of the length prefix in bytes.
	LengthPrefixSize = 4
	// MaxRecordSize is the maximum payload size of one record (1 MiB).
	MaxRecordSize = 1 << 20
)

// RecordErrorKind classifies record decoding errors.
type RecordErrorKind int

const (
	// RecordErrorPartial indicates a truncated or incomplete record.
	RecordErrorPartial RecordErrorKind = iota
	// RecordErrorTooLarge indicates a record exceeding MaxRecordSize.
	RecordErrorTooLarge
	// RecordErrorDecode indicates a msgpack decoding error.
	RecordErrorDecode
)

// RecordError represents a record encoding or decoding error.
type RecordError struct {
	Kind RecordErrorKind
	Msg  string
	Err  error
}

func (e *RecordError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// IsFatal returns true if reading cannot continue past this error.
// Partial and oversized records are fatal.
func (e *RecordError) IsFatal() bool {
	return e.Kind == RecordErrorPartial || e.Kind == RecordErrorTooLarge
}

// IsFatalRecordError returns true if the error is a fatal record error.
func IsFatalRecordError(err error) bool {
	var recErr *RecordError
	if errors.As(err, &recErr) {
		return recErr.IsFatal()
	}
	return false
}

// Record is one finished session.
type Record struct {
	ID                string    `msgpack:"id" json:"id" yaml:"id"`
	Mode              string    `msgpack:"mode" json:"mode" yaml:"mode"`
	State             string    `msgpack:"state" json:"state" yaml:"state"`
	Failure           string    `msgpack:"failure,omitempty" json:"failure,omitempty" yaml:"failure,omitempty"`
	Reason            string    `msgpack:"reason,omitempty" json:"reason,omitempty" yaml:"reason,omitempty"`
	DetectedDirection string    `msgpack:"detected_direction,omitempty" json:"detected_direction,omitempty" yaml:"detected_direction,omitempty"`
	Confidence        float64   `msgpack:"confidence,omitempty" json:"confidence,omitempty" yaml:"confidence,omitempty"`
	Content           string    `msgpack:"content" json:"content" yaml:"content"`
	Output            string    `msgpack:"output" json:"output" yaml:"output"`
	Deltas            int       `msgpack:"deltas" json:"deltas" yaml:"deltas"`
	Bytes             int64     `msgpack:"bytes" json:"bytes" yaml:"bytes"`
	StartedAt         time.Time `msgpack:"started_at" json:"started_at" yaml:"started_at"`
	DurationMs        int64     `msgpack:"duration_ms" json:"duration_ms" yaml:"duration_ms"`
}

// FromSummary converts a session summary into a record.
func FromSummary(s session.Summary) Record {
	r := Record{
		ID:         s.SessionID,
		Mode:       string(s.Mode),
		State:      s.State.String(),
		Failure:    s.Failure,
		Reason:     s.Reason,
		Content:    s.Content,
		Output:     s.Output,
		Deltas:     s.Deltas,
		Bytes:      s.Bytes,
		StartedAt:  s.StartedAt.UTC(),
		DurationMs: s.Duration().Milliseconds(),
	}
	if s.Meta != nil {
		r.DetectedDirection = string(s.Meta.DetectedDirection)
		r.Confidence = s.Meta.Confidence
	}
	return r
}

// EncodeRecord encodes r as a length-prefixed msgpack record.
func EncodeRecord(r Record) ([]byte, error) {
	payload, err := msgpack.Marshal(&r)
	if err != nil {
		return nil, &RecordError{Kind: RecordErrorDecode, Msg: "failed to encode record", Err: err}
	}
	if len(payload) > MaxRecordSize {
		return nil, &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", len(payload), MaxRecordSize),
		}
	}
	buf := make([]byte, LengthPrefixSize+len(payload))
	binary.BigEndian.PutUint32(buf[:LengthPrefixSize], uint32(len(payload)))
	copy(buf[LengthPrefixSize:], payload)
	return buf, nil
}

// Decoder reads records from a stream.
type Decoder struct {
	reader io.Reader
}

// NewDecoder creates a new record decoder.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{reader: r}
}

// Next reads a single record.
//
// Errors:
//   - io.EOF: stream ended cleanly (no more records)
//   - *RecordError with Kind=RecordErrorPartial: incomplete record (fatal)
//   - *RecordError with Kind=RecordErrorTooLarge: record exceeds limit (fatal)
//   - *RecordError with Kind=RecordErrorDecode: payload is not a record
func (d *Decoder) Next() (*Record, error) {
	var lengthBuf [LengthPrefixSize]byte
	if _, err := io.ReadFull(d.reader, lengthBuf[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &RecordError{Kind: RecordErrorPartial, Msg: "failed to read length prefix", Err: err}
	}

	size := binary.BigEndian.Uint32(lengthBuf[:])
	if size > MaxRecordSize {
		return nil, &RecordError{
			Kind: RecordErrorTooLarge,
			Msg:  fmt.Sprintf("record size %d exceeds maximum %d", size, MaxRecordSize),
		}
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(d.reader, payload); err != nil {
		return nil, &RecordError{Kind: RecordErrorPartial, Msg: "failed to read record", Err: err}
	}

	var r Record
	if err := msgpack.Unmarshal(payload, &r); err != nil {
		return nil, &RecordError{Kind: RecordErrorDecode, Msg: "failed to decode record", Err: err}
	}
	return &r, nil
}
