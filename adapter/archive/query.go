package archive

import (
	"context"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"
)

// Entry is one archived session as read back from the dataset.
type Entry struct {
	SessionID         string  `json:"session_id" yaml:"session_id"`
	Day               string  `json:"day" yaml:"day"`
	Mode              string  `json:"mode" yaml:"mode"`
	State             string  `json:"state" yaml:"state"`
	Failure           string  `json:"failure,omitempty" yaml:"failure,omitempty"`
	DetectedDirection string  `json:"detected_direction,omitempty" yaml:"detected_direction,omitempty"`
	Confidence        float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	ContentLength     int     `json:"content_length" yaml:"content_length"`
	OutputLength      int     `json:"output_length" yaml:"output_length"`
	Timestamp         string  `json:"timestamp" yaml:"timestamp"`
	DurationMs        int64   `json:"duration_ms" yaml:"duration_ms"`
}

// Filter selects archived sessions by partition value. Empty fields match
// everything.
type Filter struct {
	Day   string
	Mode  string
	State string
}

// Recent returns up to limit archived sessions, newest first.
// A limit <= 0 returns all of them.
func (a *Archive) Recent(ctx context.Context, f Filter, limit int) ([]Entry, error) {
	snapshots, err := a.dataset.Snapshots(ctx)
	if err != nil {
		return nil, fmt.Errorf("archive snapshots: %w", err)
	}

	var out []Entry
	// Snapshots are ordered by creation time.
	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "day", f.Day) ||
			!snapshotMatches(snap, "mode", f.Mode) ||
			!snapshotMatches(snap, "state", f.State) {
			continue
		}

		data, err := a.dataset.Read(ctx, snap.ID)
		if err != nil {
			return out, fmt.Errorf("archive read %s: %w", snap.ID, err)
		}
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindSession {
				continue
			}
			e := fromRecordMap(record)
			if !f.matches(e) {
				continue
			}
			out = append(out, e)
			if limit > 0 && len(out) == limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// matches applies the filter to record fields. Manifest paths are only a
// coarse pre-filter.
func (f Filter) matches(e Entry) bool {
	return (f.Day == "" || e.Day == f.Day) &&
		(f.Mode == "" || e.Mode == f.Mode) &&
		(f.State == "" || e.State == f.State)
}

// snapshotMatches reports whether a snapshot holds a file in the key=value
// partition.
func snapshotMatches(snap *lode.DatasetSnapshot, key, value string) bool {
	if value == "" {
		return true
	}
	segment := key + "=" + value
	for _, f := range snap.Manifest.Files {
		for _, part := range strings.Split(f.Path, "/") {
			if part == segment {
				return true
			}
		}
	}
	return false
}

func fromRecordMap(r map[string]any) Entry {
	return Entry{
		SessionID:         toString(r["session_id"]),
		Day:               toString(r["day"]),
		Mode:              toString(r["mode"]),
		State:             toString(r["state"]),
		Failure:           toString(r["failure"]),
		DetectedDirection: toString(r["detected_direction"]),
		Confidence:        toFloat(r["confidence"]),
		ContentLength:     int(toFloat(r["content_length"])),
		OutputLength:      int(toFloat(r["output_length"])),
		Timestamp:         toString(r["timestamp"]),
		DurationMs:        int64(toFloat(r["duration_ms"])),
	}
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toFloat accepts decoded JSON numbers and the native ints of
// in-memory records.
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
