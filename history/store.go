package history

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ltwin/communication-translator/iox"
	"github.com/ltwin/communication-translator/log"
	"github.com/ltwin/communication-translator/session"
)

// FileName is the history file name inside the state directory.
const FileName = "history.bin"

// ErrNotFound is returned when no record matches an ID.
var ErrNotFound = errors.New("history record not found")

// DefaultPath resolves the history file location:
// $COMMTRANS_HOME, then $XDG_STATE_HOME/commtrans, then
// ~/.local/state/commtrans.
func DefaultPath() (string, error) {
	if dir := os.Getenv("COMMTRANS_HOME"); dir != "" {
		return filepath.Join(dir, FileName), nil
	}
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "commtrans", FileName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve history path: %w", err)
	}
	return filepath.Join(home, ".local", "state", "commtrans", FileName), nil
}

// Store is an append-only history file. Safe for concurrent use within one
// process.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore creates a store backed by path. The file is created on first
// append.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Append writes r at the end of the file.
func (s *Store) Append(r Record) error {
	buf, err := EncodeRecord(r)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create history dir: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	if _, err := f.Write(buf); err != nil {
		iox.DiscardClose(f)
		return fmt.Errorf("append history: %w", err)
	}
	return f.Close()
}

// List returns all records, oldest first. A missing file yields no records.
// On a read error the records decoded so far are returned with the error.
func (s *Store) List() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open history: %w", err)
	}
	defer iox.DiscardClose(f)

	var records []Record
	dec := NewDecoder(f)
	for {
		r, err := dec.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return records, fmt.Errorf("read history %s: %w", s.path, err)
		}
		records = append(records, *r)
	}
}

// Get returns the record whose ID equals id or uniquely starts with it.
func (s *Store) Get(id string) (*Record, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	records, err := s.List()
	if err != nil && len(records) == 0 {
		return nil, err
	}

	var match *Record
	for i := range records {
		r := &records[i]
		if r.ID == id {
			return r, nil
		}
		if strings.HasPrefix(r.ID, id) {
			if match != nil {
				return nil, fmt.Errorf("ambiguous history ID prefix %q", id)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return match, nil
}

// Recorder appends every finished session to a store.
type Recorder struct {
	store  *Store
	logger *log.Logger
}

// NewRecorder creates a recorder. A nil logger discards append failures.
func NewRecorder(store *Store, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Recorder{store: store, logger: logger}
}

// SessionFinished records s. Failures are logged, never surfaced to the UI.
func (r *Recorder) SessionFinished(s session.Summary) {
	if err := r.store.Append(FromSummary(s)); err != nil {
		r.logger.Warn("failed to record history", map[string]any{
			"session_id": s.SessionID,
			"path":       r.store.Path(),
			"error":      err.Error(),
		})
	}
}

var _ session.Observer = (*Recorder)(nil)
