package persist

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/winnow-sh/winnow/internal/session"
)

// Store persists session documents under a directory, one file per
// session id. Writes to the same file are serialized first-in-first-out.
type Store struct {
	dir string

	mu    sync.Mutex
	tails map[string]chan struct{} // path -> completion of the latest queued write
}

// NewStore returns a store rooted at dir. The directory is created on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir, tails: make(map[string]chan struct{})}
}

// Path returns the file path for a session id.
func (s *Store) Path(sessionID string) string {
	return filepath.Join(s.dir, sanitize(sessionID)+".json")
}

// Save writes the state's document to disk. The destination file is never
// observed half-written: content goes to a temp file in the same
// directory, then an atomic rename. Failures are logged and absorbed; the
// in-memory state stays authoritative until the next save succeeds.
func (s *Store) Save(st *session.State) {
	if st == nil {
		return
	}
	path := s.Path(st.ID)
	doc := snapshot(st)

	release := s.acquire(path)
	defer release()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		slog.Warn("Failed to marshal session state", "session_id", st.ID, "error", err)
		return
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		slog.Warn("Failed to create state directory", "dir", s.dir, "error", err)
		return
	}

	tmp, err := os.CreateTemp(s.dir, ".session-*.json.tmp")
	if err != nil {
		slog.Warn("Failed to create temp state file", "session_id", st.ID, "error", err)
		return
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		slog.Warn("Failed to write session state", "session_id", st.ID, "error", err)
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		slog.Warn("Failed to close temp state file", "session_id", st.ID, "error", err)
		return
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		slog.Warn("Failed to rename state file into place", "session_id", st.ID, "error", err)
		return
	}
}

// Load reads and validates the persisted document for a session id.
// Missing, corrupt, and legacy-schema files all report no state.
func (s *Store) Load(sessionID string) (*Document, bool) {
	path := s.Path(sessionID)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read session state", "session_id", sessionID, "error", err)
		}
		return nil, false
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		slog.Warn("Session state file is corrupt, starting fresh", "session_id", sessionID, "error", err)
		return nil, false
	}
	if !doc.valid() {
		slog.Warn("Session state file has an incompatible schema, starting fresh",
			"session_id", sessionID,
			"version", doc.Version,
		)
		return nil, false
	}
	return &doc, true
}

// LoadInto restores persisted state into st. Implements session.Loader.
func (s *Store) LoadInto(st *session.State) bool {
	doc, ok := s.Load(st.ID)
	if !ok {
		return false
	}
	apply(doc, st)
	return true
}

// acquire joins the FIFO write queue for path and blocks until every
// prior queued write has finished. The returned release must be called
// exactly once; a failed prior write never blocks the next.
func (s *Store) acquire(path string) func() {
	done := make(chan struct{})

	s.mu.Lock()
	prev := s.tails[path]
	s.tails[path] = done
	s.mu.Unlock()

	if prev != nil {
		<-prev
	}
	return func() { close(done) }
}

// sanitize makes a session id safe to use as a file name.
func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '-'
		}
	}, id)
}
