package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gadget-hub/internal/models"
	"gadget-hub/internal/util"

	"go.uber.org/zap"
)

// Store is the single source of truth for "who is signed in". The session
// is persisted as a JSON file so it survives process restarts, the way a
// browser session survives navigation. Storage failures degrade to an
// anonymous session and are never surfaced to callers.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	current *models.Session
}

// NewStore creates a session store backed by the given file path. An empty
// path falls back to the user config directory.
func NewStore(path string) *Store {
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			path = filepath.Join(dir, "gadget-hub", "session.json")
		} else {
			path = filepath.Join(os.TempDir(), "gadget-hub-session.json")
		}
	}

	return &Store{
		path:   path,
		logger: util.GetLogger(),
	}
}

// Load reads the persisted session record. Malformed or partial records
// and storage failures all yield nil (anonymous); no error is raised.
// The loaded value becomes the in-memory snapshot.
func (s *Store) Load() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		s.current = nil
		return nil
	}

	var sess models.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		s.logger.Warn("Malformed session record, treating as anonymous",
			zap.String("path", s.path),
			zap.Error(err))
		s.current = nil
		return nil
	}

	if !sess.Valid() {
		s.current = nil
		return nil
	}

	s.current = &sess
	return s.snapshot()
}

// Save persists a fully-formed session, overwriting any prior value.
// Partial sessions violate the session invariant and are rejected.
// A storage write failure is logged, not returned: the in-memory snapshot
// is still replaced so the running process keeps its identity.
func (s *Store) Save(sess *models.Session) error {
	if !sess.Valid() {
		return fmt.Errorf("refusing to save partial session: user ID and email are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *sess
	s.current = &copied

	data, err := json.Marshal(&copied)
	if err != nil {
		s.logger.Warn("Failed to encode session", zap.Error(err))
		return nil
	}

	if err := s.writeFile(data); err != nil {
		s.logger.Warn("Failed to persist session, keeping in-memory only",
			zap.String("path", s.path),
			zap.Error(err))
	}
	return nil
}

// Clear removes any persisted session; subsequent Load returns anonymous.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.current = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("Failed to remove session file",
			zap.String("path", s.path),
			zap.Error(err))
	}
}

// Current returns the in-memory snapshot most recently loaded or saved.
// It does not re-read storage; call Load for that.
func (s *Store) Current() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// snapshot returns a copy so callers never hold a mutable reference to
// the stored record. Caller must hold s.mu.
func (s *Store) snapshot() *models.Session {
	if s.current == nil {
		return nil
	}
	copied := *s.current
	return &copied
}

// writeFile writes atomically via a temp file rename so a crash mid-write
// cannot leave a truncated record.
func (s *Store) writeFile(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "session-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}

	return os.Rename(tmpName, s.path)
}
