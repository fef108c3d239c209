package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Jaydccq/mini-ups-sub001/internal/domain"
)

const sessionFileName = "session.json"

// SessionFileRepository implements ports.SessionRepository using a JSON file.
type SessionFileRepository struct {
	dir string
}

// NewSessionFileRepository creates a repository storing its file in dir.
func NewSessionFileRepository(dir string) *SessionFileRepository {
	return &SessionFileRepository{dir: dir}
}

// Load retrieves the last saved session from disk.
// Returns an empty session and nil error if no file exists.
func (r *SessionFileRepository) Load(ctx context.Context) (domain.Session, error) {
	data, err := os.ReadFile(r.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Session{}, nil
		}
		return domain.Session{}, err
	}

	var sess domain.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return domain.Session{}, fmt.Errorf("parse %s: %w", r.Path(), err)
	}
	return sess, nil
}

// Save persists the session atomically (temp file, then rename).
func (r *SessionFileRepository) Save(ctx context.Context, sess domain.Session) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return err
	}

	path := r.Path()
	tmp := path + ".tmp"

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Path returns the full path to the session file.
func (r *SessionFileRepository) Path() string {
	return filepath.Join(r.dir, sessionFileName)
}
