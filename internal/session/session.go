// Package session persists the bearer token between invocations.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Veraticus/till/internal/common"
)

// Session is the saved login state.
type Session struct {
	SavedAt      time.Time `json:"saved_at"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
}

// Store reads and writes the session file.
type Store struct {
	path string
}

// NewStore returns a store backed by path. An empty path selects the default
// location under the XDG data directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		var err error
		path, err = DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return &Store{path: path}, nil
}

// DefaultPath returns $XDG_DATA_HOME/till/session.json, falling back to
// ~/.local/share.
func DefaultPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "till", "session.json"), nil
}

// Path is the file the store uses.
func (s *Store) Path() string {
	return s.path
}

// Load returns the saved session or common.ErrNoSession.
func (s *Store) Load() (*Session, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, common.ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session file %s: %w", s.path, err)
	}
	if sess.AccessToken == "" {
		return nil, common.ErrNoSession
	}

	return &sess, nil
}

// Save writes the session, readable by the owner only.
func (s *Store) Save(sess *Session) error {
	if sess == nil || sess.AccessToken == "" {
		return fmt.Errorf("%w: session has no access token", common.ErrInvalidConfig)
	}
	if sess.SavedAt.IsZero() {
		sess.SavedAt = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}

	slog.Debug("Saved session", "path", s.path, "email", sess.Email)
	return nil
}

// Clear removes the saved session. Clearing a missing session is not an
// error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session: %w", err)
	}
	return nil
}
