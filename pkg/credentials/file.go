package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	// DefaultConfigDir is the directory under the XDG config home.
	DefaultConfigDir = "authsession"
	// CredentialsFileName is the name of the credentials file.
	CredentialsFileName = "credentials.json"
	// FilePermissions for the credentials file (read/write for owner only).
	FilePermissions = 0600
	// DirPermissions for the credentials directory.
	DirPermissions = 0700
)

// fileRecord is the on-disk layout of the credentials file.
type fileRecord struct {
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	User         *User     `json:"user,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// FileStore keeps credentials in a single JSON document.
//
// Writes go to a temporary file in the same directory which is then renamed
// over the target, so a crash never leaves a half-written document behind.
type FileStore struct {
	mu     sync.Mutex
	path   string
	closed bool
}

// NewFileStore creates a file-backed store. An empty path selects
// DefaultPath().
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// DefaultPath returns $XDG_CONFIG_HOME/authsession/credentials.json, falling
// back to ~/.config when XDG_CONFIG_HOME is unset.
func DefaultPath() (string, error) {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		configHome = filepath.Join(home, ".config")
	}

	return filepath.Join(configHome, DefaultConfigDir, CredentialsFileName), nil
}

// Path returns the location of the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

// Read implements Store.
func (s *FileStore) Read(_ context.Context) (*Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}

	rec, err := s.load()
	if err != nil {
		return nil, err
	}
	return &Credentials{
		AccessToken:  rec.AccessToken,
		RefreshToken: rec.RefreshToken,
		User:         rec.User,
	}, nil
}

// Write implements Store.
func (s *FileStore) Write(_ context.Context, creds *Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	return s.save(&fileRecord{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		User:         creds.User,
		UpdatedAt:    time.Now().UTC(),
	})
}

// Clear implements Store by removing the file.
func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credentials file: %w", err)
	}
	return nil
}

// Close implements Store.
func (s *FileStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// load reads the document from disk. A missing file is an empty record; an
// unparseable one is treated the same way so the user can simply log in again.
func (s *FileStore) load() (*fileRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &fileRecord{}, nil
		}
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	rec := &fileRecord{}
	if err := json.Unmarshal(data, rec); err != nil {
		return &fileRecord{}, nil
	}
	return rec, nil
}

// save writes the document atomically.
func (s *FileStore) save(rec *fileRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		return fmt.Errorf("cannot create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+CredentialsFileName+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if err := tmp.Chmod(FilePermissions); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace credentials file: %w", err)
	}
	return nil
}
