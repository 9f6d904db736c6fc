package credentials

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Backend names accepted by Open.
const (
	BackendFile     = "file"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Backends lists every supported backend name.
var Backends = []string{BackendFile, BackendBadger, BackendSQLite, BackendPostgres, BackendMemory}

// Config selects and configures a credential backend.
type Config struct {
	// Backend is one of file, badger, sqlite, postgres, memory. Default: file.
	Backend string `mapstructure:"backend" yaml:"backend" validate:"omitempty,oneof=file badger sqlite postgres memory"`

	// Path is the file path (file, sqlite) or directory (badger).
	// Empty selects a location under $XDG_CONFIG_HOME/authsession.
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
}

// ResolvedPath returns Path, or the backend's default location.
func (c Config) ResolvedPath() (string, error) {
	if c.Path != "" {
		return c.Path, nil
	}
	def, err := DefaultPath()
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(def)
	switch c.backend() {
	case BackendBadger:
		return filepath.Join(dir, "credentials.badger"), nil
	case BackendSQLite:
		return filepath.Join(dir, "credentials.db"), nil
	default:
		return def, nil
	}
}

func (c Config) backend() string {
	b := strings.ToLower(strings.TrimSpace(c.Backend))
	if b == "" {
		return BackendFile
	}
	return b
}

// Open creates the Store selected by cfg.
func Open(cfg Config) (Store, error) {
	backend := cfg.backend()

	switch backend {
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendPostgres:
		return NewPostgresStore(cfg.Postgres)
	case BackendFile, BackendBadger, BackendSQLite:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}

	path, err := cfg.ResolvedPath()
	if err != nil {
		return nil, err
	}

	switch backend {
	case BackendBadger:
		return NewBadgerStore(path)
	case BackendSQLite:
		return NewSQLiteStore(path)
	default:
		return NewFileStore(path)
	}
}
