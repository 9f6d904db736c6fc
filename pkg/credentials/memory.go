package credentials

import (
	"context"
	"sync"
)

// MemoryStore keeps credentials in process memory. Nothing survives a
// restart; it backs tests and the "memory" backend.
type MemoryStore struct {
	mu     sync.RWMutex
	creds  *Credentials
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Read(_ context.Context) (*Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.creds == nil {
		return &Credentials{}, nil
	}
	return s.creds.Clone(), nil
}

func (s *MemoryStore) Write(_ context.Context, creds *Credentials) error {
	if err := validate(creds); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.creds = creds.Clone()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.creds = nil
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
