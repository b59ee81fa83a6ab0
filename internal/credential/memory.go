package credential

import (
	"context"
	"sync"
)

// MemoryStore keeps the credential in process memory only
type MemoryStore struct {
	mu   sync.RWMutex
	cred *Credential
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(ctx context.Context) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.cred == nil {
		return nil, ErrNotFound
	}
	c := *s.cred
	return &c, nil
}

func (s *MemoryStore) Save(ctx context.Context, c *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *c
	s.cred = &stored
	return nil
}

func (s *MemoryStore) Close() error { return nil }
