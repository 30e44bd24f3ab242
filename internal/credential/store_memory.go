package credential

import (
	"context"
	"slices"
	"sync"

	"idintake/pkg/platform/sentinel"
)

// InMemoryStore keeps credentials in process memory.
type InMemoryStore struct {
	mu          sync.RWMutex
	credentials map[string]Credential
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{credentials: make(map[string]Credential)}
}

// Save rejects a credential ID that is already registered.
func (s *InMemoryStore) Save(_ context.Context, c Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.credentials[c.ID]; exists {
		return sentinel.ErrConflict
	}
	c.PublicKey = slices.Clone(c.PublicKey)
	s.credentials[c.ID] = c
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.credentials[id]; ok {
		return c, nil
	}
	return Credential{}, sentinel.ErrNotFound
}

// ListBySubject returns the subject's credentials, oldest first.
func (s *InMemoryStore) ListBySubject(_ context.Context, subject string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Credential
	for _, c := range s.credentials {
		if c.Subject == subject {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b Credential) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}
