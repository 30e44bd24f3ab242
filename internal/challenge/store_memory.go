package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"idintake/pkg/platform/sentinel"
)

// Error contract shared by every store:
// - Consume returns sentinel.ErrNotFound for unknown or already used IDs
// - Consume returns sentinel.ErrExpired for expired challenges and deletes them
// - infrastructure failures are wrapped with context

// InMemoryStore keeps challenges in a map for tests and single instance
// deployments.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[string]*Challenge)}
}

func (s *InMemoryStore) Save(_ context.Context, c *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *c
	s.challenges[c.ID] = &copied
	return nil
}

// Consume removes and returns the challenge in one critical section, so
// two concurrent consumers never both succeed.
func (s *InMemoryStore) Consume(_ context.Context, id string, now time.Time) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	delete(s.challenges, id)
	if c.IsExpired(now) {
		return nil, fmt.Errorf("challenge expired: %w", sentinel.ErrExpired)
	}
	return c, nil
}

// DeleteExpired removes every challenge expired as of now.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for id, c := range s.challenges {
		if c.IsExpired(now) {
			delete(s.challenges, id)
			deleted++
		}
	}
	return deleted, nil
}

// StartSweeper runs DeleteExpired every interval until ctx is done.
func (s *InMemoryStore) StartSweeper(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if n, _ := s.DeleteExpired(ctx, now); n > 0 && logger != nil {
					logger.DebugContext(ctx, "expired challenges swept", "count", n)
				}
			}
		}
	}()
}
