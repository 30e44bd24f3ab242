package challenge

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"idintake/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
	now   time.Time
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
	s.now = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func (s *InMemoryStoreSuite) newChallenge() *Challenge {
	c, err := New("attempt-1", s.now, 5*time.Minute)
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(s.ctx, c))
	return c
}

func (s *InMemoryStoreSuite) TestConsumeOnce() {
	c := s.newChallenge()

	got, err := s.store.Consume(s.ctx, c.ID, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Equal(c.Value, got.Value)
	s.Equal("attempt-1", got.Subject)

	_, err = s.store.Consume(s.ctx, c.ID, s.now.Add(time.Minute))
	s.ErrorIs(err, sentinel.ErrNotFound, "replay is rejected")
}

func (s *InMemoryStoreSuite) TestExpired() {
	c := s.newChallenge()

	_, err := s.store.Consume(s.ctx, c.ID, c.ExpiresAt)
	s.ErrorIs(err, sentinel.ErrExpired)

	_, err = s.store.Consume(s.ctx, c.ID, s.now)
	s.ErrorIs(err, sentinel.ErrNotFound, "expired challenge is deleted on consume")
}

func (s *InMemoryStoreSuite) TestUnknown() {
	_, err := s.store.Consume(s.ctx, "missing", s.now)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestConcurrentConsumeHasOneWinner() {
	c := s.newChallenge()

	var wg sync.WaitGroup
	var wins atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.store.Consume(s.ctx, c.ID, s.now); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	s.Equal(int32(1), wins.Load())
}

func (s *InMemoryStoreSuite) TestDeleteExpired() {
	s.newChallenge()
	s.newChallenge()

	n, err := s.store.DeleteExpired(s.ctx, s.now.Add(time.Minute))
	s.Require().NoError(err)
	s.Zero(n)

	n, err = s.store.DeleteExpired(s.ctx, s.now.Add(10*time.Minute))
	s.Require().NoError(err)
	s.Equal(2, n)
}

func (s *InMemoryStoreSuite) TestSaveCopies() {
	c := s.newChallenge()
	c.Subject = "mutated"

	got, err := s.store.Consume(s.ctx, c.ID, s.now)
	s.Require().NoError(err)
	s.Equal("attempt-1", got.Subject)
}

func TestNewChallengeValue(t *testing.T) {
	now := time.Now()
	a, err := New("s", now, time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := New("s", now, time.Minute)
	if a.Value == b.Value || a.ID == b.ID {
		t.Fatal("challenges must be unique")
	}
	if len(a.Value) != 43 {
		t.Fatalf("expected 43 base64url chars for 32 bytes, got %d", len(a.Value))
	}
}
