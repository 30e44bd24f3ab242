package challenge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"idintake/pkg/platform/sentinel"
)

// A token ledger remembers redeemed verification token IDs until the token
// itself would have expired. Redeem returns sentinel.ErrAlreadyUsed on the
// second call for the same ID.

// InMemoryTokenLedger is the single instance ledger.
type InMemoryTokenLedger struct {
	mu       sync.Mutex
	redeemed map[string]time.Time
}

func NewInMemoryTokenLedger() *InMemoryTokenLedger {
	return &InMemoryTokenLedger{redeemed: make(map[string]time.Time)}
}

func (l *InMemoryTokenLedger) Redeem(_ context.Context, tokenID string, expiresAt, now time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, exp := range l.redeemed {
		if !now.Before(exp) {
			delete(l.redeemed, id)
		}
	}
	if _, ok := l.redeemed[tokenID]; ok {
		return fmt.Errorf("verification token %s: %w", tokenID, sentinel.ErrAlreadyUsed)
	}
	l.redeemed[tokenID] = expiresAt
	return nil
}

func (l *InMemoryTokenLedger) IsRedeemed(_ context.Context, tokenID string, now time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	exp, ok := l.redeemed[tokenID]
	return ok && now.Before(exp), nil
}

const tokenKeyPrefix = "idintake:redeemed-token:"

// RedisTokenLedger claims token IDs with SET NX, so redemption is atomic
// across instances. Keys expire with the token.
type RedisTokenLedger struct {
	client redis.Cmdable
}

func NewRedisTokenLedger(client redis.Cmdable) *RedisTokenLedger {
	return &RedisTokenLedger{client: client}
}

func (l *RedisTokenLedger) Redeem(ctx context.Context, tokenID string, expiresAt, now time.Time) error {
	ttl := max(expiresAt.Sub(now), time.Second)
	ok, err := l.client.SetNX(ctx, tokenKeyPrefix+tokenID, now.Unix(), ttl).Result()
	if err != nil {
		return fmt.Errorf("redeem verification token: %w", err)
	}
	if !ok {
		return fmt.Errorf("verification token %s: %w", tokenID, sentinel.ErrAlreadyUsed)
	}
	return nil
}

func (l *RedisTokenLedger) IsRedeemed(ctx context.Context, tokenID string, _ time.Time) (bool, error) {
	n, err := l.client.Exists(ctx, tokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check verification token: %w", err)
	}
	return n > 0, nil
}
