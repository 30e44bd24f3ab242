package challenge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"idintake/pkg/platform/sentinel"
)

const challengeKeyPrefix = "idintake:challenge:"

// RedisStore keeps challenges as JSON values with a key TTL. Consume uses
// GETDEL so replay is rejected across instances.
type RedisStore struct {
	client redis.Cmdable
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, c *Challenge) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := c.ExpiresAt.Sub(c.CreatedAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired: %w", sentinel.ErrExpired)
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+c.ID, payload, ttl).Err(); err != nil {
		return fmt.Errorf("save challenge: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, id string, now time.Time) (*Challenge, error) {
	raw, err := s.client.GetDel(ctx, challengeKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume challenge: %w", err)
	}

	var c Challenge
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode challenge: %w", err)
	}
	if c.IsExpired(now) {
		return nil, fmt.Errorf("challenge expired: %w", sentinel.ErrExpired)
	}
	return &c, nil
}
