// Package challenge stores the single-use, time-boxed registration
// challenges handed out by the credential bridge.
package challenge

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Challenge is deleted on first successful consume and expires at
// ExpiresAt even if never used.
type Challenge struct {
	ID        string    `json:"id"`
	Value     string    `json:"value"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	// TokenID and TokenExpiresAt identify the verification token that opened
	// the ceremony; it is redeemed when the ceremony finishes.
	TokenID        string    `json:"token_id,omitempty"`
	TokenExpiresAt time.Time `json:"token_expires_at,omitempty"`
}

// New creates a challenge with 32 random bytes, base64url encoded.
func New(subject string, now time.Time, ttl time.Duration) (*Challenge, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate challenge: %w", err)
	}
	return &Challenge{
		ID:        uuid.NewString(),
		Value:     base64.RawURLEncoding.EncodeToString(buf),
		Subject:   subject,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}, nil
}

// IsExpired reports whether now is at or past ExpiresAt.
func (c *Challenge) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
