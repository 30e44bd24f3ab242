package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "idintake/pkg/domain-errors"
)

// AgeVerifiedClaims is the signed "age verified" signal the credential
// bridge consumes. It carries no birth date or other document field.
type AgeVerifiedClaims struct {
	AgeVerified bool   `json:"age_verified"`
	Source      string `json:"source"`
	jwt.RegisteredClaims
}

// JWTService mints and validates verification tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	ttl        time.Duration
}

func NewJWTService(signingKey, issuer, audience string, ttl time.Duration) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		ttl:        ttl,
	}
}

// GenerateVerificationToken signs a token for subject, valid from now for
// the configured TTL.
func (s *JWTService) GenerateVerificationToken(subject, source string, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AgeVerifiedClaims{
		AgeVerified: true,
		Source:      source,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken checks signature, issuer, audience, expiry and the
// age_verified flag.
func (s *JWTService) ValidateToken(tokenString string) (*AgeVerifiedClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AgeVerifiedClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	}, jwt.WithIssuer(s.issuer), jwt.WithAudience(s.audience), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "verification token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token")
	}

	claims, ok := parsed.Claims.(*AgeVerifiedClaims)
	if !ok || !parsed.Valid || !claims.AgeVerified || claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid verification token")
	}
	return claims, nil
}
