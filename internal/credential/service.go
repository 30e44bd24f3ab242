package credential

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"idintake/internal/audit"
	"idintake/internal/challenge"
	jwttoken "idintake/internal/jwt_token"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/platform/sentinel"
	"idintake/pkg/requestcontext"
)

// TokenValidator checks the verification token minted after the gate passed.
type TokenValidator interface {
	ValidateToken(token string) (*jwttoken.AgeVerifiedClaims, error)
}

// ChallengeStore holds pending registration challenges.
type ChallengeStore interface {
	Save(ctx context.Context, c *challenge.Challenge) error
	Consume(ctx context.Context, id string, now time.Time) (*challenge.Challenge, error)
}

// TokenLedger makes each verification token good for one registration.
type TokenLedger interface {
	Redeem(ctx context.Context, tokenID string, expiresAt, now time.Time) error
	IsRedeemed(ctx context.Context, tokenID string, now time.Time) (bool, error)
}

// Store persists registered credentials.
type Store interface {
	Save(ctx context.Context, c Credential) error
	FindByID(ctx context.Context, id string) (Credential, error)
	ListBySubject(ctx context.Context, subject string) ([]Credential, error)
}

// AuditPublisher records ceremony outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config carries the ceremony parameters.
type Config struct {
	ChallengeTTL time.Duration
	RPID         string
	RPName       string
}

// Service drives the registration ceremony.
type Service struct {
	tokens     TokenValidator
	challenges ChallengeStore
	ledger     TokenLedger
	store      Store
	auditor    AuditPublisher
	logger     *slog.Logger
	metrics    *Metrics
	cfg        Config
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

// WithTokenLedger replaces the in-memory ledger, for multi instance setups.
func WithTokenLedger(l TokenLedger) Option {
	return func(s *Service) { s.ledger = l }
}

func NewService(tokens TokenValidator, challenges ChallengeStore, store Store, cfg Config, opts ...Option) *Service {
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 5 * time.Minute
	}
	s := &Service{
		tokens:     tokens,
		challenges: challenges,
		ledger:     challenge.NewInMemoryTokenLedger(),
		store:      store,
		cfg:        cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BeginRegistration validates the verification token and issues a fresh
// challenge bound to the token's subject. A token that already completed a
// registration is rejected.
func (s *Service) BeginRegistration(ctx context.Context, token string) (*RegistrationOptions, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		s.metrics.IncrementCeremony("begin", "rejected")
		return nil, err
	}

	now := requestcontext.Now(ctx)
	used, err := s.ledger.IsRedeemed(ctx, claims.ID, now)
	if err != nil {
		s.metrics.IncrementCeremony("begin", "failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check verification token")
	}
	if used {
		s.metrics.IncrementCeremony("begin", "rejected")
		return nil, dErrors.New(dErrors.CodeUnauthorized, "verification token already used")
	}

	c, err := challenge.New(claims.Subject, now, s.cfg.ChallengeTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create challenge")
	}
	c.TokenID = claims.ID
	if claims.ExpiresAt != nil {
		c.TokenExpiresAt = claims.ExpiresAt.Time
	}
	if err := s.challenges.Save(ctx, c); err != nil {
		s.metrics.IncrementCeremony("begin", "failed")
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store challenge")
	}

	s.metrics.IncrementCeremony("begin", "issued")
	s.logger.InfoContext(ctx, "registration challenge issued",
		"request_id", requestcontext.RequestID(ctx),
		"challenge_id", c.ID,
		"source", claims.Source,
	)
	return &RegistrationOptions{
		ChallengeID: c.ID,
		Challenge:   c.Value,
		RP:          RelyingParty{ID: s.cfg.RPID, Name: s.cfg.RPName},
		User:        User{ID: claims.Subject},
		TimeoutMs:   s.cfg.ChallengeTTL.Milliseconds(),
	}, nil
}

// FinishRegistration consumes the challenge, redeems the verification token
// behind it and stores the credential. A challenge can complete at most one
// ceremony, and so can a token.
func (s *Service) FinishRegistration(ctx context.Context, challengeID string, resp AttestationResponse, userAgent string) (*Credential, error) {
	if challengeID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "challengeId is required")
	}
	if resp.CredentialID == "" || len(resp.PublicKey) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "credentialId and publicKey are required")
	}

	now := requestcontext.Now(ctx)
	c, err := s.challenges.Consume(ctx, challengeID, now)
	if err != nil {
		s.metrics.IncrementCeremony("finish", "rejected")
		switch {
		case errors.Is(err, sentinel.ErrExpired):
			return nil, dErrors.New(dErrors.CodeExpired, "challenge has expired")
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "challenge not found or already used")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to consume challenge")
		}
	}

	if err := verifyClientData(resp.ClientDataJSON, c.Value); err != nil {
		s.metrics.IncrementCeremony("finish", "rejected")
		s.logger.WarnContext(ctx, "client data rejected",
			"request_id", requestcontext.RequestID(ctx),
			"challenge_id", challengeID,
			"error", err,
		)
		return nil, err
	}

	if err := s.redeem(ctx, c, now); err != nil {
		s.metrics.IncrementCeremony("finish", "rejected")
		return nil, err
	}

	cred := Credential{
		ID:         resp.CredentialID,
		Subject:    c.Subject,
		PublicKey:  resp.PublicKey,
		DeviceName: DeviceName(userAgent),
		CreatedAt:  now,
	}
	if err := s.store.Save(ctx, cred); err != nil {
		s.metrics.IncrementCeremony("finish", "failed")
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "credential already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store credential")
	}

	s.metrics.IncrementCeremony("finish", "registered")
	s.logger.InfoContext(ctx, "credential registered",
		"request_id", requestcontext.RequestID(ctx),
		"credential_id", cred.ID,
		"device", cred.DeviceName,
	)
	s.emit(ctx, audit.Event{
		Action:    audit.ActionCredentialRegistered,
		Subject:   cred.Subject,
		Decision:  "registered",
		RequestID: requestcontext.RequestID(ctx),
		Timestamp: now,
	})
	return &cred, nil
}

func (s *Service) redeem(ctx context.Context, c *challenge.Challenge, now time.Time) error {
	if c.TokenID == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "challenge is not bound to a verification token")
	}
	expiresAt := c.TokenExpiresAt
	if expiresAt.IsZero() {
		expiresAt = c.ExpiresAt
	}
	err := s.ledger.Redeem(ctx, c.TokenID, expiresAt, now)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeUnauthorized, "verification token already used")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to redeem verification token")
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}

func verifyClientData(raw []byte, expected string) error {
	var cd clientData
	if err := json.Unmarshal(raw, &cd); err != nil {
		return dErrors.New(dErrors.CodeBadRequest, "clientDataJSON is not valid JSON")
	}
	if cd.Type != clientDataTypeCreate {
		return dErrors.New(dErrors.CodeBadRequest, "clientDataJSON type must be webauthn.create")
	}
	if subtle.ConstantTimeCompare([]byte(cd.Challenge), []byte(expected)) != 1 {
		return dErrors.New(dErrors.CodeUnauthorized, "challenge mismatch")
	}
	return nil
}
