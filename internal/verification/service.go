package verification

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"idintake/internal/audit"
	"idintake/internal/credential"
	"idintake/internal/document"
	"idintake/internal/face"
	"idintake/internal/ocr"
	"idintake/internal/pipeline"
	"idintake/internal/verification/metrics"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/requestcontext"
)

// DocumentProcessor runs the server side document pipeline.
type DocumentProcessor interface {
	Process(ctx context.Context, raw []byte) (*pipeline.Outcome, error)
	ExtractText(ctx context.Context, raw []byte) (ocr.Result, error)
}

// TokenIssuer mints the "age verified" token for the credential bridge.
type TokenIssuer interface {
	GenerateVerificationToken(subject, source string, now time.Time) (string, error)
}

// Registrar opens the credential ceremony for a verified subject.
type Registrar interface {
	BeginRegistration(ctx context.Context, token string) (*credential.RegistrationOptions, error)
}

// AuditPublisher records verification decisions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Config holds the face requirements.
type Config struct {
	FaceMatchThreshold float64
	RequireFaceMatch   bool
}

func DefaultConfig() Config {
	return Config{FaceMatchThreshold: 0.6, RequireFaceMatch: true}
}

// Service decides verification submissions.
type Service struct {
	gate      *Gate
	documents DocumentProcessor
	tokens    TokenIssuer
	matcher   face.Matcher
	registrar Registrar
	auditor   AuditPublisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
	cfg       Config
}

type Option func(*Service)

func WithRegistrar(r Registrar) Option {
	return func(s *Service) { s.registrar = r }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithFaceMatcher(m face.Matcher) Option {
	return func(s *Service) { s.matcher = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(gate *Gate, documents DocumentProcessor, tokens TokenIssuer, cfg Config, opts ...Option) *Service {
	s := &Service{
		gate:      gate,
		documents: documents,
		tokens:    tokens,
		matcher:   face.Cosine{},
		logger:    slog.Default(),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit runs the gate on a submission. Trust and policy failures are data
// on the Result; errors are reserved for undecodable photos, an unavailable
// engine, timeouts and token minting failures.
func (s *Service) Submit(ctx context.Context, sub Submission) (*Result, error) {
	start := time.Now()
	path := sub.Path()
	now := requestcontext.Now(ctx)
	requestID := requestcontext.RequestID(ctx)
	defer func() { s.metrics.ObserveSubmit(string(path), time.Since(start)) }()

	res := &Result{Subject: uuid.NewString(), Path: path}

	text, claim := sub.RawOCRText, sub.Claim
	if path == PathSlow {
		outcome, err := s.documents.Process(ctx, sub.IDPhoto)
		if err != nil {
			s.metrics.IncrementSubmit(string(path), "error")
			s.logger.WarnContext(ctx, "slow path processing failed",
				"request_id", requestID,
				"error", err,
			)
			return nil, err
		}
		res.Verdict = &outcome.Verdict
		text = gateText(outcome.Data)
		// The server ran its own OCR, so there is no client claim to fall back on.
		claim = Claim{}
	}

	gate := s.gate.Revalidate(text, claim, now)
	res.OCRPassed, res.AgePassed, res.Age, res.Source = gate.OCRPassed, gate.AgePassed, gate.Age, gate.Source
	s.metrics.IncrementGate(string(gate.Source), outcomeLabel(gate.Passed))
	if gate.Source == SourceClientFallback {
		s.logger.WarnContext(ctx, "gate accepted client-claimed birth date",
			"request_id", requestID,
			"subject", res.Subject,
		)
	}
	if gate.Source == SourceServer && claimDisagrees(claim, gate) {
		s.logger.WarnContext(ctx, "client claim disagrees with server extraction",
			"request_id", requestID,
			"subject", res.Subject,
		)
	}

	res.FacePassed = s.checkFace(ctx, sub)

	switch {
	case !gate.Passed:
		res.Reason = ReasonGateRejected
	case res.Verdict != nil && !res.Verdict.IsValid:
		res.Reason = ReasonDocumentInvalid
	case !res.FacePassed:
		res.Reason = ReasonFaceMismatch
	default:
		res.Passed = true
	}

	if res.Passed {
		if err := s.issue(ctx, res, now); err != nil {
			s.metrics.IncrementSubmit(string(path), "error")
			return nil, err
		}
	}

	s.metrics.IncrementSubmit(string(path), outcomeLabel(res.Passed))
	s.logger.InfoContext(ctx, "verification evaluated",
		"request_id", requestID,
		"subject", res.Subject,
		"path", path,
		"passed", res.Passed,
		"source", res.Source,
		"reason", res.Reason,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.emit(ctx, audit.Event{
		Timestamp: now,
		Subject:   res.Subject,
		Action:    audit.ActionVerificationEvaluated,
		Decision:  outcomeLabel(res.Passed),
		Reason:    res.Reason,
		Source:    string(res.Source),
		RequestID: requestID,
	})
	return res, nil
}

// ExtractText is the internal document OCR call.
func (s *Service) ExtractText(ctx context.Context, image []byte) (ocr.Result, error) {
	return s.documents.ExtractText(ctx, image)
}

func (s *Service) issue(ctx context.Context, res *Result, now time.Time) error {
	token, err := s.tokens.GenerateVerificationToken(res.Subject, string(res.Source), now)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue verification token")
	}
	res.Token = token

	if s.registrar == nil {
		return nil
	}
	opts, err := s.registrar.BeginRegistration(ctx, token)
	if err != nil {
		// The token alone still lets the client begin registration itself.
		s.logger.ErrorContext(ctx, "failed to open registration ceremony",
			"request_id", requestcontext.RequestID(ctx),
			"subject", res.Subject,
			"error", err,
		)
		return nil
	}
	res.Registration = opts
	return nil
}

// checkFace prefers server-side embeddings over the client's confidence.
func (s *Service) checkFace(ctx context.Context, sub Submission) bool {
	var score float64
	switch {
	case len(sub.IDFaceEmbedding) > 0 && len(sub.SelfieEmbedding) > 0:
		sim, err := s.matcher.Similarity(sub.IDFaceEmbedding, sub.SelfieEmbedding)
		if err != nil {
			s.logger.WarnContext(ctx, "face embeddings rejected",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			return false
		}
		score = sim
	case sub.FaceMatchConfidence != nil:
		score = *sub.FaceMatchConfidence
	default:
		return !s.cfg.RequireFaceMatch
	}
	s.metrics.ObserveFaceScore(score)
	return score >= s.cfg.FaceMatchThreshold
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

// gateText puts the birth date region first so its label stays adjacent,
// followed by the whole-document pass.
func gateText(data document.ExtractedDocumentData) string {
	var parts []string
	if dob, ok := data.Fields[document.FieldDOB]; ok && strings.TrimSpace(dob.RawText) != "" {
		parts = append(parts, dob.RawText)
	}
	if strings.TrimSpace(data.RawText) != "" {
		parts = append(parts, data.RawText)
	}
	return strings.Join(parts, "\n")
}

func claimDisagrees(claim Claim, gate GateResult) bool {
	if claim.BirthDate != "" && claim.BirthDate != gate.BirthDate {
		return true
	}
	return claim.Age != nil && gate.Age != nil && *claim.Age != *gate.Age
}

func outcomeLabel(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
