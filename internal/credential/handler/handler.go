package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idintake/internal/credential"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/requestcontext"
)

// Service defines the registration ceremony operations.
type Service interface {
	BeginRegistration(ctx context.Context, token string) (*credential.RegistrationOptions, error)
	FinishRegistration(ctx context.Context, challengeID string, resp credential.AttestationResponse, userAgent string) (*credential.Credential, error)
}

// Handler wires the credential endpoints to the issuance bridge.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the ceremony endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/credential/register/begin", h.HandleBegin)
	r.Post("/credential/register/finish", h.HandleFinish)
}

// HandleBegin handles POST /credential/register/begin.
func (h *Handler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BeginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	opts, err := h.service.BeginRegistration(ctx, req.VerificationToken)
	if err != nil {
		h.logger.WarnContext(ctx, "registration begin rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, opts)
}

// HandleFinish handles POST /credential/register/finish.
func (h *Handler) HandleFinish(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[FinishRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	userAgent := requestcontext.UserAgent(ctx)
	if userAgent == "" {
		userAgent = r.UserAgent()
	}
	cred, err := h.service.FinishRegistration(ctx, req.ChallengeID, req.Attestation(), userAgent)
	if err != nil {
		h.logger.WarnContext(ctx, "registration finish rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "registration finished",
		"request_id", requestID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, FromCredential(cred))
}
