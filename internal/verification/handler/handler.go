package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"idintake/internal/ocr"
	"idintake/internal/verification"
	"idintake/pkg/platform/httputil"
	"idintake/pkg/requestcontext"
)

// Service defines the verification operations.
type Service interface {
	Submit(ctx context.Context, sub verification.Submission) (*verification.Result, error)
	ExtractText(ctx context.Context, image []byte) (ocr.Result, error)
}

// Handler wires verification endpoints to the verification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public submission endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/verification/submit", h.HandleSubmit)
}

// RegisterInternal mounts the server-only document OCR endpoint.
func (h *Handler) RegisterInternal(r chi.Router) {
	r.Post("/internal/document/ocr", h.HandleDocumentOCR)
}

// HandleSubmit handles POST /verification/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Submit(ctx, req.Submission())
	if err != nil {
		h.logger.ErrorContext(ctx, "verification submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "verification submission decided",
		"request_id", requestID,
		"path", res.Path,
		"passed", res.Passed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(res))
}

// HandleDocumentOCR handles POST /internal/document/ocr.
func (h *Handler) HandleDocumentOCR(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[DocumentOCRRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.ExtractText(ctx, req.Bytes())
	if err != nil {
		h.logger.ErrorContext(ctx, "document ocr failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
