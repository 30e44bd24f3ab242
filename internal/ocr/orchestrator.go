package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"idintake/internal/document"
)

// Orchestrator runs the per-field passes and the whole-document pass.
type Orchestrator struct {
	recognizer     Recognizer
	logger         *slog.Logger
	metrics        *Metrics
	minGlyphHeight int
}

// Output is everything one OCR run produced.
type Output struct {
	Fields   []document.FieldOcrResult
	Document Result
}

func NewOrchestrator(recognizer Recognizer, logger *slog.Logger, metrics *Metrics) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{recognizer: recognizer, logger: logger, metrics: metrics, minGlyphHeight: 48}
}

// Run recognizes every text field crop plus the whole binarized page
// concurrently. A failed field yields empty text and zero confidence; only
// ErrEngineUnavailable fails the run.
func (o *Orchestrator) Run(ctx context.Context, crops map[document.Field]image.Image, page image.Image) (*Output, error) {
	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)

	results := make([]document.FieldOcrResult, len(document.TextFields))
	for i, field := range document.TextFields {
		i, field := i, field
		results[i] = document.FieldOcrResult{Field: field}
		crop, ok := crops[field]
		if !ok {
			continue
		}
		results[i].Crop = crop
		g.Go(func() error {
			res, err := o.recognizeImage(gctx, document.Upscale(crop, o.minGlyphHeight), ProfileFor(field))
			if err != nil {
				if errors.Is(err, ErrEngineUnavailable) {
					return err
				}
				o.metrics.IncrementFieldOutcome(string(field), "failed")
				o.logger.WarnContext(ctx, "field recognition failed", "field", field, "error", err)
				return nil
			}
			if res.Text == "" {
				o.metrics.IncrementFieldOutcome(string(field), "empty")
			} else {
				o.metrics.IncrementFieldOutcome(string(field), "recognized")
			}
			results[i].RawText = res.Text
			results[i].Confidence = res.Confidence
			return nil
		})
	}

	var whole Result
	if page != nil {
		g.Go(func() error {
			res, err := o.recognizeImage(gctx, page, ProfileDocument)
			if err != nil {
				if errors.Is(err, ErrEngineUnavailable) {
					return err
				}
				o.logger.WarnContext(ctx, "document recognition failed", "error", err)
				return nil
			}
			whole = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	o.logger.DebugContext(ctx, "ocr run complete",
		"fields", len(crops),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Output{Fields: results, Document: whole}, nil
}

// RecognizeDocument is the single whole-document pass used by the internal
// OCR endpoint.
func (o *Orchestrator) RecognizeDocument(ctx context.Context, page image.Image) (Result, error) {
	return o.recognizeImage(ctx, page, ProfileDocument)
}

func (o *Orchestrator) recognizeImage(ctx context.Context, img image.Image, profile Profile) (Result, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return Result{}, fmt.Errorf("encode %s crop: %w", profile.Name, err)
	}
	return o.recognizer.Recognize(ctx, buf.Bytes(), profile)
}
