// Package pipeline composes the server side document run: decode,
// rectify, crop, OCR, parse and evaluate.
package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"idintake/internal/document"
	"idintake/internal/document/rectify"
	"idintake/internal/fields"
	"idintake/internal/ocr"
	"idintake/internal/policy"
	dErrors "idintake/pkg/domain-errors"
	"idintake/pkg/requestcontext"
)

// Rectifier flattens a document photo.
type Rectifier interface {
	Rectify(ctx context.Context, img document.Image) (*rectify.Result, error)
}

// Recognizer runs the OCR passes.
type Recognizer interface {
	Run(ctx context.Context, crops map[document.Field]image.Image, page image.Image) (*ocr.Output, error)
	RecognizeDocument(ctx context.Context, page image.Image) (ocr.Result, error)
}

// Outcome is one full pipeline run.
type Outcome struct {
	Data      document.ExtractedDocumentData
	Verdict   policy.Verdict
	Rectified bool
	Deskew    float64
}

// Pipeline is safe for concurrent use; resource bounds live in the
// rectifier and the OCR pool.
type Pipeline struct {
	rectifier  Rectifier
	recognizer Recognizer
	evaluator  *policy.Evaluator
	layout     document.RegionLayout
	rules      fields.Rules
	logger     *slog.Logger
	metrics    *Metrics
	tracer     trace.Tracer
}

type Option func(*Pipeline)

func WithLayout(layout document.RegionLayout) Option {
	return func(p *Pipeline) { p.layout = layout }
}

func WithRules(rules fields.Rules) Option {
	return func(p *Pipeline) { p.rules = rules }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func New(rectifier Rectifier, recognizer Recognizer, evaluator *policy.Evaluator, opts ...Option) *Pipeline {
	p := &Pipeline{
		rectifier:  rectifier,
		recognizer: recognizer,
		evaluator:  evaluator,
		layout:     document.DefaultLayout,
		rules:      fields.DefaultRules(),
		logger:     slog.Default(),
		tracer:     otel.Tracer("idintake/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process runs the whole pipeline on an encoded image. Decode failure and
// an unavailable OCR engine are the only errors; everything else degrades.
func (p *Pipeline) Process(ctx context.Context, raw []byte) (*Outcome, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	defer span.End()
	start := time.Now()

	img, err := p.decode(ctx, raw)
	if err != nil {
		return nil, p.fail(span, err)
	}

	rect, err := p.rectify(ctx, img)
	if err != nil {
		return nil, p.fail(span, err)
	}

	crops := p.crop(ctx, rect)

	stageStart := time.Now()
	ocrCtx, ocrSpan := p.tracer.Start(ctx, "pipeline.ocr")
	out, err := p.recognizer.Run(ocrCtx, crops, rect.Binarized)
	ocrSpan.End()
	p.metrics.ObserveStage("ocr", time.Since(stageStart))
	if err != nil {
		return nil, p.fail(span, engineError(err))
	}

	now := requestcontext.Now(ctx)
	data := fields.BuildExtraction(out.Fields, out.Document.Text, crops[document.FieldPhoto], now, p.rules)
	verdict := p.evaluator.Evaluate(data, now)

	p.metrics.IncrementVerdict(verdict.IsValid)
	span.SetAttributes(
		attribute.Bool("document.rectified", rect.Corners != nil),
		attribute.Bool("verdict.valid", verdict.IsValid),
		attribute.Int("verdict.errors", len(verdict.Errors)),
	)
	p.logger.InfoContext(ctx, "document processed",
		"rectified", rect.Corners != nil,
		"valid", verdict.IsValid,
		"errors", len(verdict.Errors),
		"warnings", len(verdict.Warnings),
		"confidence", data.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &Outcome{Data: data, Verdict: verdict, Rectified: rect.Corners != nil, Deskew: rect.Deskew}, nil
}

// ExtractText decodes, rectifies and runs the whole-document pass only.
func (p *Pipeline) ExtractText(ctx context.Context, raw []byte) (ocr.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.extract_text")
	defer span.End()

	img, err := p.decode(ctx, raw)
	if err != nil {
		return ocr.Result{}, p.fail(span, err)
	}
	rect, err := p.rectify(ctx, img)
	if err != nil {
		return ocr.Result{}, p.fail(span, err)
	}
	res, err := p.recognizer.RecognizeDocument(ctx, rect.Binarized)
	if err != nil {
		return ocr.Result{}, p.fail(span, engineError(err))
	}
	return res, nil
}

func (p *Pipeline) decode(ctx context.Context, raw []byte) (document.Image, error) {
	_, span := p.tracer.Start(ctx, "pipeline.decode")
	defer span.End()
	img, err := document.Decode(raw)
	if err != nil {
		p.metrics.IncrementFailure("decode")
		return document.Image{}, err
	}
	span.SetAttributes(attribute.Int("image.width", img.Width), attribute.Int("image.height", img.Height))
	return img, nil
}

// rectify degrades to plain grayscale on any rectifier failure other than
// the caller going away.
func (p *Pipeline) rectify(ctx context.Context, img document.Image) (*rectify.Result, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.rectify")
	defer span.End()
	start := time.Now()
	defer func() { p.metrics.ObserveStage("rectify", time.Since(start)) }()

	res, err := p.rectifier.Rectify(ctx, img)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, rectify.ErrTimeout) {
		return nil, dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "request cancelled")
	}
	p.metrics.IncrementFailure("rectify")
	p.logger.WarnContext(ctx, "rectification failed, using grayscale", "error", err)
	gray := rectify.Grayscale(img.Image)
	return &rectify.Result{Rectified: gray, Binarized: gray}, nil
}

// crop takes the photo from the natural-contrast image and text fields from
// the binarized one.
func (p *Pipeline) crop(ctx context.Context, rect *rectify.Result) map[document.Field]image.Image {
	_, span := p.tracer.Start(ctx, "pipeline.crop")
	defer span.End()

	out := make(map[document.Field]image.Image, len(p.layout.Fields()))
	for _, f := range p.layout.Fields() {
		region, _ := p.layout.Region(f)
		src := rect.Binarized
		if f == document.FieldPhoto {
			src = rect.Rectified
		}
		out[f] = document.Crop(src, region)
	}
	return out
}

func (p *Pipeline) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}

func engineError(err error) error {
	if errors.Is(err, ocr.ErrEngineUnavailable) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "text recognition is unavailable, try again shortly")
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "text recognition timed out")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "text recognition failed")
}
