package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/otiai10/gosseract/v2"
)

// Engine is the subset of *gosseract.Client the pool drives. A single
// Engine is not reentrant.
type Engine interface {
	SetLanguage(langs ...string) error
	SetWhitelist(whitelist string) error
	SetPageSegMode(mode gosseract.PageSegMode) error
	SetImageFromBytes(data []byte) error
	Text() (string, error)
	GetBoundingBoxes(level gosseract.PageIteratorLevel) ([]gosseract.BoundingBox, error)
	Close() error
}

// PoolConfig sizes the worker pool.
type PoolConfig struct {
	Workers  int
	Language string
	Timeout  time.Duration
}

// Pool is a fixed set of Tesseract workers. Start must succeed before
// Recognize is called; Close drains in-flight work.
type Pool struct {
	cfg       PoolConfig
	newEngine func() Engine
	logger    *slog.Logger
	metrics   *Metrics

	mu      sync.Mutex
	engines []Engine
	idle    chan Engine
	closed  chan struct{}
	started bool
	wg      sync.WaitGroup
}

// Option configures a Pool.
type Option func(*Pool)

// WithEngineFactory replaces the gosseract client constructor.
func WithEngineFactory(f func() Engine) Option {
	return func(p *Pool) { p.newEngine = f }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pool) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

func NewPool(cfg PoolConfig, opts ...Option) *Pool {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	p := &Pool{
		cfg:       cfg,
		newEngine: func() Engine { return gosseract.NewClient() },
		logger:    slog.Default(),
		closed:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start creates every worker and runs a warm-up recognition on each. Any
// failure tears the pool down and is reported as ErrEngineUnavailable.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}

	probe, err := warmupImage()
	if err != nil {
		return fmt.Errorf("%w: build warm-up image: %v", ErrEngineUnavailable, err)
	}

	idle := make(chan Engine, p.cfg.Workers)
	for i := 0; i < p.cfg.Workers; i++ {
		if err := ctx.Err(); err != nil {
			p.closeEngines()
			return err
		}
		eng := p.newEngine()
		p.engines = append(p.engines, eng)
		if err := eng.SetLanguage(p.cfg.Language); err != nil {
			p.closeEngines()
			return fmt.Errorf("%w: set language %q: %v", ErrEngineUnavailable, p.cfg.Language, err)
		}
		if _, err := recognizeOn(eng, probe, ProfileDocument); err != nil {
			p.closeEngines()
			return fmt.Errorf("%w: warm-up worker %d: %v", ErrEngineUnavailable, i, err)
		}
		idle <- eng
	}

	p.idle = idle
	p.started = true
	p.metrics.SetIdleWorkers(len(idle))
	p.logger.InfoContext(ctx, "ocr pool started", "workers", p.cfg.Workers, "language", p.cfg.Language)
	return nil
}

// Recognize runs one recognition on an idle worker. It blocks until a
// worker is free or ctx is done. On timeout the worker keeps running until
// its cgo call returns and only then rejoins the pool.
func (p *Pool) Recognize(ctx context.Context, img []byte, profile Profile) (Result, error) {
	if !p.isStarted() {
		return Result{}, ErrEngineUnavailable
	}

	waitStart := time.Now()
	var eng Engine
	select {
	case eng = <-p.idle:
	case <-p.closed:
		return Result{}, ErrEngineUnavailable
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		p.idle <- eng
		return Result{}, ErrEngineUnavailable
	}
	p.wg.Add(1)
	p.mu.Unlock()
	p.metrics.ObserveWait(time.Since(waitStart))
	p.metrics.SetIdleWorkers(len(p.idle))

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer p.wg.Done()
		res, err := recognizeOn(eng, img, profile)
		p.release(eng)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		p.metrics.ObserveRecognition(profile.Name, outcomeLabel(out.err), time.Since(start))
		return out.res, out.err
	case <-ctx.Done():
		p.metrics.ObserveRecognition(profile.Name, "timeout", time.Since(start))
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrRecognitionTimeout
		}
		return Result{}, ctx.Err()
	}
}

// Close waits for in-flight recognitions, bounded by ctx, then frees every
// worker. When ctx ends first the workers are still freed once the last
// recognition settles.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	close(p.closed)
	engines := p.engines
	p.engines = nil
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		p.wg.Wait()
		done <- closeAll(engines)
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		p.logger.WarnContext(ctx, "ocr pool closed with recognitions in flight")
		return ctx.Err()
	}
}

func (p *Pool) isStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.started
}

// release resets a worker's per-request state and returns it to the pool.
func (p *Pool) release(eng Engine) {
	if err := reset(eng); err != nil {
		p.logger.Warn("ocr worker reset failed", "error", err)
	}
	p.idle <- eng
	p.metrics.SetIdleWorkers(len(p.idle))
}

func (p *Pool) closeEngines() error {
	err := closeAll(p.engines)
	p.engines = nil
	return err
}

func closeAll(engines []Engine) error {
	var errs []error
	for _, eng := range engines {
		if err := eng.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func reset(eng Engine) error {
	return errors.Join(eng.SetWhitelist(""), eng.SetPageSegMode(gosseract.PSM_AUTO))
}

func recognizeOn(eng Engine, img []byte, profile Profile) (Result, error) {
	if err := eng.SetWhitelist(profile.Whitelist); err != nil {
		return Result{}, fmt.Errorf("set whitelist: %w", err)
	}
	if err := eng.SetPageSegMode(profile.Mode); err != nil {
		return Result{}, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := eng.SetImageFromBytes(img); err != nil {
		return Result{}, fmt.Errorf("set image: %w", err)
	}
	text, err := eng.Text()
	if err != nil {
		return Result{}, fmt.Errorf("recognize: %w", err)
	}
	boxes, err := eng.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return Result{Text: strings.TrimSpace(text)}, nil
	}
	return Result{Text: strings.TrimSpace(text), Confidence: meanWordConfidence(boxes)}, nil
}

func meanWordConfidence(boxes []gosseract.BoundingBox) float64 {
	var sum float64
	n := 0
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

func outcomeLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func warmupImage() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
