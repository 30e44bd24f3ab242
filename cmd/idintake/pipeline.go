package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"idintake/internal/document/rectify"
	"idintake/internal/ocr"
	"idintake/internal/pipeline"
	"idintake/internal/platform/config"
	"idintake/internal/policy"
)

// documentStack owns the OCR pool behind a pipeline.
type documentStack struct {
	pipeline *pipeline.Pipeline
	pool     *ocr.Pool
}

// newDocumentStack starts the OCR pool and composes the pipeline. A nil
// registerer leaves metrics unregistered.
func newDocumentStack(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*documentStack, error) {
	var (
		ocrMetrics      *ocr.Metrics
		rectifyMetrics  *rectify.Metrics
		pipelineMetrics *pipeline.Metrics
	)
	if reg != nil {
		ocrMetrics = ocr.NewMetrics(reg)
		rectifyMetrics = rectify.NewMetrics(reg)
		pipelineMetrics = pipeline.NewMetrics(reg)
	}

	pool := ocr.NewPool(ocr.PoolConfig{
		Workers:  cfg.OCR.Workers,
		Language: cfg.OCR.Language,
		Timeout:  cfg.OCR.Timeout,
	}, ocr.WithLogger(logger), ocr.WithMetrics(ocrMetrics))
	if err := pool.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ocr pool: %w", err)
	}

	rectCfg := rectify.DefaultConfig()
	rectCfg.Slots = cfg.Rectify.Slots
	rectCfg.Timeout = cfg.Rectify.Timeout

	evaluator := policy.NewEvaluator(policyConfig(cfg))
	p := pipeline.New(
		rectify.New(rectCfg, logger, rectifyMetrics),
		ocr.NewOrchestrator(pool, logger, ocrMetrics),
		evaluator,
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(pipelineMetrics),
	)
	return &documentStack{pipeline: p, pool: pool}, nil
}

func (d *documentStack) Close(ctx context.Context) error {
	return d.pool.Close(ctx)
}

func policyConfig(cfg config.Config) policy.Config {
	pc := policy.DefaultConfig()
	pc.MinimumAge = cfg.Policy.MinimumAge
	pc.LowConfidenceThreshold = cfg.Policy.LowConfidenceThreshold
	return pc
}
