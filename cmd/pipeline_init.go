package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/innoventors/incident-cli/internal/ocr"
	"github.com/innoventors/incident-cli/internal/pipeline"
	"github.com/innoventors/incident-cli/internal/resilience"
	"github.com/innoventors/incident-cli/internal/store"
	anthropicpkg "github.com/innoventors/incident-cli/pkg/anthropic"
)

// pipelineEnv holds the initialized store, extractor, and pipeline shared by
// the analyze and serve commands.
type pipelineEnv struct {
	Store     store.Store
	Extractor ocr.Extractor
	Pipeline  *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline sets up the store, the Anthropic client, the OCR extractor,
// and the pipeline. Callers should defer env.Close(). persist=false builds
// a dry-run pipeline that skips the store entirely.
func initPipeline(ctx context.Context, persist bool) (*pipelineEnv, error) {
	if err := cfg.Validate("analyze"); err != nil {
		return nil, err
	}

	var st store.Store
	if persist {
		var err error
		st, err = initStore(ctx)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	extractor, err := ocr.NewExtractor(cfg.OCR)
	if err != nil {
		if st != nil {
			_ = st.Close()
		}
		return nil, err
	}

	client := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithRateLimit(cfg.Anthropic.RateLimitRPS),
	)

	retry := resilience.RetryConfig{
		MaxAttempts: cfg.Pipeline.MaxRetries,
		Delay:       time.Duration(cfg.Pipeline.RetryDelaySecs) * time.Second,
	}

	analyzer := pipeline.NewAnalyzer(client, cfg.Anthropic.Model, retry, cfg.Pipeline.Concurrency)
	p := pipeline.New(analyzer, st, cfg.Anthropic.Model)

	return &pipelineEnv{
		Store:     st,
		Extractor: extractor,
		Pipeline:  p,
	}, nil
}
