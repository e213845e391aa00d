package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/store"
)

// Pipeline chains normalization, section splitting, analysis, and field
// coercion over a document, optionally persisting results.
type Pipeline struct {
	analyzer *Analyzer
	store    store.Store // nil disables persistence
	aiModel  string
}

// New creates a Pipeline. st may be nil for dry runs without persistence.
func New(analyzer *Analyzer, st store.Store, aiModel string) *Pipeline {
	return &Pipeline{
		analyzer: analyzer,
		store:    st,
		aiModel:  aiModel,
	}
}

// Run executes the pipeline over raw document text. Every detected section
// yields a result: analysis failures surface as fallback records, not
// errors. The only error Run returns is context cancellation.
func (p *Pipeline) Run(ctx context.Context, rawText string) (*model.PipelineResult, error) {
	start := time.Now()

	sections := SplitSections(NormalizeDocument(rawText))
	zap.L().Info("document split",
		zap.Int("sections", len(sections)),
	)

	analyses, usage := p.analyzer.Analyze(ctx, sections)
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: analysis interrupted")
	}

	incidents := make([]model.IncidentResult, len(analyses))
	for i, a := range analyses {
		rec := CoerceFields(a.Analysis)
		incidents[i] = model.IncidentResult{
			Case:     a.Case,
			Body:     sections[i].Body,
			Record:   rec,
			Raw:      a.Analysis,
			Fallback: a.Fallback,
		}
	}

	result := &model.PipelineResult{
		TotalIncidents: len(incidents),
		Incidents:      incidents,
		TokenUsage:     usage,
		Duration:       time.Since(start).Milliseconds(),
	}

	zap.L().Info("pipeline complete",
		zap.Int("incidents", result.TotalIncidents),
		zap.Int("input_tokens", usage.InputTokens),
		zap.Int("output_tokens", usage.OutputTokens),
		zap.Float64("cost_usd", usage.Cost),
		zap.Int64("duration_ms", result.Duration),
	)

	return result, nil
}

// Ingest runs the pipeline and persists the upload, its sections, and their
// coerced analyses. Sections and results line up by construction: one
// result per section, in order.
func (p *Pipeline) Ingest(ctx context.Context, filename, rawText string) (*model.Upload, *model.PipelineResult, error) {
	result, err := p.Run(ctx, rawText)
	if err != nil {
		return nil, nil, err
	}
	if p.store == nil {
		return nil, result, nil
	}

	upload, err := p.store.CreateUpload(ctx, filename)
	if err != nil {
		return nil, nil, eris.Wrap(err, "pipeline: create upload")
	}

	for _, res := range result.Incidents {
		inc, err := p.store.CreateIncident(ctx, upload.ID, res.Case, res.Body)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "pipeline: create incident %q", res.Case)
		}
		if _, err := p.store.CreateAnalysis(ctx, inc.ID, res.Record, p.aiModel, res.Raw); err != nil {
			return nil, nil, eris.Wrapf(err, "pipeline: create analysis for %q", res.Case)
		}
	}

	return upload, result, nil
}
