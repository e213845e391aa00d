package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/resilience"
	"github.com/innoventors/incident-cli/pkg/anthropic"
)

// analysisSystemPrompt instructs the model to keep output machine-parseable.
const analysisSystemPrompt = "You are a senior product incident analyst. Reply in valid JSON only."

// analysisTemperature is kept near zero to minimize formatting drift.
const analysisTemperature = 0.2

const analysisMaxTokens = 1024

const analysisPrompt = `You are an expert in Product Operations and Root Cause Analysis.

Analyze the following incident and return a JSON object with exactly these keys:
"root_cause", "summary", "recommendation", "category", "severity".
summary must be 1-2 lines. severity must be one of Low, Medium, High.

Incident: %s

Text:
%s`

// correctiveInstruction is appended to the prompt on retry after the model
// returned something that did not parse as JSON.
const correctiveInstruction = "Your previous reply was not valid JSON. Output valid JSON only, with no surrounding text."

// fallbackSummaryLen caps how much of the section body is carried into a
// fallback record's summary.
const fallbackSummaryLen = 150

// Analyzer runs per-section root-cause analysis against the LLM with bounded
// retry and a deterministic fallback once attempts are exhausted.
type Analyzer struct {
	client      anthropic.Client
	model       string
	retry       resilience.RetryConfig
	concurrency int
}

// NewAnalyzer creates an Analyzer. concurrency bounds the per-section
// fan-out; values below 1 run sections sequentially.
func NewAnalyzer(client anthropic.Client, llmModel string, retry resilience.RetryConfig, concurrency int) *Analyzer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Analyzer{
		client:      client,
		model:       llmModel,
		retry:       retry,
		concurrency: concurrency,
	}
}

// Analyze produces one IncidentAnalysisResult per input section, in input
// order. Provider errors and malformed model output are retried up to the
// configured attempt count and then replaced by a deterministic fallback
// record; no failure escapes this boundary.
func (a *Analyzer) Analyze(ctx context.Context, sections []model.Section) ([]model.IncidentAnalysisResult, model.TokenUsage) {
	results := make([]model.IncidentAnalysisResult, len(sections))

	var mu sync.Mutex
	var usage model.TokenUsage

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)

	for i, sec := range sections {
		g.Go(func() error {
			raw, fallback, secUsage := a.analyzeSection(gCtx, sec)
			results[i] = model.IncidentAnalysisResult{
				Case:     sec.Title,
				Analysis: raw,
				Fallback: fallback,
			}
			mu.Lock()
			usage.Add(secUsage)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; failures become fallbacks

	return results, usage
}

// analyzeSection runs the retry loop for a single section and returns the
// validated (or fallback) analysis JSON.
func (a *Analyzer) analyzeSection(ctx context.Context, sec model.Section) (string, bool, model.TokenUsage) {
	prompt := fmt.Sprintf(analysisPrompt, sec.Title, sec.Body)
	temp := analysisTemperature

	var usage model.TokenUsage
	attempt := 0

	retryCfg := a.retry
	retryCfg.ShouldRetry = resilience.AlwaysRetry
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "analyze section")

	raw, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (string, error) {
		attempt++
		p := prompt
		if attempt > 1 {
			p += "\n\n" + correctiveInstruction
		}

		resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       a.model,
			MaxTokens:   analysisMaxTokens,
			Temperature: &temp,
			System:      []anthropic.SystemBlock{{Text: analysisSystemPrompt}},
			Messages: []anthropic.Message{
				{Role: "user", Content: p},
			},
		})
		if err != nil {
			return "", err
		}

		usage.Add(model.TokenUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			Cost:         resp.Usage.EstimateCost(a.model),
		})

		cleaned := cleanJSON(anthropic.Text(resp))
		var probe map[string]any
		if err := json.Unmarshal([]byte(cleaned), &probe); err != nil {
			return "", eris.Wrap(err, "analyze: model output is not a JSON object")
		}
		return cleaned, nil
	})
	if err != nil {
		zap.L().Warn("analysis fell back after exhausting attempts",
			zap.String("case", sec.Title),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return fallbackAnalysis(sec, retryCfg.MaxAttempts), true, usage
	}
	return raw, false, usage
}

// fallbackAnalysis synthesizes the deterministic record emitted when all
// attempts for a section failed.
func fallbackAnalysis(sec model.Section, attempts int) string {
	if attempts <= 0 {
		attempts = 2
	}
	summary := sec.Body
	if len(summary) > fallbackSummaryLen {
		summary = summary[:fallbackSummaryLen]
	}
	rec := model.AnalysisRecord{
		RootCause:      fmt.Sprintf("AI parsing failed after %d attempts.", attempts),
		Summary:        summary,
		Recommendation: "Manual review required.",
		Category:       "Error",
		Severity:       model.SeverityUnknown,
	}
	out, _ := json.Marshal(rec)
	return string(out)
}
