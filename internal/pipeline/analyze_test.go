package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/resilience"
	"github.com/innoventors/incident-cli/pkg/anthropic"
)

type mockClient struct {
	mock.Mock
}

func (m *mockClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}

// zeroDelayRetry keeps tests fast while preserving the attempt count.
func zeroDelayRetry(attempts int) resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: attempts, Delay: 1}
}

const validAnalysis = `{"root_cause":"Disk full","summary":"Crash","recommendation":"Alerts","category":"Infrastructure","severity":"High"}`

func TestAnalyzer_ValidJSONFirstAttempt(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Once()

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	results, usage := a.Analyze(context.Background(), []model.Section{
		{Title: "Test Case 1", Body: "the body"},
	})

	require.Len(t, results, 1)
	assert.Equal(t, "Test Case 1", results[0].Case)
	assert.JSONEq(t, validAnalysis, results[0].Analysis)
	assert.False(t, results[0].Fallback)
	assert.Equal(t, 100, usage.InputTokens)
	assert.Equal(t, 50, usage.OutputTokens)
	client.AssertExpectations(t)
}

func TestAnalyzer_MalformedThenValid(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("sorry, I cannot produce JSON"), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Once()

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	results, _ := a.Analyze(context.Background(), []model.Section{
		{Title: "Test Case 1", Body: "the body"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Fallback)
	assert.JSONEq(t, validAnalysis, results[0].Analysis)
	client.AssertExpectations(t)
}

func TestAnalyzer_ExhaustedAttempts_Fallback(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("still not JSON"), nil).Twice()

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	results, _ := a.Analyze(context.Background(), []model.Section{
		{Title: "Test Case 1", Body: "section body text"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Fallback)

	rec := CoerceFields(results[0].Analysis)
	assert.Equal(t, "AI parsing failed after 2 attempts.", rec.RootCause)
	assert.Equal(t, "section body text", rec.Summary)
	assert.Equal(t, "Manual review required.", rec.Recommendation)
	assert.Equal(t, "Error", rec.Category)
	assert.Equal(t, model.SeverityUnknown, rec.Severity)

	// Exactly MaxAttempts calls, never more.
	client.AssertNumberOfCalls(t, "CreateMessage", 2)
}

func TestAnalyzer_ProviderError_Fallback(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("api: overloaded")).Twice()

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	results, usage := a.Analyze(context.Background(), []model.Section{
		{Title: "Scenario 1", Body: "body"},
	})

	require.Len(t, results, 1)
	assert.True(t, results[0].Fallback)
	assert.Zero(t, usage.InputTokens)
	client.AssertExpectations(t)
}

func TestAnalyzer_CorrectiveInstructionOnRetry(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return !strings.Contains(req.Messages[0].Content, correctiveInstruction)
	})).Return(textResponse("garbage"), nil).Once()
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return strings.Contains(req.Messages[0].Content, correctiveInstruction)
	})).Return(textResponse(validAnalysis), nil).Once()

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	results, _ := a.Analyze(context.Background(), []model.Section{
		{Title: "Test Case 1", Body: "the body"},
	})

	require.Len(t, results, 1)
	assert.False(t, results[0].Fallback)
	client.AssertExpectations(t)
}

func TestAnalyzer_FallbackSummaryTruncated(t *testing.T) {
	long := strings.Repeat("x", 300)

	raw := fallbackAnalysis(model.Section{Title: "Test Case 1", Body: long}, 2)
	rec := CoerceFields(raw)
	assert.Len(t, rec.Summary, 150)
}

func TestAnalyzer_MultipleSections_OrderPreserved(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Times(3)

	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 2)
	results, _ := a.Analyze(context.Background(), []model.Section{
		{Title: "Test Case 1", Body: "b1"},
		{Title: "Test Case 2", Body: "b2"},
		{Title: "Test Case 3", Body: "b3"},
	})

	require.Len(t, results, 3)
	assert.Equal(t, "Test Case 1", results[0].Case)
	assert.Equal(t, "Test Case 2", results[1].Case)
	assert.Equal(t, "Test Case 3", results[2].Case)
	client.AssertExpectations(t)
}
