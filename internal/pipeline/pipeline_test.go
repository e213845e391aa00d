package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/innoventors/incident-cli/internal/model"
	"github.com/innoventors/incident-cli/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateUpload(ctx context.Context, filename string) (*model.Upload, error) {
	args := m.Called(ctx, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Upload), args.Error(1)
}

func (m *mockStore) CreateIncident(ctx context.Context, uploadID, caseName, body string) (*model.Incident, error) {
	args := m.Called(ctx, uploadID, caseName, body)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Incident), args.Error(1)
}

func (m *mockStore) CreateAnalysis(ctx context.Context, incidentID string, rec model.AnalysisRecord, aiModel, raw string) (*model.Analysis, error) {
	args := m.Called(ctx, incidentID, rec, aiModel, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Analysis), args.Error(1)
}

func (m *mockStore) ListIncidents(ctx context.Context, filter store.IncidentFilter) ([]model.IncidentView, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.IncidentView), args.Error(1)
}

func (m *mockStore) Stats(ctx context.Context) (*store.DashboardStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.DashboardStats), args.Error(1)
}

func (m *mockStore) Reset(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Migrate(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockStore) Close() error {
	return m.Called().Error(0)
}

const testDoc = `Test Case 1: login failures
Users in the EU region could not log in for twenty minutes after the morning deploy because the session service rejected all tokens.

Test Case 2: slow checkout
Checkout latency rose above five seconds for a subset of users while the payment provider was degraded, recovering without intervention.`

func newTestPipeline(client *mockClient, st store.Store) *Pipeline {
	a := NewAnalyzer(client, "claude-haiku-4-5-20251001", zeroDelayRetry(2), 1)
	return New(a, st, "claude-haiku-4-5-20251001")
}

func TestPipeline_Run_TwoSections(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Times(2)

	p := newTestPipeline(client, nil)
	result, err := p.Run(context.Background(), testDoc)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalIncidents)
	require.Len(t, result.Incidents, 2)
	assert.Equal(t, "Test Case 1: Login Failures", result.Incidents[0].Case)
	assert.Equal(t, "Test Case 2: Slow Checkout", result.Incidents[1].Case)
	assert.Equal(t, "Disk full", result.Incidents[0].Record.RootCause)
	assert.False(t, result.Incidents[0].Fallback)
	assert.Equal(t, 200, result.TokenUsage.InputTokens)
	client.AssertExpectations(t)
}

func TestPipeline_Run_FallbackStillYieldsRecord(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse("not json"), nil)

	p := newTestPipeline(client, nil)
	result, err := p.Run(context.Background(), testDoc)
	require.NoError(t, err)

	require.Len(t, result.Incidents, 2)
	for _, inc := range result.Incidents {
		assert.True(t, inc.Fallback)
		assert.Equal(t, "Error", inc.Record.Category)
		assert.Equal(t, model.SeverityUnknown, inc.Record.Severity)
	}
}

func TestPipeline_Run_CancelledContext(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, context.Canceled).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newTestPipeline(client, nil)
	_, err := p.Run(ctx, testDoc)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_Ingest_PersistsAll(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Times(2)

	st := new(mockStore)
	st.On("CreateUpload", mock.Anything, "report.pdf").
		Return(&model.Upload{ID: "up-1", Filename: "report.pdf"}, nil).Once()
	st.On("CreateIncident", mock.Anything, "up-1", "Test Case 1: Login Failures", mock.Anything).
		Return(&model.Incident{ID: "inc-1"}, nil).Once()
	st.On("CreateIncident", mock.Anything, "up-1", "Test Case 2: Slow Checkout", mock.Anything).
		Return(&model.Incident{ID: "inc-2"}, nil).Once()
	st.On("CreateAnalysis", mock.Anything, "inc-1", mock.Anything, "claude-haiku-4-5-20251001", mock.Anything).
		Return(&model.Analysis{ID: "a-1"}, nil).Once()
	st.On("CreateAnalysis", mock.Anything, "inc-2", mock.Anything, "claude-haiku-4-5-20251001", mock.Anything).
		Return(&model.Analysis{ID: "a-2"}, nil).Once()

	p := newTestPipeline(client, st)
	upload, result, err := p.Ingest(context.Background(), "report.pdf", testDoc)
	require.NoError(t, err)

	assert.Equal(t, "up-1", upload.ID)
	assert.Equal(t, 2, result.TotalIncidents)
	st.AssertExpectations(t)
}

func TestPipeline_Ingest_NilStoreSkipsPersistence(t *testing.T) {
	client := new(mockClient)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(textResponse(validAnalysis), nil).Times(2)

	p := newTestPipeline(client, nil)
	upload, result, err := p.Ingest(context.Background(), "report.pdf", testDoc)
	require.NoError(t, err)

	assert.Nil(t, upload)
	assert.Equal(t, 2, result.TotalIncidents)
}
