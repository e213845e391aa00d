package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSeverity(t *testing.T) {
	tests := []struct {
		in   string
		want Severity
	}{
		{"Low", SeverityLow},
		{"low", SeverityLow},
		{" MEDIUM ", SeverityMedium},
		{"High", SeverityHigh},
		{"critical", SeverityUnknown},
		{"", SeverityUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSeverity(tt.in), "input %q", tt.in)
	}
}

func TestAnalysisRecord_JSONKeys(t *testing.T) {
	rec := AnalysisRecord{
		RootCause:      "Disk full",
		Summary:        "Crash",
		Recommendation: "Alerts",
		Category:       "Infrastructure",
		Severity:       SeverityHigh,
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var m map[string]string
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "Disk full", m["root_cause"])
	assert.Equal(t, "Crash", m["summary"])
	assert.Equal(t, "Alerts", m["recommendation"])
	assert.Equal(t, "Infrastructure", m["category"])
	assert.Equal(t, "High", m["severity"])
}

func TestTokenUsage_Add(t *testing.T) {
	var u TokenUsage
	u.Add(TokenUsage{InputTokens: 100, OutputTokens: 50, Cost: 0.01})
	u.Add(TokenUsage{InputTokens: 20, OutputTokens: 10, Cost: 0.002})

	assert.Equal(t, 120, u.InputTokens)
	assert.Equal(t, 60, u.OutputTokens)
	assert.InDelta(t, 0.012, u.Cost, 1e-9)
}
