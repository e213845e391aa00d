package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/innoventors/incident-cli/internal/model"
)

func TestCoerceFields_ValidJSON(t *testing.T) {
	raw := `{"root_cause":"Disk full","summary":"Service crashed","recommendation":"Add alerts","category":"Infrastructure","severity":"High"}`

	rec := CoerceFields(raw)

	assert.Equal(t, "Disk full", rec.RootCause)
	assert.Equal(t, "Service crashed", rec.Summary)
	assert.Equal(t, "Add alerts", rec.Recommendation)
	assert.Equal(t, "Infrastructure", rec.Category)
	assert.Equal(t, model.SeverityHigh, rec.Severity)
}

func TestCoerceFields_FencedJSON(t *testing.T) {
	raw := "```json\n{\"root_cause\":\"Bad deploy\",\"summary\":\"Errors\",\"recommendation\":\"Rollback\",\"category\":\"Release\",\"severity\":\"medium\"}\n```"

	rec := CoerceFields(raw)

	assert.Equal(t, "Bad deploy", rec.RootCause)
	assert.Equal(t, model.SeverityMedium, rec.Severity)
}

func TestCoerceFields_PartialJSON_SentinelsFillGaps(t *testing.T) {
	raw := `{"summary":"Only a summary"}`

	rec := CoerceFields(raw)

	assert.Equal(t, model.SentinelNA, rec.RootCause)
	assert.Equal(t, "Only a summary", rec.Summary)
	assert.Equal(t, model.SentinelNA, rec.Recommendation)
	assert.Equal(t, model.SentinelUncategorized, rec.Category)
	assert.Equal(t, model.SeverityUnknown, rec.Severity)
}

func TestCoerceFields_NullAndEmptyValues(t *testing.T) {
	raw := `{"root_cause":null,"summary":"  ","severity":"High."}`

	rec := CoerceFields(raw)

	assert.Equal(t, model.SentinelNA, rec.RootCause)
	assert.Equal(t, model.SentinelNA, rec.Summary)
	assert.Equal(t, model.SeverityHigh, rec.Severity)
}

func TestCoerceFields_LabelExtraction(t *testing.T) {
	raw := "Root Cause: disk filled up overnight. Summary: the service crashed. Recommendation: add disk alerts. Category: Infrastructure. Severity: High"

	rec := CoerceFields(raw)

	assert.Equal(t, "disk filled up overnight.", rec.RootCause)
	assert.Equal(t, "the service crashed.", rec.Summary)
	assert.Equal(t, "add disk alerts.", rec.Recommendation)
	assert.Equal(t, "Infrastructure", rec.Category)
	assert.Equal(t, model.SeverityHigh, rec.Severity)
}

func TestCoerceFields_LabelExtraction_OutOfOrder(t *testing.T) {
	raw := "Summary: users saw errors. Root Cause: expired certificate."

	rec := CoerceFields(raw)

	assert.Equal(t, "users saw errors.", rec.Summary)
	assert.Equal(t, "expired certificate.", rec.RootCause)
}

func TestCoerceFields_NoLabels_WholeTextToSummary(t *testing.T) {
	raw := "The model produced plain prose instead of structured output."

	rec := CoerceFields(raw)

	assert.Equal(t, raw, rec.Summary)
	assert.Equal(t, model.SentinelNA, rec.RootCause)
	assert.Equal(t, model.SentinelUncategorized, rec.Category)
}

func TestCoerceFields_EmptyInput(t *testing.T) {
	rec := CoerceFields("")

	assert.Equal(t, model.SentinelNA, rec.RootCause)
	assert.Equal(t, model.SentinelNA, rec.Summary)
	assert.Equal(t, model.SentinelNA, rec.Recommendation)
	assert.Equal(t, model.SentinelUncategorized, rec.Category)
	assert.Equal(t, model.SeverityUnknown, rec.Severity)
}

func TestCoerceFields_FallbackRecordRoundTrip(t *testing.T) {
	raw := fallbackAnalysis(model.Section{Title: "Test Case 1", Body: "short"}, 2)

	rec := CoerceFields(raw)

	assert.Equal(t, "AI parsing failed after 2 attempts.", rec.RootCause)
	assert.Equal(t, "short", rec.Summary)
	assert.Equal(t, "Manual review required.", rec.Recommendation)
	assert.Equal(t, "Error", rec.Category)
	assert.Equal(t, model.SeverityUnknown, rec.Severity)
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("Here you go:\n```json\n{\"a\":1}\n```\nHope that helps."))
	assert.Equal(t, `{"a":1}`, cleanJSON(`leading text {"a":1} trailing text`))
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
	assert.Equal(t, "not json at all", cleanJSON("not json at all"))
}
