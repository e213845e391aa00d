package model

import (
	"strings"
	"time"
)

// Severity classifies how serious an incident is. Model output is normalized
// to one of these values; anything unrecognized maps to SeverityUnknown.
type Severity string

const (
	SeverityLow     Severity = "Low"
	SeverityMedium  Severity = "Medium"
	SeverityHigh    Severity = "High"
	SeverityUnknown Severity = "Unknown"
)

// ParseSeverity normalizes a free-form severity string to a Severity value.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return SeverityLow
	case "medium":
		return SeverityMedium
	case "high":
		return SeverityHigh
	default:
		return SeverityUnknown
	}
}

// Sentinel defaults for AnalysisRecord fields. Downstream consumers compare
// against these instead of null-checking.
const (
	SentinelNA            = "N/A"
	SentinelUncategorized = "Uncategorized"
)

// Section is one detected incident unit within an uploaded document.
type Section struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// IncidentAnalysisResult pairs a section title with the raw model output for
// that section, before field coercion. Fallback marks results synthesized
// after retries were exhausted.
type IncidentAnalysisResult struct {
	Case     string `json:"case"`
	Analysis string `json:"analysis"`
	Fallback bool   `json:"fallback,omitempty"`
}

// AnalysisRecord is the fixed five-field schema every model response is
// coerced into. Fields are never empty; missing data is filled with
// sentinel values.
type AnalysisRecord struct {
	RootCause      string   `json:"root_cause"`
	Summary        string   `json:"summary"`
	Recommendation string   `json:"recommendation"`
	Category       string   `json:"category"`
	Severity       Severity `json:"severity"`
}

// IncidentResult is one fully processed section: the detected case plus the
// coerced record and the raw model output it came from.
type IncidentResult struct {
	Case     string         `json:"case"`
	Body     string         `json:"body,omitempty"`
	Record   AnalysisRecord `json:"record"`
	Raw      string         `json:"raw_analysis,omitempty"`
	Fallback bool           `json:"fallback,omitempty"`
}

// PipelineResult is the output of one pipeline invocation over a document.
type PipelineResult struct {
	TotalIncidents int              `json:"total_incidents"`
	Incidents      []IncidentResult `json:"incidents"`
	TokenUsage     TokenUsage       `json:"token_usage"`
	Duration       int64            `json:"duration_ms"`
}

// Upload is a persisted source document.
type Upload struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Incident is a persisted section tied to an upload.
type Incident struct {
	ID        string    `json:"id"`
	UploadID  string    `json:"upload_id"`
	CaseName  string    `json:"case_name"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Analysis is a persisted coerced record tied to an incident.
type Analysis struct {
	ID             string    `json:"id"`
	IncidentID     string    `json:"incident_id"`
	RootCause      string    `json:"root_cause"`
	Summary        string    `json:"summary"`
	Recommendation string    `json:"recommendation"`
	Category       string    `json:"category"`
	Severity       Severity  `json:"severity"`
	AIModel        string    `json:"ai_model"`
	Raw            string    `json:"raw,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IncidentView is the joined row served to the dashboard: incident + file +
// analysis details in one flat shape.
type IncidentView struct {
	ID             string    `json:"id"`
	CaseName       string    `json:"case_name"`
	File           string    `json:"file"`
	UploadedAt     time.Time `json:"uploaded_at"`
	RootCause      string    `json:"root_cause"`
	Summary        string    `json:"summary"`
	Recommendation string    `json:"recommendation"`
	Category       string    `json:"category"`
	Severity       Severity  `json:"severity"`
}
