package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/innoventors/incident-cli/internal/model"
)

// fieldLabels maps record fields to the labels recognized by delimiter-based
// extraction, in prompt order (root cause first).
var fieldLabels = []struct {
	key     string
	pattern *regexp.Regexp
}{
	{"root_cause", regexp.MustCompile(`(?i)\broot\s*cause\s*[:\-]`)},
	{"summary", regexp.MustCompile(`(?i)\bsummary\s*[:\-]`)},
	{"recommendation", regexp.MustCompile(`(?i)\brecommendation\s*[:\-]`)},
	{"category", regexp.MustCompile(`(?i)\bcategory\s*[:\-]`)},
	{"severity", regexp.MustCompile(`(?i)\bseverity\s*[:\-]`)},
}

// CoerceFields normalizes raw model output into an AnalysisRecord. Strict
// JSON is tried first; on failure, values are extracted by field labels; if
// no label is found the whole text lands in summary. Missing fields default
// to sentinel values. CoerceFields never fails.
func CoerceFields(raw string) model.AnalysisRecord {
	rec := model.AnalysisRecord{
		RootCause:      model.SentinelNA,
		Summary:        model.SentinelNA,
		Recommendation: model.SentinelNA,
		Category:       model.SentinelUncategorized,
		Severity:       model.SeverityUnknown,
	}

	cleaned := cleanJSON(raw)
	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err == nil {
		if v := stringValue(obj["root_cause"]); v != "" {
			rec.RootCause = v
		}
		if v := stringValue(obj["summary"]); v != "" {
			rec.Summary = v
		}
		if v := stringValue(obj["recommendation"]); v != "" {
			rec.Recommendation = v
		}
		if v := stringValue(obj["category"]); v != "" {
			rec.Category = v
		}
		if v := stringValue(obj["severity"]); v != "" {
			rec.Severity = model.ParseSeverity(strings.Trim(v, ". "))
		}
		return rec
	}

	return coerceFromLabels(raw, rec)
}

// coerceFromLabels extracts field values by locating "<Label>:" markers in
// free text. Each value runs from the end of its marker to the start of the
// next recognized marker.
func coerceFromLabels(raw string, rec model.AnalysisRecord) model.AnalysisRecord {
	type marker struct {
		key        string
		start, end int
	}

	var markers []marker
	for _, fl := range fieldLabels {
		if loc := fl.pattern.FindStringIndex(raw); loc != nil {
			markers = append(markers, marker{key: fl.key, start: loc[0], end: loc[1]})
		}
	}

	if len(markers) == 0 {
		if text := strings.TrimSpace(raw); text != "" {
			rec.Summary = text
		}
		return rec
	}

	// Order markers by position so each value stops at the next label,
	// whatever order the model emitted them in.
	for i := 1; i < len(markers); i++ {
		for j := i; j > 0 && markers[j].start < markers[j-1].start; j-- {
			markers[j], markers[j-1] = markers[j-1], markers[j]
		}
	}

	for i, m := range markers {
		end := len(raw)
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		val := strings.TrimSpace(strings.TrimLeft(raw[m.end:end], ":-– \t"))
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		switch m.key {
		case "root_cause":
			rec.RootCause = val
		case "summary":
			rec.Summary = val
		case "recommendation":
			rec.Recommendation = val
		case "category":
			rec.Category = strings.Trim(val, ". ")
		case "severity":
			rec.Severity = model.ParseSeverity(strings.Trim(val, ". "))
		}
	}
	return rec
}

// stringValue renders a JSON value as a trimmed string; nil and empty values
// yield "".
func stringValue(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

// cleanJSON attempts to extract a JSON object from text that may contain
// markdown code fences or other wrapping.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	// Strip markdown code fences.
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	// Find first { and last }.
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}
