// Package store persists uploads, incidents, and analyses behind a driver
// agnostic interface with sqlite and postgres implementations.
package store

import (
	"context"

	"github.com/innoventors/incident-cli/internal/model"
)

// IncidentFilter specifies criteria for listing incidents.
type IncidentFilter struct {
	Severity model.Severity `json:"severity,omitempty"`
	Category string         `json:"category,omitempty"`
	File     string         `json:"file,omitempty"`
	Search   string         `json:"search,omitempty"` // matches case name, summary, root cause
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// StatCount is one label bucket in a dashboard aggregate.
type StatCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DashboardStats holds the aggregates behind the dashboard charts.
type DashboardStats struct {
	Total      int         `json:"total"`
	BySeverity []StatCount `json:"by_severity"`
	ByCategory []StatCount `json:"by_category"`
}

// Store defines the persistence interface for the ingestion pipeline and
// the dashboard endpoints.
type Store interface {
	CreateUpload(ctx context.Context, filename string) (*model.Upload, error)
	CreateIncident(ctx context.Context, uploadID, caseName, body string) (*model.Incident, error)
	CreateAnalysis(ctx context.Context, incidentID string, rec model.AnalysisRecord, aiModel, raw string) (*model.Analysis, error)

	ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.IncidentView, error)
	Stats(ctx context.Context) (*DashboardStats, error)

	// Reset deletes all rows from all tables.
	Reset(ctx context.Context) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
