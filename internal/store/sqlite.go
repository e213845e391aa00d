package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/innoventors/incident-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id          TEXT PRIMARY KEY,
	filename    TEXT NOT NULL,
	uploaded_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS incidents (
	id         TEXT PRIMARY KEY,
	upload_id  TEXT NOT NULL REFERENCES uploads(id),
	case_name  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	incident_id    TEXT NOT NULL REFERENCES incidents(id),
	root_cause     TEXT NOT NULL,
	summary        TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	category       TEXT NOT NULL,
	severity       TEXT NOT NULL,
	ai_model       TEXT NOT NULL DEFAULT '',
	raw            TEXT NOT NULL DEFAULT '',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_incidents_upload_id ON incidents(upload_id);
CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_incident_id ON analyses(incident_id);
CREATE INDEX IF NOT EXISTS idx_analyses_severity ON analyses(severity);
CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(category);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateUpload(ctx context.Context, filename string) (*model.Upload, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO uploads (id, filename, uploaded_at) VALUES (?, ?, ?)`,
		id, filename, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert upload")
	}

	return &model.Upload{ID: id, Filename: filename, UploadedAt: now}, nil
}

func (s *SQLiteStore) CreateIncident(ctx context.Context, uploadID, caseName, body string) (*model.Incident, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO incidents (id, upload_id, case_name, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, uploadID, caseName, body, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert incident for upload %s", uploadID)
	}

	return &model.Incident{
		ID:        id,
		UploadID:  uploadID,
		CaseName:  caseName,
		Body:      body,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) CreateAnalysis(ctx context.Context, incidentID string, rec model.AnalysisRecord, aiModel, raw string) (*model.Analysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, incident_id, root_cause, summary, recommendation, category, severity, ai_model, raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, incidentID, rec.RootCause, rec.Summary, rec.Recommendation, rec.Category, string(rec.Severity), aiModel, raw, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for incident %s", incidentID)
	}

	return &model.Analysis{
		ID:             id,
		IncidentID:     incidentID,
		RootCause:      rec.RootCause,
		Summary:        rec.Summary,
		Recommendation: rec.Recommendation,
		Category:       rec.Category,
		Severity:       rec.Severity,
		AIModel:        aiModel,
		Raw:            raw,
		CreatedAt:      now,
	}, nil
}

func (s *SQLiteStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.IncidentView, error) {
	query := `
		SELECT i.id, i.case_name, u.filename, u.uploaded_at,
		       COALESCE(a.root_cause, ''), COALESCE(a.summary, ''),
		       COALESCE(a.recommendation, ''), COALESCE(a.category, ''),
		       COALESCE(a.severity, '')
		FROM incidents i
		JOIN uploads u ON i.upload_id = u.id
		LEFT JOIN analyses a ON a.incident_id = i.id
		WHERE 1=1`
	var args []any

	if filter.Severity != "" {
		query += ` AND a.severity = ?`
		args = append(args, string(filter.Severity))
	}
	if filter.Category != "" {
		query += ` AND a.category = ?`
		args = append(args, filter.Category)
	}
	if filter.File != "" {
		query += ` AND u.filename = ?`
		args = append(args, filter.File)
	}
	if filter.Search != "" {
		query += ` AND (i.case_name LIKE ? OR a.summary LIKE ? OR a.root_cause LIKE ?)`
		needle := "%" + filter.Search + "%"
		args = append(args, needle, needle, needle)
	}
	query += ` ORDER BY i.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list incidents")
	}
	defer rows.Close()

	var out []model.IncidentView
	for rows.Next() {
		var v model.IncidentView
		var severity string
		if err := rows.Scan(&v.ID, &v.CaseName, &v.File, &v.UploadedAt,
			&v.RootCause, &v.Summary, &v.Recommendation, &v.Category, &severity); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan incident")
		}
		v.Severity = model.Severity(severity)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list incidents iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&stats.Total); err != nil {
		return nil, eris.Wrap(err, "sqlite: count incidents")
	}

	bySeverity, err := s.countBy(ctx, `SELECT severity, COUNT(*) FROM analyses GROUP BY severity ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: severity stats")
	}
	stats.BySeverity = bySeverity

	byCategory, err := s.countBy(ctx, `SELECT category, COUNT(*) FROM analyses GROUP BY category ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: category stats")
	}
	stats.ByCategory = byCategory

	return stats, nil
}

func (s *SQLiteStore) countBy(ctx context.Context, query string) ([]StatCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StatCount
	for rows.Next() {
		var sc StatCount
		if err := rows.Scan(&sc.Label, &sc.Count); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Reset(ctx context.Context) error {
	// Child tables first to satisfy foreign keys.
	for _, table := range []string{"analyses", "incidents", "uploads"} {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return eris.Wrapf(err, "sqlite: reset %s", table)
		}
	}
	return nil
}
