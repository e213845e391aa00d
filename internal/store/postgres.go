package store

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/innoventors/incident-cli/internal/db"
	"github.com/innoventors/incident-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hot insert path.
var preparedStatements = map[string]string{
	"insert_upload":   `INSERT INTO uploads (id, filename, uploaded_at) VALUES ($1, $2, $3)`,
	"insert_incident": `INSERT INTO incidents (id, upload_id, case_name, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
	"insert_analysis": `INSERT INTO analyses (id, incident_id, root_cause, summary, recommendation, category, severity, ai_model, raw, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresFromPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS uploads (
	id          UUID PRIMARY KEY,
	filename    TEXT NOT NULL,
	uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS incidents (
	id         UUID PRIMARY KEY,
	upload_id  UUID NOT NULL REFERENCES uploads(id),
	case_name  TEXT NOT NULL,
	body       TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id             UUID PRIMARY KEY,
	incident_id    UUID NOT NULL REFERENCES incidents(id),
	root_cause     TEXT NOT NULL,
	summary        TEXT NOT NULL,
	recommendation TEXT NOT NULL,
	category       TEXT NOT NULL,
	severity       TEXT NOT NULL,
	ai_model       TEXT NOT NULL DEFAULT '',
	raw            TEXT NOT NULL DEFAULT '',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_incidents_upload_id ON incidents(upload_id);
CREATE INDEX IF NOT EXISTS idx_incidents_created_at ON incidents(created_at);
CREATE INDEX IF NOT EXISTS idx_analyses_incident_id ON analyses(incident_id);
CREATE INDEX IF NOT EXISTS idx_analyses_severity ON analyses(severity);
CREATE INDEX IF NOT EXISTS idx_analyses_category ON analyses(category);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUpload(ctx context.Context, filename string) (*model.Upload, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO uploads (id, filename, uploaded_at) VALUES ($1, $2, $3)`,
		id, filename, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert upload")
	}

	return &model.Upload{ID: id, Filename: filename, UploadedAt: now}, nil
}

func (s *PostgresStore) CreateIncident(ctx context.Context, uploadID, caseName, body string) (*model.Incident, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO incidents (id, upload_id, case_name, body, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, uploadID, caseName, body, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert incident for upload %s", uploadID)
	}

	return &model.Incident{
		ID:        id,
		UploadID:  uploadID,
		CaseName:  caseName,
		Body:      body,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) CreateAnalysis(ctx context.Context, incidentID string, rec model.AnalysisRecord, aiModel, raw string) (*model.Analysis, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, incident_id, root_cause, summary, recommendation, category, severity, ai_model, raw, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, incidentID, rec.RootCause, rec.Summary, rec.Recommendation, rec.Category, string(rec.Severity), aiModel, raw, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for incident %s", incidentID)
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

func (s *PostgresStore) ListIncidents(ctx context.Context, filter IncidentFilter) ([]model.IncidentView, error) {
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
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Severity != "" {
		query += ` AND a.severity = ` + arg(string(filter.Severity))
	}
	if filter.Category != "" {
		query += ` AND a.category = ` + arg(filter.Category)
	}
	if filter.File != "" {
		query += ` AND u.filename = ` + arg(filter.File)
	}
	if filter.Search != "" {
		needle := "%" + filter.Search + "%"
		query += ` AND (i.case_name ILIKE ` + arg(needle) +
			` OR a.summary ILIKE ` + arg(needle) +
			` OR a.root_cause ILIKE ` + arg(needle) + `)`
	}
	query += ` ORDER BY i.created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list incidents")
	}
	defer rows.Close()

	var out []model.IncidentView
	for rows.Next() {
		var v model.IncidentView
		var severity string
		if err := rows.Scan(&v.ID, &v.CaseName, &v.File, &v.UploadedAt,
			&v.RootCause, &v.Summary, &v.Recommendation, &v.Category, &severity); err != nil {
			return nil, eris.Wrap(err, "postgres: scan incident")
		}
		v.Severity = model.Severity(severity)
		out = append(out, v)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list incidents iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}

	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&stats.Total); err != nil {
		return nil, eris.Wrap(err, "postgres: count incidents")
	}

	bySeverity, err := s.countBy(ctx, `SELECT severity, COUNT(*) FROM analyses GROUP BY severity ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: severity stats")
	}
	stats.BySeverity = bySeverity

	byCategory, err := s.countBy(ctx, `SELECT category, COUNT(*) FROM analyses GROUP BY category ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: category stats")
	}
	stats.ByCategory = byCategory

	return stats, nil
}

func (s *PostgresStore) countBy(ctx context.Context, query string) ([]StatCount, error) {
	rows, err := s.pool.Query(ctx, query)
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

func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, table := range []string{"analyses", "incidents", "uploads"} {
		if _, err := s.pool.Exec(ctx, `DELETE FROM `+table); err != nil {
			return eris.Wrapf(err, "postgres: reset %s", table)
		}
	}
	return nil
}
