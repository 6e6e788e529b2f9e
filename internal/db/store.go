package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"intentgate/internal/domain"
)

// Store journals request outcomes. Nothing on the request path reads it back.
type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS request_outcomes (
			id BIGSERIAL PRIMARY KEY,
			request_id TEXT NOT NULL,
			query TEXT NOT NULL,
			action TEXT,
			backend TEXT,
			result TEXT NOT NULL,
			error_kind TEXT,
			available JSONB NOT NULL DEFAULT '[]'::jsonb,
			duration_ms BIGINT NOT NULL DEFAULT 0,
			occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE INDEX IF NOT EXISTS idx_request_outcomes_occurred ON request_outcomes(occurred_at);`,
		`CREATE INDEX IF NOT EXISTS idx_request_outcomes_result ON request_outcomes(result, occurred_at);`,
	}

	for _, q := range queries {
		if _, err := s.pool.Exec(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

// Record inserts one outcome row. The query text is stored as received; the
// credential never reaches this layer.
func (s *Store) Record(ctx context.Context, o domain.Outcome) error {
	available := o.Available
	if available == nil {
		available = []string{}
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO request_outcomes(request_id, query, action, backend, result, error_kind, available, duration_ms, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, o.RequestID, o.Query, nullIfEmpty(o.Action), nullIfEmpty(o.Backend), o.Result, nullIfEmpty(o.ErrorKind),
		available, o.Duration.Milliseconds(), o.OccurredAt)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
