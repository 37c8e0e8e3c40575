package genlog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS plan_generations (
	id                   TEXT PRIMARY KEY,
	request_id           TEXT NOT NULL DEFAULT '',
	mode                 TEXT NOT NULL,
	status               TEXT NOT NULL,
	failure_code         TEXT NOT NULL DEFAULT '',
	failed_stage         TEXT NOT NULL DEFAULT '',
	model                TEXT NOT NULL DEFAULT '',
	prompt_version       TEXT NOT NULL,
	prompt_tokens        INTEGER NOT NULL DEFAULT 0,
	completion_tokens    INTEGER NOT NULL DEFAULT 0,
	requested_days       INTEGER NOT NULL DEFAULT 0,
	returned_days        INTEGER NOT NULL DEFAULT 0,
	integrity_violations INTEGER NOT NULL DEFAULT 0,
	repair_attempts      INTEGER NOT NULL DEFAULT 0,
	latency_ms           BIGINT NOT NULL DEFAULT 0,
	created_at           TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS plan_generations_created_at_idx ON plan_generations (created_at DESC);
`

// PostgresLog persists generation records with pgx.
type PostgresLog struct {
	pool *pgxpool.Pool
}

// NewPostgresLog constructs the log.
func NewPostgresLog(pool *pgxpool.Pool) *PostgresLog {
	return &PostgresLog{pool: pool}
}

// EnsureSchema creates the table when it does not exist.
func (l *PostgresLog) EnsureSchema(ctx context.Context) error {
	if _, err := l.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("create plan_generations: %w", err)
	}
	return nil
}

// Record inserts rec.
func (l *PostgresLog) Record(ctx context.Context, rec domain.GenerationRecord) error {
	_, err := l.pool.Exec(ctx, `
		INSERT INTO plan_generations (`+columns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`, recordArgs(rec)...)
	return err
}

// Recent returns up to limit records, newest first.
func (l *PostgresLog) Recent(ctx context.Context, limit int) ([]domain.GenerationRecord, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT `+columns+`
		FROM plan_generations
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.GenerationRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.GenerationLog = (*PostgresLog)(nil)
