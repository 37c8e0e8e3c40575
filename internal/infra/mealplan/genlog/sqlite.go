package genlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	domain "github.com/yanqian/mealplan-ai/internal/domain/mealplan"
)

const sqliteSchema = `
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
	latency_ms           INTEGER NOT NULL DEFAULT 0,
	created_at           TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS plan_generations_created_at_idx ON plan_generations (created_at DESC);
`

// SQLiteLog persists generation records in a local SQLite file.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (or creates) the database at path and applies the schema.
func OpenSQLiteLog(ctx context.Context, path string) (*SQLiteLog, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent jobs
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create plan_generations: %w", err)
	}
	return &SQLiteLog{db: db}, nil
}

// Close releases the database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// Record inserts rec.
func (l *SQLiteLog) Record(ctx context.Context, rec domain.GenerationRecord) error {
	_, err := l.db.ExecContext(ctx, `
		INSERT INTO plan_generations (`+columns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, recordArgs(rec)...)
	return err
}

// Recent returns up to limit records, newest first.
func (l *SQLiteLog) Recent(ctx context.Context, limit int) ([]domain.GenerationRecord, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT `+columns+`
		FROM plan_generations
		ORDER BY created_at DESC
		LIMIT ?
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

var _ domain.GenerationLog = (*SQLiteLog)(nil)
