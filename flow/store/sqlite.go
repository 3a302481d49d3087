package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLite is a Recorder backed by a single-file SQLite database. Zero-setup
// persistence for local pipelines: the file and schema are created on first
// use and WAL mode keeps readers from blocking the recording writer.
//
// Use ":memory:" as the path for a throwaway database in tests.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS pipeline_runs (
	run_id      TEXT PRIMARY KEY,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	fired       INTEGER NOT NULL DEFAULT 0,
	errors      INTEGER NOT NULL DEFAULT 0,
	deadlocked  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS pipeline_firings (
	run_id     TEXT NOT NULL,
	seq        INTEGER NOT NULL,
	node_id    TEXT NOT NULL,
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	latency_ms INTEGER NOT NULL,
	at         TIMESTAMP NOT NULL,
	PRIMARY KEY (run_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_firings_node ON pipeline_firings(run_id, node_id);
`

// NewSQLite opens (creating if needed) the database at path and prepares the
// schema.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

// BeginRun inserts the run row.
func (s *SQLite) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO pipeline_runs (run_id, started_at) VALUES (?, ?)`,
		runID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// RecordFiring inserts one firing row.
func (s *SQLite) RecordFiring(ctx context.Context, rec FiringRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pipeline_firings (run_id, seq, node_id, status, error, latency_ms, at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Seq, rec.NodeID, rec.Status, rec.Error,
		rec.Latency.Milliseconds(), rec.At.UTC())
	if err != nil {
		return fmt.Errorf("record firing %s/%d: %w", rec.RunID, rec.Seq, err)
	}
	return nil
}

// FinishRun updates the run row with its final summary.
func (s *SQLite) FinishRun(ctx context.Context, rec RunRecord) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET finished_at = ?, fired = ?, errors = ?, deadlocked = ?
		 WHERE run_id = ?`,
		rec.FinishedAt.UTC(), rec.Fired, rec.Errors, boolToInt(rec.Deadlocked), rec.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", rec.RunID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// Run loads the summary row for a run id.
func (s *SQLite) Run(ctx context.Context, runID string) (RunRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, fired, errors, deadlocked
		 FROM pipeline_runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var finishedAt sql.NullTime
	var deadlocked int
	if err := row.Scan(&rec.RunID, &rec.StartedAt, &finishedAt,
		&rec.Fired, &rec.Errors, &deadlocked); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	if finishedAt.Valid {
		rec.FinishedAt = finishedAt.Time
	}
	rec.Deadlocked = deadlocked != 0
	return rec, nil
}

// History loads the run's firings in sequence order.
func (s *SQLite) History(ctx context.Context, runID string) ([]FiringRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seq, node_id, status, error, latency_ms, at
		 FROM pipeline_firings WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", runID, err)
	}
	defer func() { _ = rows.Close() }()

	var out []FiringRecord
	for rows.Next() {
		var rec FiringRecord
		var latencyMs int64
		if err := rows.Scan(&rec.RunID, &rec.Seq, &rec.NodeID, &rec.Status,
			&rec.Error, &latencyMs, &rec.At); err != nil {
			return nil, fmt.Errorf("scan firing: %w", err)
		}
		rec.Latency = time.Duration(latencyMs) * time.Millisecond
		out = append(out, rec)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
