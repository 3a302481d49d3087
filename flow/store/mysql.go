package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQL is a Recorder backed by a MySQL database, for deployments where run
// history is shared across hosts. Same schema as the SQLite recorder.
//
// The DSN must include parseTime=true so TIMESTAMP columns scan into
// time.Time:
//
//	rec, err := store.NewMySQL("user:pass@tcp(localhost:3306)/flowgraph?parseTime=true")
type MySQL struct {
	db *sql.DB
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id      VARCHAR(191) PRIMARY KEY,
		started_at  TIMESTAMP(3) NOT NULL,
		finished_at TIMESTAMP(3) NULL,
		fired       INT NOT NULL DEFAULT 0,
		errors      INT NOT NULL DEFAULT 0,
		deadlocked  TINYINT(1) NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS pipeline_firings (
		run_id     VARCHAR(191) NOT NULL,
		seq        INT NOT NULL,
		node_id    VARCHAR(191) NOT NULL,
		status     VARCHAR(16) NOT NULL,
		error      TEXT NOT NULL,
		latency_ms BIGINT NOT NULL,
		at         TIMESTAMP(3) NOT NULL,
		PRIMARY KEY (run_id, seq),
		INDEX idx_firings_node (run_id, node_id)
	)`,
}

// NewMySQL connects to the database described by dsn and prepares the schema.
func NewMySQL(dsn string) (*MySQL, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	for _, stmt := range mysqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &MySQL{db: db}, nil
}

// BeginRun inserts the run row.
func (m *MySQL) BeginRun(ctx context.Context, runID string, startedAt time.Time) error {
	_, err := m.db.ExecContext(ctx,
		`REPLACE INTO pipeline_runs (run_id, started_at) VALUES (?, ?)`,
		runID, startedAt.UTC())
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// RecordFiring inserts one firing row.
func (m *MySQL) RecordFiring(ctx context.Context, rec FiringRecord) error {
	_, err := m.db.ExecContext(ctx,
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
func (m *MySQL) FinishRun(ctx context.Context, rec RunRecord) error {
	_, err := m.db.ExecContext(ctx,
		`UPDATE pipeline_runs
		 SET finished_at = ?, fired = ?, errors = ?, deadlocked = ?
		 WHERE run_id = ?`,
		rec.FinishedAt.UTC(), rec.Fired, rec.Errors, rec.Deadlocked, rec.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", rec.RunID, err)
	}
	return nil
}

// Close closes the connection pool.
func (m *MySQL) Close() error { return m.db.Close() }

// Run loads the summary row for a run id.
func (m *MySQL) Run(ctx context.Context, runID string) (RunRecord, error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, fired, errors, deadlocked
		 FROM pipeline_runs WHERE run_id = ?`, runID)

	var rec RunRecord
	var finishedAt sql.NullTime
	if err := row.Scan(&rec.RunID, &rec.StartedAt, &finishedAt,
		&rec.Fired, &rec.Errors, &rec.Deadlocked); err != nil {
		if err == sql.ErrNoRows {
			return RunRecord{}, ErrNotFound
		}
		return RunRecord{}, fmt.Errorf("load run %s: %w", runID, err)
	}
	if finishedAt.Valid {
		rec.FinishedAt = finishedAt.Time
	}
	return rec, nil
}

// History loads the run's firings in sequence order.
func (m *MySQL) History(ctx context.Context, runID string) ([]FiringRecord, error) {
	rows, err := m.db.QueryContext(ctx,
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
