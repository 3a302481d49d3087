// Package store provides optional run-history persistence for pipeline
// execution.
//
// The engine itself keeps no state between runs; a Recorder is an external
// collaborator the caller plugs into the executor to keep an audit trail of
// firings and run outcomes. Implementations: in-memory (testing,
// dashboards), SQLite (zero-setup local persistence) and MySQL (shared
// deployments).
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested run id does not exist.
var ErrNotFound = errors.New("not found")

// FiringRecord is one node firing: which node ran, in what order, how long it
// took and how it ended.
type FiringRecord struct {
	// RunID identifies the pipeline run.
	RunID string

	// Seq is the firing's completion order within the run (1-indexed).
	Seq int

	// NodeID is the node that fired.
	NodeID string

	// Status is the outcome, "completed" or "error".
	Status string

	// Error holds the error text for failed firings, empty otherwise.
	Error string

	// Latency is the firing duration, from the start of Execute on a worker
	// to its return; time spent waiting for a free worker is not included.
	Latency time.Duration

	// At is when the firing completed.
	At time.Time
}

// RunRecord summarizes one pipeline run.
type RunRecord struct {
	// RunID identifies the run.
	RunID string

	// StartedAt and FinishedAt bound the run. FinishedAt is zero while the
	// run is in progress.
	StartedAt  time.Time
	FinishedAt time.Time

	// Fired is the number of completed firings, successful or not.
	Fired int

	// Errors is the number of failed firings.
	Errors int

	// Deadlocked reports whether the run ended via idle-with-pending-data
	// deadlock detection rather than quiescence.
	Deadlocked bool
}

// Recorder persists run history. The executor calls BeginRun once at run
// start, RecordFiring for every reaped firing, and FinishRun once at run end.
// All calls come from the executor goroutine; implementations still guard
// their state because one Recorder may serve several executors.
type Recorder interface {
	// BeginRun registers a new run.
	BeginRun(ctx context.Context, runID string, startedAt time.Time) error

	// RecordFiring appends one firing to the run's history.
	RecordFiring(ctx context.Context, rec FiringRecord) error

	// FinishRun stores the run's final summary.
	FinishRun(ctx context.Context, rec RunRecord) error

	// Close releases any backing resources.
	Close() error
}
