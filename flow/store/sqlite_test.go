package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_RunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	started := time.Now()

	if err := s.BeginRun(ctx, "run-1", started); err != nil {
		t.Fatalf("BeginRun failed: %v", err)
	}
	if err := s.RecordFiring(ctx, FiringRecord{
		RunID: "run-1", Seq: 1, NodeID: "src", Status: "completed",
		Latency: 7 * time.Millisecond, At: time.Now(),
	}); err != nil {
		t.Fatalf("RecordFiring failed: %v", err)
	}
	if err := s.RecordFiring(ctx, FiringRecord{
		RunID: "run-1", Seq: 2, NodeID: "fail", Status: "error", Error: "boom",
		At: time.Now(),
	}); err != nil {
		t.Fatalf("RecordFiring failed: %v", err)
	}
	if err := s.FinishRun(ctx, RunRecord{
		RunID: "run-1", FinishedAt: time.Now(), Fired: 2, Errors: 1, Deadlocked: false,
	}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	rec, err := s.Run(ctx, "run-1")
	if err != nil {
		t.Fatalf("Run lookup failed: %v", err)
	}
	if rec.Fired != 2 || rec.Errors != 1 || rec.Deadlocked {
		t.Errorf("run record %+v, want fired=2 errors=1 deadlocked=false", rec)
	}

	history, err := s.History(ctx, "run-1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history has %d firings, want 2", len(history))
	}
	if history[0].NodeID != "src" || history[0].Latency != 7*time.Millisecond {
		t.Errorf("firing 1 = %+v", history[0])
	}
	if history[1].Status != "error" || history[1].Error != "boom" {
		t.Errorf("firing 2 = %+v", history[1])
	}
}

func TestSQLite_DeadlockedFlag(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	_ = s.BeginRun(ctx, "run-d", time.Now())
	if err := s.FinishRun(ctx, RunRecord{
		RunID: "run-d", FinishedAt: time.Now(), Deadlocked: true,
	}); err != nil {
		t.Fatalf("FinishRun failed: %v", err)
	}

	rec, err := s.Run(ctx, "run-d")
	if err != nil {
		t.Fatalf("Run lookup failed: %v", err)
	}
	if !rec.Deadlocked {
		t.Error("deadlocked flag not persisted")
	}
}

func TestSQLite_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)
	if _, err := s.Run(ctx, "absent"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
	history, err := s.History(ctx, "absent")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("history of unknown run has %d entries, want 0", len(history))
	}
}
