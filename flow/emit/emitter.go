package emit

import "context"

// Emitter receives observability events from pipeline execution.
//
// Emitters plug different backends under the executor: stdout logging,
// in-memory capture for tests and dashboards, OpenTelemetry tracing.
// Implementations must be safe for concurrent use, must not block the
// executor loop, and must not panic; backend failures are logged internally
// and swallowed.
type Emitter interface {
	// Emit sends one event to the backend.
	Emit(event Event)

	// EmitBatch sends multiple events in order. Implementations may
	// amortize I/O across the batch. Individual event failures are logged,
	// not returned; the error is reserved for catastrophic failures.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush delivers any buffered events, blocking until done or the
	// context expires. Safe to call multiple times. The executor flushes
	// once at the end of every run.
	Flush(ctx context.Context) error
}
