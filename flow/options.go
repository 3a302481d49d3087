package flow

import (
	"runtime"
	"time"

	"github.com/dshills/flowgraph-go/flow/emit"
	"github.com/dshills/flowgraph-go/flow/store"
)

// Status is a node execution state reported through the status callback and
// the event stream.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// StatusCallback observes node status transitions. It is invoked from the
// executor goroutine only; implementations must be cheap and must not block.
// A UI observer should marshal to its own event loop.
type StatusCallback func(nodeID string, status Status)

// config collects executor configuration before defaults are applied.
type config struct {
	maxWorkers  int
	idleTimeout time.Duration
	reapPoll    time.Duration
	runID       string
	emitter     emit.Emitter
	metrics     *Metrics
	recorder    store.Recorder
	callback    StatusCallback
}

func defaultConfig() config {
	return config{
		maxWorkers:  runtime.NumCPU(),
		idleTimeout: 20 * time.Second,
		reapPoll:    100 * time.Millisecond,
	}
}

// Option is a functional option for configuring an Executor.
type Option func(*config)

// WithMaxWorkers sets the worker pool size. Defaults to runtime.NumCPU().
// A dispatch pass runs only while fewer than twice this many firings are in
// flight; the overshoot keeps the pool's input queue warm. One pass submits
// every ready node, so in-flight work can exceed twice this value, but never
// more than one firing per node.
func WithMaxWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxWorkers = n
		}
	}
}

// WithIdleTimeout sets how long the executor tolerates a fully idle loop with
// pending queue data before declaring a soft deadlock. Defaults to 20s. The
// timer is reset by every dispatch and every completion, so a single slow
// node does not trip it.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.idleTimeout = d
		}
	}
}

// WithEmitter routes the executor's observability events to the given
// emitter. Defaults to a text LogEmitter on stdout, which preserves the
// engine's diagnostic surface ("Execution finished …", "Error executing
// node …", "Deadlock detected? …"). Use emit.NewNullEmitter to silence it.
func WithEmitter(e emit.Emitter) Option {
	return func(c *config) { c.emitter = e }
}

// WithMetrics enables Prometheus metrics collection for this executor.
func WithMetrics(m *Metrics) Option {
	return func(c *config) { c.metrics = m }
}

// WithRecorder persists run history (one row per firing plus a run summary)
// to the given recorder. The engine itself keeps no state between runs; the
// recorder is an external collaborator.
func WithRecorder(r store.Recorder) Option {
	return func(c *config) { c.recorder = r }
}

// WithStatusCallback registers an observer for node status transitions.
func WithStatusCallback(cb StatusCallback) Option {
	return func(c *config) { c.callback = cb }
}

// WithRunID fixes the run identifier instead of generating one per Run.
// Useful for correlating events, metrics and recorder rows with an external
// id.
func WithRunID(id string) Option {
	return func(c *config) { c.runID = id }
}
