package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/flowgraph-go/flow/emit"
	"github.com/dshills/flowgraph-go/flow/store"
)

// Executor drives a loaded Graph until quiescence or deadlock.
//
// It is a data-driven scheduler: a single goroutine owns the per-port input
// queues and the in-flight set, finds nodes whose firing strategy is
// satisfied, dispatches them to a bounded worker pool, routes their outputs
// to downstream queues, and terminates when no work remains. Node code runs
// only inside pool workers, on snapshots, so user nodes never share mutable
// state with the scheduling loop.
//
// An Executor is not safe for concurrent use; run one Run at a time.
// The Graph may be reused across runs — port queues and run bookkeeping are
// reset at every Run.
type Executor struct {
	graph *Graph
	cfg   config

	queues          *queueSet
	inflight        map[string]struct{}
	executedSources map[string]struct{}
	eventSeq        int
}

// Result summarizes one run.
type Result struct {
	// RunID is the identifier the run's events and records were tagged with.
	RunID string

	// Fired is the number of completed firings, successful or failed.
	Fired int

	// Errors is the number of failed firings.
	Errors int

	// Deadlocked reports that the run ended with pending queue data but no
	// ready nodes for longer than the idle timeout.
	Deadlocked bool

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// firing is a ready node paired with the inputs popped for it.
type firing struct {
	nodeID string
	node   Node
	inputs Values
}

// NewExecutor creates an executor over the given graph.
//
// Defaults: worker pool sized to runtime.NumCPU(), 20s idle timeout, text
// log emitter on stdout, no metrics, no recorder.
func NewExecutor(graph *Graph, opts ...Option) *Executor {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.emitter == nil {
		cfg.emitter = emit.NewLogEmitter(nil, false)
	}
	return &Executor{graph: graph, cfg: cfg}
}

// Run executes the graph until quiescence, deadlock, or context cancellation.
//
// initial seeds the port queues before the loop starts: a map of node id to
// (input port → value). Entries naming unknown nodes or ports are not
// rejected; nothing will ever consume them.
//
// Run returns a non-nil Result in every case. The error is non-nil only for
// context cancellation; node failures and soft deadlock are reported through
// the Result, the status callback and the event stream instead (a failing
// node must not abort the rest of the graph).
func (ex *Executor) Run(ctx context.Context, initial map[string]Values) (*Result, error) {
	ex.queues = newQueueSet()
	ex.inflight = make(map[string]struct{})
	ex.executedSources = make(map[string]struct{})
	ex.eventSeq = 0

	runID := ex.cfg.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	res := &Result{RunID: runID}

	for nodeID, ports := range initial {
		for port, value := range ports {
			ex.queues.push(nodeID, port, value)
		}
	}

	start := time.Now()
	if ex.cfg.recorder != nil {
		if err := ex.cfg.recorder.BeginRun(ctx, runID, start); err != nil {
			ex.emitEvent(runID, "", "recorder_error", map[string]any{"error": err.Error()})
		}
	}

	pool := newPool(ctx, ex.cfg.maxWorkers, ex.graph.Len())
	lastEvent := time.Now()

	for {
		// Reap completions: bounded wait for the first one, then drain.
		select {
		case r := <-pool.results:
			ex.handleResult(ctx, runID, r, res)
			lastEvent = time.Now()
			for drained := false; !drained; {
				select {
				case r2 := <-pool.results:
					ex.handleResult(ctx, runID, r2, res)
				default:
					drained = true
				}
			}
		case <-time.After(ex.cfg.reapPoll):
		case <-ctx.Done():
			pool.close()
			res.Elapsed = time.Since(start)
			ex.finishRun(ctx, runID, start, res)
			return res, ctx.Err()
		}

		// Dispatch every ready node when under the concurrency bound. The 2×
		// overshoot keeps the pool's input queue warm; since a node is never
		// ready while in flight, in-flight work stays at one firing per node.
		if len(ex.inflight) < 2*ex.cfg.maxWorkers {
			for _, f := range ex.readyNodes() {
				pool.submit(task{nodeID: f.nodeID, node: f.node, inputs: f.inputs})
				ex.inflight[f.nodeID] = struct{}{}
				ex.notify(f.nodeID, StatusRunning)
				ex.emitEvent(runID, f.nodeID, "node_running",
					map[string]any{"status": string(StatusRunning)})
				lastEvent = time.Now()
			}
		}

		ex.cfg.metrics.updateGauges(len(ex.inflight), ex.queues.depth())

		idle := len(ex.inflight) == 0
		pending := ex.queues.pending()

		if idle && !pending {
			ex.emitEvent(runID, "", "Execution finished (no active tasks and no pending data)", nil)
			break
		}
		if time.Since(lastEvent) > ex.cfg.idleTimeout && idle && pending {
			// No node is ready, yet data remains: soft deadlock. The loop
			// exits cleanly; the condition is reported, not returned.
			res.Deadlocked = true
			ex.cfg.metrics.recordDeadlock()
			ex.emitEvent(runID, "",
				fmt.Sprintf("Deadlock detected? Pending data exists but no nodes ready. Timeout %gs reached.",
					ex.cfg.idleTimeout.Seconds()),
				map[string]any{"timeout_s": ex.cfg.idleTimeout.Seconds()})
			break
		}
	}

	pool.close()
	res.Elapsed = time.Since(start)
	ex.finishRun(ctx, runID, start, res)
	return res, nil
}

// handleResult processes one reaped firing: bookkeeping, status fan-out, and
// on success the snapshot reassignment and output distribution. A failed
// firing contributes nothing downstream.
func (ex *Executor) handleResult(ctx context.Context, runID string, r taskResult, res *Result) {
	delete(ex.inflight, r.nodeID)
	res.Fired++

	if r.err != nil {
		res.Errors++
		ex.notify(r.nodeID, StatusError)
		ex.cfg.metrics.observeFiring(r.nodeID, r.latency, StatusError)
		cause := r.err
		var nerr *NodeError
		if errors.As(r.err, &nerr) && nerr.Cause != nil {
			cause = nerr.Cause
		}
		ex.emitEvent(runID, r.nodeID,
			fmt.Sprintf("Error executing node %s: %v", r.nodeID, cause),
			map[string]any{
				"status":      string(StatusError),
				"error":       cause.Error(),
				"duration_ms": r.latency.Milliseconds(),
			})
		ex.recordFiring(ctx, runID, res.Fired, r, StatusError)
		return
	}

	// The returned snapshot carries any internal-state mutations (loop
	// counters and the like); it becomes the canonical instance.
	ex.graph.setNode(r.nodeID, r.node)
	ex.notify(r.nodeID, StatusCompleted)
	ex.cfg.metrics.observeFiring(r.nodeID, r.latency, StatusCompleted)
	ex.emitEvent(runID, r.nodeID, "node_completed", map[string]any{
		"status":      string(StatusCompleted),
		"duration_ms": r.latency.Milliseconds(),
	})
	ex.recordFiring(ctx, runID, res.Fired, r, StatusCompleted)
	ex.distribute(r.nodeID, r.outputs)
}

// distribute routes a firing's outputs along the node's outgoing links.
// Every link whose source port is present in the output map gets the value
// appended to its target queue; links sharing a source port each receive the
// value. Declared outputs absent from the map produce nothing.
func (ex *Executor) distribute(nodeID string, outputs Values) {
	if len(outputs) == 0 {
		return
	}
	for _, link := range ex.graph.Outgoing(nodeID) {
		if value, ok := outputs[link.FromOutput]; ok {
			ex.queues.push(link.ToNode, link.ToInput, value)
		}
	}
}

// readyNodes computes the set of ready nodes in graph description order and
// pops their inputs, so a returned firing is already committed to dispatch.
//
// Readiness per strategy, with C the set of wired input ports:
//   - no declared inputs: ready once per run (pure sources fire exactly once)
//   - ANY: some declared input has queued data
//   - ALL, C non-empty: every wired declared input has queued data
//     (declared-but-unwired inputs are not required)
//   - ALL, C empty: every declared input has queued data — a fully unwired
//     node fires only when the caller seeded all of its inputs
//
// On firing, the head of every declared input queue holding data is consumed,
// so seeded values on unwired ports ride along with the wired ones.
//
// A node already in flight is never ready: its previous firing must land
// back as the canonical instance first.
func (ex *Executor) readyNodes() []firing {
	var ready []firing

	for _, id := range ex.graph.order {
		if _, busy := ex.inflight[id]; busy {
			continue
		}
		node := ex.graph.nodes[id]
		in := node.InputPorts()

		if len(in) == 0 {
			if _, done := ex.executedSources[id]; !done {
				ex.executedSources[id] = struct{}{}
				ready = append(ready, firing{nodeID: id, node: node, inputs: Values{}})
			}
			continue
		}

		wired := make(map[string]bool, len(ex.graph.incoming[id]))
		for _, link := range ex.graph.incoming[id] {
			wired[link.ToInput] = true
		}

		isReady := false
		switch node.Strategy() {
		case StrategyAny:
			for port := range in {
				if ex.queues.hasData(id, port) {
					isReady = true
					break
				}
			}
		default: // StrategyAll
			isReady = true
			if len(wired) > 0 {
				for port := range in {
					if wired[port] && !ex.queues.hasData(id, port) {
						isReady = false
						break
					}
				}
			} else {
				for port := range in {
					if !ex.queues.hasData(id, port) {
						isReady = false
						break
					}
				}
			}
		}
		if !isReady {
			continue
		}

		inputs := Values{}
		for port := range in {
			if value, ok := ex.queues.pop(id, port); ok {
				inputs[port] = value
			}
		}
		ready = append(ready, firing{nodeID: id, node: node, inputs: inputs})
	}

	return ready
}

func (ex *Executor) notify(nodeID string, status Status) {
	if ex.cfg.callback != nil {
		ex.cfg.callback(nodeID, status)
	}
}

func (ex *Executor) emitEvent(runID, nodeID, msg string, meta map[string]any) {
	ex.eventSeq++
	ex.cfg.emitter.Emit(emit.Event{
		RunID:  runID,
		Seq:    ex.eventSeq,
		NodeID: nodeID,
		Msg:    msg,
		Meta:   meta,
	})
}

func (ex *Executor) recordFiring(ctx context.Context, runID string, seq int, r taskResult, status Status) {
	if ex.cfg.recorder == nil {
		return
	}
	rec := store.FiringRecord{
		RunID:   runID,
		Seq:     seq,
		NodeID:  r.nodeID,
		Status:  string(status),
		Latency: r.latency,
		At:      time.Now(),
	}
	if r.err != nil {
		rec.Error = r.err.Error()
	}
	if err := ex.cfg.recorder.RecordFiring(ctx, rec); err != nil {
		ex.emitEvent(runID, r.nodeID, "recorder_error", map[string]any{"error": err.Error()})
	}
}

func (ex *Executor) finishRun(ctx context.Context, runID string, start time.Time, res *Result) {
	if ex.cfg.recorder != nil {
		rec := store.RunRecord{
			RunID:      runID,
			StartedAt:  start,
			FinishedAt: time.Now(),
			Fired:      res.Fired,
			Errors:     res.Errors,
			Deadlocked: res.Deadlocked,
		}
		if err := ex.cfg.recorder.FinishRun(ctx, rec); err != nil {
			ex.emitEvent(runID, "", "recorder_error", map[string]any{"error": err.Error()})
		}
	}
	if err := ex.cfg.emitter.Flush(ctx); err != nil {
		ex.emitEvent(runID, "", "emitter_flush_error", map[string]any{"error": err.Error()})
	}
}
