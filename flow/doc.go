// Package flow provides the core dataflow graph execution engine for
// FlowGraph-Go.
//
// A pipeline is a directed graph whose vertices are Nodes (opaque computation
// units with typed input and output ports) and whose edges carry values from
// an output port of one node to an input port of another. The Graph validates
// structure at load time; the Executor drives the graph by firing nodes whose
// input queues satisfy their firing strategy, dispatching the work to a
// bounded worker pool, and routing produced values to downstream queues until
// the pipeline is quiescent or deadlocked.
//
// Subpackages:
//   - emit: observability event bus (log, buffered, OpenTelemetry emitters)
//   - store: optional run-history recorders (memory, SQLite, MySQL)
//   - nodes: a small standard node library and default registry
package flow
