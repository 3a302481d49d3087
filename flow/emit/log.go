package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter implements Emitter by writing structured log output to a writer.
//
// Two output modes:
//   - text (default): human-readable lines, "[msg] runID=… seq=N nodeID=…"
//   - JSON: one JSON object per line (JSONL)
//
// The executor's default emitter is a text LogEmitter on os.Stdout, which is
// what keeps diagnostics like "Execution finished …" and "Deadlock
// detected? …" visible on standard output.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter creates a LogEmitter writing to the given writer (stdout when
// nil). Set jsonMode for JSONL output.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{writer: writer, jsonMode: jsonMode}
}

// Emit writes one event to the configured writer.
func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string         `json:"runID"`
		Seq    int            `json:"seq"`
		NodeID string         `json:"nodeID"`
		Msg    string         `json:"msg"`
		Meta   map[string]any `json:"meta"`
	}{event.RunID, event.Seq, event.NodeID, event.Msg, event.Meta})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] runID=%s seq=%d", event.Msg, event.RunID, event.Seq)
	if event.NodeID != "" {
		_, _ = fmt.Fprintf(l.writer, " nodeID=%s", event.NodeID)
	}
	if len(event.Meta) > 0 {
		if metaJSON, err := json.Marshal(event.Meta); err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}
	_, _ = fmt.Fprint(l.writer, "\n")
}

// EmitBatch writes the events in order.
func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes through to the underlying writer. Wrap
// the writer in a bufio.Writer and flush that directly if buffering is
// wanted.
func (l *LogEmitter) Flush(_ context.Context) error { return nil }
