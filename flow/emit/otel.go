package emit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTelEmitter implements Emitter by recording each event as an OpenTelemetry
// span. Events are points in time, so spans are ended immediately; the batch
// span processor of the configured provider handles export.
//
// Span contents:
//   - name: event.Msg
//   - attributes: run_id, seq, node_id plus every Meta entry
//   - status: Error when Meta["error"] is present
//
// Wire it up from a tracer provider:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
//	emitter := emit.NewOTelEmitter(otel.Tracer("flowgraph-go"))
type OTelEmitter struct {
	tracer trace.Tracer
}

// NewOTelEmitter creates an OTelEmitter over the given tracer.
func NewOTelEmitter(tracer trace.Tracer) *OTelEmitter {
	return &OTelEmitter{tracer: tracer}
}

// Emit records the event as a span.
func (o *OTelEmitter) Emit(event Event) {
	o.record(context.Background(), event)
}

// EmitBatch records each event as a span, sharing the given context for
// trace propagation.
func (o *OTelEmitter) EmitBatch(ctx context.Context, events []Event) error {
	for _, event := range events {
		o.record(ctx, event)
	}
	return nil
}

// Flush is a no-op; span export is owned by the tracer provider. Call
// ForceFlush or Shutdown on the provider before process exit.
func (o *OTelEmitter) Flush(context.Context) error { return nil }

func (o *OTelEmitter) record(ctx context.Context, event Event) {
	_, span := o.tracer.Start(ctx, event.Msg)
	defer span.End()

	span.SetAttributes(
		attribute.String("run_id", event.RunID),
		attribute.Int("seq", event.Seq),
		attribute.String("node_id", event.NodeID),
	)
	for key, value := range event.Meta {
		span.SetAttributes(metaAttribute(key, value))
	}
	if errText, ok := event.Meta["error"].(string); ok {
		span.SetStatus(codes.Error, errText)
		span.RecordError(fmt.Errorf("%s", errText))
	}
}

func metaAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	default:
		return attribute.String(key, fmt.Sprintf("%v", v))
	}
}
