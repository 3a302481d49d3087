package flow

import (
	"context"

	"github.com/spf13/cast"
)

// TypeAny is the wildcard port type tag. A link is valid when its endpoint
// tags are equal or at least one of them is TypeAny.
const TypeAny = "Any"

// Values carries port-name → value maps across node boundaries: the inputs a
// firing consumes and the outputs it produces.
type Values map[string]any

// PortSchema maps port names to type tags (e.g. "int", "Image", TypeAny).
// Tags are opaque to the engine beyond equality and the TypeAny wildcard.
type PortSchema map[string]string

// Strategy selects the firing precondition of a node.
type Strategy string

const (
	// StrategyAll fires when every wired declared input has a queued value
	// (the default). Declared inputs with no incoming link are not required,
	// except on a node with no wired inputs at all: that node fires only when
	// every declared input has a queued value.
	StrategyAll Strategy = "ALL"

	// StrategyAny fires as soon as at least one input port has a queued
	// value. On firing the head value of every non-empty input queue is
	// consumed, so an ANY node may receive one or several inputs per call.
	StrategyAny Strategy = "ANY"
)

// ParamType is the declared type of a node parameter. Supplied parameter
// values are coerced to the declared type at construction.
type ParamType string

const (
	ParamString ParamType = "string"
	ParamInt    ParamType = "int"
	ParamFloat  ParamType = "float"
	ParamBool   ParamType = "bool"
)

// ParamSchema maps parameter names to their declared types.
type ParamSchema map[string]ParamType

// Node is a computation unit in a dataflow graph.
//
// A node declares its port and parameter schemas and a firing strategy; the
// engine is agnostic to what Execute actually does. Execute receives the
// input-port values that fired and returns output-port values. Returned keys
// that are not declared outputs are ignored; declared outputs absent from the
// return map produce no downstream values.
//
// Execute may mutate the node's internal state (loop counters and the like).
// The executor guarantees at most one in-flight firing per node, so Execute
// never races with itself, and it republishes the returned node snapshot as
// the canonical instance after each successful firing.
type Node interface {
	// ID returns the node's graph-unique identifier.
	ID() string

	// InputPorts returns the declared input-port schema.
	InputPorts() PortSchema

	// OutputPorts returns the declared output-port schema.
	OutputPorts() PortSchema

	// Parameters returns the declared parameter schema.
	Parameters() ParamSchema

	// Strategy returns the node's firing strategy.
	Strategy() Strategy

	// Execute performs one firing with the given inputs.
	Execute(ctx context.Context, inputs Values) (Values, error)
}

// Factory constructs a node instance for a graph description entry.
// Implementations should validate params via CoerceParams.
type Factory func(nodeID string, params Values) (Node, error)

// Base carries the identity and validated parameters common to most node
// implementations, along with default Parameters and Strategy accessors.
// Embed it and override what differs:
//
//	type Scale struct {
//	    flow.Base
//	}
//
//	func (s *Scale) InputPorts() flow.PortSchema  { return flow.PortSchema{"x": "float"} }
//	func (s *Scale) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": "float"} }
type Base struct {
	NodeID string
	Params Values
}

// ID returns the node's identifier.
func (b *Base) ID() string { return b.NodeID }

// Parameters returns an empty schema; override for parameterized nodes.
func (b *Base) Parameters() ParamSchema { return nil }

// Strategy returns StrategyAll, the default firing strategy.
func (b *Base) Strategy() Strategy { return StrategyAll }

// CoerceParams validates params against the declared schema. Each declared
// parameter present in params is coerced to its declared type; a value that
// cannot be converted yields a *ParameterError. Parameters not named in the
// schema pass through verbatim. The input map is not modified.
func CoerceParams(nodeID string, schema ParamSchema, params Values) (Values, error) {
	out := make(Values, len(params))
	for k, v := range params {
		out[k] = v
	}
	for name, want := range schema {
		raw, ok := out[name]
		if !ok {
			continue
		}
		coerced, err := coerceValue(raw, want)
		if err != nil {
			return nil, &ParameterError{NodeID: nodeID, Param: name, Value: raw, Want: want, Cause: err}
		}
		out[name] = coerced
	}
	return out, nil
}

func coerceValue(v any, want ParamType) (any, error) {
	switch want {
	case ParamString:
		return cast.ToStringE(v)
	case ParamInt:
		return cast.ToIntE(v)
	case ParamFloat:
		return cast.ToFloat64E(v)
	case ParamBool:
		return cast.ToBoolE(v)
	default:
		// Unknown declared types pass through; the tag is for documentation.
		return v, nil
	}
}

// String reads a string parameter with a default.
func (v Values) String(key, def string) string {
	if raw, ok := v[key]; ok {
		if s, err := cast.ToStringE(raw); err == nil {
			return s
		}
	}
	return def
}

// Int reads an integer parameter with a default.
func (v Values) Int(key string, def int) int {
	if raw, ok := v[key]; ok {
		if n, err := cast.ToIntE(raw); err == nil {
			return n
		}
	}
	return def
}

// Float reads a float parameter with a default.
func (v Values) Float(key string, def float64) float64 {
	if raw, ok := v[key]; ok {
		if f, err := cast.ToFloat64E(raw); err == nil {
			return f
		}
	}
	return def
}

// Bool reads a boolean parameter with a default.
func (v Values) Bool(key string, def bool) bool {
	if raw, ok := v[key]; ok {
		if b, err := cast.ToBoolE(raw); err == nil {
			return b
		}
	}
	return def
}
