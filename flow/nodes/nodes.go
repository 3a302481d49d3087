// Package nodes provides a small standard node library for FlowGraph-Go
// pipelines: sources, arithmetic, pass-through, delay and fail building blocks plus
// the loop-control and fan-in nodes cyclic graphs are built from.
package nodes

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cast"

	"github.com/dshills/flowgraph-go/flow"
)

// DefaultRegistry returns a registry with every node type in this package.
// Callers extend it with their own types before loading a graph:
//
//	registry := nodes.DefaultRegistry()
//	registry["Resize"] = newResize
func DefaultRegistry() flow.Registry {
	return flow.Registry{
		"Const":       NewConst,
		"Add":         NewAdd,
		"Scale":       NewScale,
		"Passthrough": NewPassthrough,
		"Delay":       NewDelay,
		"Fail":        NewFail,
		"Collect":     NewCollect,
		"Select":      NewSelect,
		"LoopMerge":   NewLoopMerge,
	}
}

// Const emits its configured value once per run.
type Const struct {
	flow.Base
}

// NewConst constructs a Const node. Parameter "value" may be any type.
func NewConst(nodeID string, params flow.Values) (flow.Node, error) {
	p, err := flow.CoerceParams(nodeID, nil, params)
	if err != nil {
		return nil, err
	}
	return &Const{flow.Base{NodeID: nodeID, Params: p}}, nil
}

func (n *Const) InputPorts() flow.PortSchema  { return nil }
func (n *Const) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": flow.TypeAny} }

func (n *Const) Execute(_ context.Context, _ flow.Values) (flow.Values, error) {
	return flow.Values{"out": n.Params["value"]}, nil
}

// Add sums its two inputs.
type Add struct {
	flow.Base
}

// NewAdd constructs an Add node.
func NewAdd(nodeID string, params flow.Values) (flow.Node, error) {
	return &Add{flow.Base{NodeID: nodeID, Params: params}}, nil
}

func (n *Add) InputPorts() flow.PortSchema {
	return flow.PortSchema{"a": "float", "b": "float"}
}

func (n *Add) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": "float"} }

func (n *Add) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	a, err := cast.ToFloat64E(inputs["a"])
	if err != nil {
		return nil, err
	}
	b, err := cast.ToFloat64E(inputs["b"])
	if err != nil {
		return nil, err
	}
	return flow.Values{"out": a + b}, nil
}

// Scale multiplies its input by the "factor" parameter.
type Scale struct {
	flow.Base
}

// NewScale constructs a Scale node.
func NewScale(nodeID string, params flow.Values) (flow.Node, error) {
	p, err := flow.CoerceParams(nodeID, flow.ParamSchema{"factor": flow.ParamFloat}, params)
	if err != nil {
		return nil, err
	}
	return &Scale{flow.Base{NodeID: nodeID, Params: p}}, nil
}

func (n *Scale) Parameters() flow.ParamSchema {
	return flow.ParamSchema{"factor": flow.ParamFloat}
}

func (n *Scale) InputPorts() flow.PortSchema  { return flow.PortSchema{"x": "float"} }
func (n *Scale) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": "float"} }

func (n *Scale) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	x, err := cast.ToFloat64E(inputs["x"])
	if err != nil {
		return nil, err
	}
	return flow.Values{"out": x * n.Params.Float("factor", 1)}, nil
}

// Passthrough forwards its input unchanged. Useful as a tap point or to give
// a fan-out a stable source port.
type Passthrough struct {
	flow.Base
}

// NewPassthrough constructs a Passthrough node.
func NewPassthrough(nodeID string, params flow.Values) (flow.Node, error) {
	return &Passthrough{flow.Base{NodeID: nodeID, Params: params}}, nil
}

func (n *Passthrough) InputPorts() flow.PortSchema  { return flow.PortSchema{"in": flow.TypeAny} }
func (n *Passthrough) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": flow.TypeAny} }

func (n *Passthrough) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	return flow.Values{"out": inputs["in"]}, nil
}

// Delay forwards its input after sleeping for the configured duration.
// Context-aware: cancellation cuts the sleep short and fails the firing.
type Delay struct {
	flow.Base
}

// NewDelay constructs a Delay node. Parameter "duration" is a Go duration
// string ("250ms", "2s").
func NewDelay(nodeID string, params flow.Values) (flow.Node, error) {
	p, err := flow.CoerceParams(nodeID, flow.ParamSchema{"duration": flow.ParamString}, params)
	if err != nil {
		return nil, err
	}
	if _, err := time.ParseDuration(p.String("duration", "0s")); err != nil {
		return nil, &flow.ParameterError{
			NodeID: nodeID, Param: "duration", Value: p["duration"],
			Want: flow.ParamString, Cause: err,
		}
	}
	return &Delay{flow.Base{NodeID: nodeID, Params: p}}, nil
}

func (n *Delay) Parameters() flow.ParamSchema {
	return flow.ParamSchema{"duration": flow.ParamString}
}

func (n *Delay) InputPorts() flow.PortSchema  { return flow.PortSchema{"in": flow.TypeAny} }
func (n *Delay) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": flow.TypeAny} }

func (n *Delay) Execute(ctx context.Context, inputs flow.Values) (flow.Values, error) {
	d, _ := time.ParseDuration(n.Params.String("duration", "0s"))
	select {
	case <-time.After(d):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return flow.Values{"out": inputs["in"]}, nil
}

// Fail always returns an error. Used to exercise error isolation in
// pipelines and tests.
type Fail struct {
	flow.Base
}

// NewFail constructs a Fail node. Parameter "message" sets the error text.
func NewFail(nodeID string, params flow.Values) (flow.Node, error) {
	p, err := flow.CoerceParams(nodeID, flow.ParamSchema{"message": flow.ParamString}, params)
	if err != nil {
		return nil, err
	}
	return &Fail{flow.Base{NodeID: nodeID, Params: p}}, nil
}

func (n *Fail) Parameters() flow.ParamSchema {
	return flow.ParamSchema{"message": flow.ParamString}
}

func (n *Fail) InputPorts() flow.PortSchema  { return flow.PortSchema{"in": flow.TypeAny} }
func (n *Fail) OutputPorts() flow.PortSchema { return nil }

func (n *Fail) Execute(context.Context, flow.Values) (flow.Values, error) {
	return nil, errors.New(n.Params.String("message", "node failed"))
}
