package nodes

import (
	"context"

	"github.com/spf13/cast"

	"github.com/dshills/flowgraph-go/flow"
)

// Collect gathers values from its two Any-typed inputs into a slice. Slice
// inputs are flattened, so chained Collect nodes build one flat list.
// Partially wired use is normal: only the ports that received data
// contribute.
type Collect struct {
	flow.Base
}

// NewCollect constructs a Collect node.
func NewCollect(nodeID string, params flow.Values) (flow.Node, error) {
	return &Collect{flow.Base{NodeID: nodeID, Params: params}}, nil
}

func (n *Collect) InputPorts() flow.PortSchema {
	return flow.PortSchema{"input_1": flow.TypeAny, "input_2": flow.TypeAny}
}

func (n *Collect) OutputPorts() flow.PortSchema {
	return flow.PortSchema{"items": flow.TypeAny}
}

func (n *Collect) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	var items []any
	for _, port := range []string{"input_1", "input_2"} {
		value, ok := inputs[port]
		if !ok || value == nil {
			continue
		}
		if list, ok := value.([]any); ok {
			items = append(items, list...)
		} else {
			items = append(items, value)
		}
	}
	return flow.Values{"items": items}, nil
}

// Select picks the candidate with the higher score: two (value, score) input
// pairs, one value output. Ties go to the first candidate. A missing score
// counts as -1 so a half-wired Select still picks the present candidate.
type Select struct {
	flow.Base
}

// NewSelect constructs a Select node.
func NewSelect(nodeID string, params flow.Values) (flow.Node, error) {
	return &Select{flow.Base{NodeID: nodeID, Params: params}}, nil
}

func (n *Select) InputPorts() flow.PortSchema {
	return flow.PortSchema{
		"value_1": flow.TypeAny, "score_1": "float",
		"value_2": flow.TypeAny, "score_2": "float",
	}
}

func (n *Select) OutputPorts() flow.PortSchema {
	return flow.PortSchema{"value": flow.TypeAny}
}

func (n *Select) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	score := func(port string) float64 {
		if raw, ok := inputs[port]; ok {
			if f, err := cast.ToFloat64E(raw); err == nil {
				return f
			}
		}
		return -1
	}
	if score("score_1") >= score("score_2") {
		return flow.Values{"value": inputs["value_1"]}, nil
	}
	return flow.Values{"value": inputs["value_2"]}, nil
}

// LoopMerge is the loop-control node for cyclic graphs. It fires on ANY
// input: the first pass arrives on "initial", subsequent passes on
// "loop_back" from downstream. An iteration counter in node state stops
// propagation once the configured number of iterations has run; the counter
// survives firings because the executor republishes the node snapshot after
// each execution.
//
//	initial ──▶ LoopMerge ──▶ body ──▶ … ─┐
//	                ▲                      │
//	                └──── loop_back ───────┘
type LoopMerge struct {
	flow.Base
	iteration int
}

// NewLoopMerge constructs a LoopMerge node. Parameter "iterations" bounds
// the number of passes (default 5).
func NewLoopMerge(nodeID string, params flow.Values) (flow.Node, error) {
	p, err := flow.CoerceParams(nodeID, flow.ParamSchema{"iterations": flow.ParamInt}, params)
	if err != nil {
		return nil, err
	}
	return &LoopMerge{Base: flow.Base{NodeID: nodeID, Params: p}}, nil
}

func (n *LoopMerge) Parameters() flow.ParamSchema {
	return flow.ParamSchema{"iterations": flow.ParamInt}
}

func (n *LoopMerge) InputPorts() flow.PortSchema {
	return flow.PortSchema{"initial": flow.TypeAny, "loop_back": flow.TypeAny}
}

func (n *LoopMerge) OutputPorts() flow.PortSchema {
	return flow.PortSchema{"value": flow.TypeAny}
}

func (n *LoopMerge) Strategy() flow.Strategy { return flow.StrategyAny }

func (n *LoopMerge) Execute(_ context.Context, inputs flow.Values) (flow.Values, error) {
	maxIters := n.Params.Int("iterations", 5)

	// A fresh initial value restarts the loop.
	if _, ok := inputs["initial"]; ok {
		n.iteration = 0
	}
	if n.iteration >= maxIters {
		// Emitting nothing breaks the cycle: downstream never becomes ready.
		return flow.Values{}, nil
	}

	var value any
	if v, ok := inputs["initial"]; ok {
		value = v
	} else if v, ok := inputs["loop_back"]; ok {
		value = v
	}
	n.iteration++
	return flow.Values{"value": value}, nil
}

// Iteration reports how many passes the loop has run. Intended for
// inspection after a run.
func (n *LoopMerge) Iteration() int { return n.iteration }
