package flow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/dshills/flowgraph-go/flow"
)

func chainDescription() flow.Description {
	return flow.Description{
		Nodes: []flow.NodeDescription{
			{ID: "src", Type: "Source"},
			{ID: "add", Type: "AddFive"},
			{ID: "sink", Type: "Sink"},
		},
		Links: []flow.Link{
			{FromNode: "src", FromOutput: "out", ToNode: "add", ToInput: "x"},
			{FromNode: "add", FromOutput: "out", ToNode: "sink", ToInput: "value"},
		},
	}
}

func TestGraph_LoadValid(t *testing.T) {
	g := flow.NewGraph(testRegistry())
	if err := g.Load(chainDescription()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if g.Len() != 3 {
		t.Errorf("graph has %d nodes, want 3", g.Len())
	}
	if g.Node("add") == nil {
		t.Error("Node(add) returned nil")
	}
	if g.Node("absent") != nil {
		t.Error("Node(absent) should return nil")
	}
	if n := len(g.Outgoing("src")); n != 1 {
		t.Errorf("src has %d outgoing links, want 1", n)
	}
	if n := len(g.Incoming("add")); n != 1 {
		t.Errorf("add has %d incoming links, want 1", n)
	}
	if n := len(g.Incoming("src")); n != 0 {
		t.Errorf("src has %d incoming links, want 0", n)
	}

	ids := g.NodeIDs()
	want := []string{"src", "add", "sink"}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("NodeIDs[%d] = %q, want %q (description order)", i, ids[i], want[i])
		}
	}
}

func TestGraph_LoadValidation(t *testing.T) {
	cases := []struct {
		name string
		desc flow.Description
	}{
		{
			name: "unknown node type",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{{ID: "x", Type: "Nonesuch"}},
			},
		},
		{
			name: "empty node id",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{{ID: "", Type: "Source"}},
			},
		},
		{
			name: "duplicate node id",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{
					{ID: "dup", Type: "Source"},
					{ID: "dup", Type: "Sink"},
				},
			},
		},
		{
			name: "missing source node",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{{ID: "sink", Type: "Sink"}},
				Links: []flow.Link{
					{FromNode: "ghost", FromOutput: "out", ToNode: "sink", ToInput: "value"},
				},
			},
		},
		{
			name: "missing target node",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{{ID: "src", Type: "Source"}},
				Links: []flow.Link{
					{FromNode: "src", FromOutput: "out", ToNode: "ghost", ToInput: "value"},
				},
			},
		},
		{
			name: "undeclared output port",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{
					{ID: "src", Type: "Source"},
					{ID: "sink", Type: "Sink"},
				},
				Links: []flow.Link{
					{FromNode: "src", FromOutput: "bogus", ToNode: "sink", ToInput: "value"},
				},
			},
		},
		{
			name: "undeclared input port",
			desc: flow.Description{
				Nodes: []flow.NodeDescription{
					{ID: "src", Type: "Source"},
					{ID: "sink", Type: "Sink"},
				},
				Links: []flow.Link{
					{FromNode: "src", FromOutput: "out", ToNode: "sink", ToInput: "bogus"},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := flow.NewGraph(testRegistry())
			err := g.Load(tc.desc)
			if err == nil {
				t.Fatal("Load should have failed")
			}
			var gerr *flow.GraphError
			if !errors.As(err, &gerr) {
				t.Errorf("error type %T, want *flow.GraphError", err)
			}
			// All-or-nothing: a failed load publishes nothing.
			if g.Len() != 0 {
				t.Errorf("failed load left %d nodes in the graph", g.Len())
			}
		})
	}
}

func TestGraph_LinkTypeChecking(t *testing.T) {
	registry := testRegistry()
	registry["StrSource"] = func(id string, params flow.Values) (flow.Node, error) {
		return &strSource{flow.Base{NodeID: id, Params: params}}, nil
	}
	registry["AnyOut"] = func(id string, params flow.Values) (flow.Node, error) {
		return &anyOutSource{flow.Base{NodeID: id, Params: params}}, nil
	}

	t.Run("mismatched tags rejected", func(t *testing.T) {
		g := flow.NewGraph(registry)
		err := g.Load(flow.Description{
			Nodes: []flow.NodeDescription{
				{ID: "src", Type: "StrSource"},
				{ID: "sink", Type: "Sink"}, // input "value" is int
			},
			Links: []flow.Link{
				{FromNode: "src", FromOutput: "out", ToNode: "sink", ToInput: "value"},
			},
		})
		var gerr *flow.GraphError
		if !errors.As(err, &gerr) {
			t.Fatalf("got %v, want *flow.GraphError for string->int link", err)
		}
		if gerr.Link == nil {
			t.Error("GraphError should carry the offending link")
		}
	})

	t.Run("wildcard matches anything", func(t *testing.T) {
		g := flow.NewGraph(registry)
		err := g.Load(flow.Description{
			Nodes: []flow.NodeDescription{
				{ID: "src", Type: "AnyOut"},
				{ID: "sink", Type: "Sink"},
			},
			Links: []flow.Link{
				{FromNode: "src", FromOutput: "out", ToNode: "sink", ToInput: "value"},
			},
		})
		if err != nil {
			t.Fatalf("Any-typed output should link to a typed input: %v", err)
		}
	})
}

func TestGraph_ConstructionErrorsSurfaceThroughLoad(t *testing.T) {
	registry := testRegistry()
	registry["Picky"] = func(id string, params flow.Values) (flow.Node, error) {
		p, err := flow.CoerceParams(id, flow.ParamSchema{"limit": flow.ParamInt}, params)
		if err != nil {
			return nil, err
		}
		return &testSink{Base: flow.Base{NodeID: id, Params: p}}, nil
	}

	g := flow.NewGraph(registry)
	err := g.Load(flow.Description{
		Nodes: []flow.NodeDescription{
			{ID: "p", Type: "Picky", Params: map[string]any{"limit": "not a number"}},
		},
	})
	if err == nil {
		t.Fatal("Load should have failed on bad parameter")
	}
	var perr *flow.ParameterError
	if !errors.As(err, &perr) {
		t.Fatalf("error chain %v should contain *flow.ParameterError", err)
	}
	if perr.Param != "limit" {
		t.Errorf("ParameterError.Param = %q, want limit", perr.Param)
	}
}

func TestGraph_DescriptionRoundTrip(t *testing.T) {
	desc := chainDescription()
	desc.Nodes[0].Params = map[string]any{"label": "origin"}

	g := flow.NewGraph(testRegistry())
	if err := g.Load(desc); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	reloaded := flow.NewGraph(testRegistry())
	if err := reloaded.Load(g.Description()); err != nil {
		t.Fatalf("reload of emitted description failed: %v", err)
	}

	if reloaded.Len() != g.Len() {
		t.Errorf("reloaded graph has %d nodes, want %d", reloaded.Len(), g.Len())
	}
	if got, want := len(reloaded.Links()), len(g.Links()); got != want {
		t.Errorf("reloaded graph has %d links, want %d", got, want)
	}
	got := reloaded.Description()
	if got.Nodes[0].Params["label"] != "origin" {
		t.Error("node params lost in round trip")
	}
}

func TestGraph_ReloadReplacesContents(t *testing.T) {
	g := flow.NewGraph(testRegistry())
	if err := g.Load(chainDescription()); err != nil {
		t.Fatalf("first Load failed: %v", err)
	}
	if err := g.Load(flow.Description{
		Nodes: []flow.NodeDescription{{ID: "only", Type: "Source"}},
	}); err != nil {
		t.Fatalf("second Load failed: %v", err)
	}

	if g.Len() != 1 {
		t.Errorf("graph has %d nodes after reload, want 1", g.Len())
	}
	if g.Node("src") != nil {
		t.Error("old node survived reload")
	}
	if n := len(g.Links()); n != 0 {
		t.Errorf("old links survived reload: %d", n)
	}
}

type strSource struct {
	flow.Base
}

func (n *strSource) InputPorts() flow.PortSchema  { return nil }
func (n *strSource) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": "string"} }

func (n *strSource) Execute(_ context.Context, _ flow.Values) (flow.Values, error) {
	return flow.Values{"out": "hello"}, nil
}

type anyOutSource struct {
	flow.Base
}

func (n *anyOutSource) InputPorts() flow.PortSchema  { return nil }
func (n *anyOutSource) OutputPorts() flow.PortSchema { return flow.PortSchema{"out": flow.TypeAny} }

func (n *anyOutSource) Execute(_ context.Context, _ flow.Values) (flow.Values, error) {
	return flow.Values{"out": 42}, nil
}
