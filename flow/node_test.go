package flow_test

import (
	"errors"
	"testing"

	"github.com/dshills/flowgraph-go/flow"
)

func TestCoerceParams(t *testing.T) {
	schema := flow.ParamSchema{
		"name":    flow.ParamString,
		"count":   flow.ParamInt,
		"ratio":   flow.ParamFloat,
		"enabled": flow.ParamBool,
	}

	t.Run("coerces declared types", func(t *testing.T) {
		got, err := flow.CoerceParams("n1", schema, flow.Values{
			"name":    42,
			"count":   "7",
			"ratio":   "0.5",
			"enabled": "true",
		})
		if err != nil {
			t.Fatalf("CoerceParams failed: %v", err)
		}
		if got["name"] != "42" {
			t.Errorf("name = %v (%T), want \"42\"", got["name"], got["name"])
		}
		if got["count"] != 7 {
			t.Errorf("count = %v (%T), want 7", got["count"], got["count"])
		}
		if got["ratio"] != 0.5 {
			t.Errorf("ratio = %v (%T), want 0.5", got["ratio"], got["ratio"])
		}
		if got["enabled"] != true {
			t.Errorf("enabled = %v (%T), want true", got["enabled"], got["enabled"])
		}
	})

	t.Run("missing declared params are not an error", func(t *testing.T) {
		got, err := flow.CoerceParams("n1", schema, flow.Values{})
		if err != nil {
			t.Fatalf("CoerceParams failed: %v", err)
		}
		if len(got) != 0 {
			t.Errorf("got %v, want empty", got)
		}
	})

	t.Run("undeclared params pass through", func(t *testing.T) {
		got, err := flow.CoerceParams("n1", schema, flow.Values{"extra": []int{1, 2}})
		if err != nil {
			t.Fatalf("CoerceParams failed: %v", err)
		}
		if _, ok := got["extra"].([]int); !ok {
			t.Errorf("extra = %v (%T), want untouched []int", got["extra"], got["extra"])
		}
	})

	t.Run("failed conversion reports the parameter", func(t *testing.T) {
		_, err := flow.CoerceParams("n1", schema, flow.Values{"count": "many"})
		var perr *flow.ParameterError
		if !errors.As(err, &perr) {
			t.Fatalf("got %v, want *flow.ParameterError", err)
		}
		if perr.NodeID != "n1" || perr.Param != "count" || perr.Want != flow.ParamInt {
			t.Errorf("ParameterError %+v, want node n1, param count, want int", perr)
		}
	})

	t.Run("input map is not modified", func(t *testing.T) {
		in := flow.Values{"count": "7"}
		if _, err := flow.CoerceParams("n1", schema, in); err != nil {
			t.Fatalf("CoerceParams failed: %v", err)
		}
		if in["count"] != "7" {
			t.Errorf("input map mutated: count = %v", in["count"])
		}
	})
}

func TestValuesAccessors(t *testing.T) {
	v := flow.Values{
		"s": "text",
		"i": 3,
		"f": 2.5,
		"b": true,
	}

	if got := v.String("s", "x"); got != "text" {
		t.Errorf("String = %q, want text", got)
	}
	if got := v.String("missing", "x"); got != "x" {
		t.Errorf("String default = %q, want x", got)
	}
	if got := v.Int("i", 0); got != 3 {
		t.Errorf("Int = %d, want 3", got)
	}
	if got := v.Float("f", 0); got != 2.5 {
		t.Errorf("Float = %v, want 2.5", got)
	}
	if got := v.Bool("b", false); got != true {
		t.Errorf("Bool = %v, want true", got)
	}
	if got := v.Int("missing", 9); got != 9 {
		t.Errorf("Int default = %d, want 9", got)
	}
}
