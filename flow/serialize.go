package flow

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Link is a directed connection from an output port of one node to an input
// port of another. Multiple links may share a source port (fan-out) and
// multiple links may target the same input port (fan-in).
type Link struct {
	FromNode   string `json:"from_node" yaml:"from_node"`
	FromOutput string `json:"from_output" yaml:"from_output"`
	ToNode     string `json:"to_node" yaml:"to_node"`
	ToInput    string `json:"to_input" yaml:"to_input"`
}

// String renders the link as "node.port -> node.port".
func (l Link) String() string {
	return fmt.Sprintf("%s.%s -> %s.%s", l.FromNode, l.FromOutput, l.ToNode, l.ToInput)
}

// NodeDescription is one node entry in a graph description. Params pass
// through to the node factory verbatim.
type NodeDescription struct {
	ID     string         `json:"id" yaml:"id"`
	Type   string         `json:"type" yaml:"type"`
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
}

// Description is the serializable form of a graph: the wire format accepted
// by Graph.Load and produced by Graph.Description.
//
//	{
//	  "nodes": [ {"id": "src", "type": "LoadImage", "params": {"path": "in.png"}} ],
//	  "links": [ {"from_node": "src", "from_output": "image",
//	              "to_node": "blur", "to_input": "image"} ]
//	}
type Description struct {
	Nodes []NodeDescription `json:"nodes" yaml:"nodes"`
	Links []Link            `json:"links" yaml:"links"`
}

// DecodeJSON reads a JSON graph description.
func DecodeJSON(r io.Reader) (Description, error) {
	var d Description
	dec := json.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("decode graph description: %w", err)
	}
	return d, nil
}

// DecodeYAML reads a YAML graph description.
func DecodeYAML(r io.Reader) (Description, error) {
	var d Description
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&d); err != nil {
		return Description{}, fmt.Errorf("decode graph description: %w", err)
	}
	return d, nil
}

// EncodeJSON writes the description as indented JSON.
func (d Description) EncodeJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// EncodeYAML writes the description as YAML.
func (d Description) EncodeYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer func() { _ = enc.Close() }()
	return enc.Encode(d)
}
