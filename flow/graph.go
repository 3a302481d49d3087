package flow

// Registry maps node type names to factories. It is supplied by the caller
// and opaque to the engine; nodes.DefaultRegistry provides a starting point.
type Registry map[string]Factory

// Graph is a validated container of nodes and links.
//
// Load is all-or-nothing: on any validation failure the previous contents are
// untouched. After a successful load the topology (links and incidence
// indices) is immutable from the engine's perspective; only the node
// instances themselves change, by snapshot reassignment after each firing.
//
// A Graph may be loaded and run many times; the incidence indices are rebuilt
// on every load. Graph is not safe for concurrent mutation, but during a run
// the executor is the only writer.
type Graph struct {
	registry Registry

	nodes map[string]Node
	order []string // node ids in description order, for deterministic scheduling
	descs map[string]NodeDescription

	links    []Link
	outgoing map[string][]Link
	incoming map[string][]Link
}

// NewGraph creates an empty graph bound to a node registry.
func NewGraph(registry Registry) *Graph {
	return &Graph{registry: registry}
}

// Load instantiates and validates the given description, replacing the
// graph's previous contents. Each node type is resolved through the registry
// and constructed (which validates its parameters); every link is then
// checked: endpoints must exist, the source port must be a declared output,
// the target port a declared input, and the port type tags must be equal or
// wildcarded with TypeAny.
//
// On any violation Load returns a *GraphError and leaves the graph unchanged.
func (g *Graph) Load(desc Description) error {
	nodes := make(map[string]Node, len(desc.Nodes))
	order := make([]string, 0, len(desc.Nodes))
	descs := make(map[string]NodeDescription, len(desc.Nodes))

	for _, nd := range desc.Nodes {
		if nd.ID == "" {
			return &GraphError{Message: "node id cannot be empty"}
		}
		if _, dup := nodes[nd.ID]; dup {
			return &GraphError{NodeID: nd.ID, Message: "duplicate node id"}
		}
		factory, ok := g.registry[nd.Type]
		if !ok {
			return &GraphError{NodeID: nd.ID, Message: "unknown node type: " + nd.Type}
		}
		node, err := factory(nd.ID, Values(nd.Params))
		if err != nil {
			return &GraphError{NodeID: nd.ID, Message: "construct " + nd.Type, Cause: err}
		}
		nodes[nd.ID] = node
		order = append(order, nd.ID)
		descs[nd.ID] = nd
	}

	links := make([]Link, 0, len(desc.Links))
	outgoing := make(map[string][]Link, len(desc.Nodes))
	incoming := make(map[string][]Link, len(desc.Nodes))

	for _, link := range desc.Links {
		src, ok := nodes[link.FromNode]
		if !ok {
			return &GraphError{Link: &link, Message: "source node not found: " + link.FromNode}
		}
		dst, ok := nodes[link.ToNode]
		if !ok {
			return &GraphError{Link: &link, Message: "target node not found: " + link.ToNode}
		}
		outType, ok := src.OutputPorts()[link.FromOutput]
		if !ok {
			return &GraphError{Link: &link, Message: "output port not declared: " + link.FromOutput}
		}
		inType, ok := dst.InputPorts()[link.ToInput]
		if !ok {
			return &GraphError{Link: &link, Message: "input port not declared: " + link.ToInput}
		}
		if !typesCompatible(outType, inType) {
			return &GraphError{Link: &link,
				Message: "type mismatch: " + outType + " -> " + inType}
		}
		links = append(links, link)
		outgoing[link.FromNode] = append(outgoing[link.FromNode], link)
		incoming[link.ToNode] = append(incoming[link.ToNode], link)
	}

	g.nodes = nodes
	g.order = order
	g.descs = descs
	g.links = links
	g.outgoing = outgoing
	g.incoming = incoming
	return nil
}

func typesCompatible(a, b string) bool {
	return a == b || a == TypeAny || b == TypeAny
}

// Node returns the node with the given id, or nil if absent.
func (g *Graph) Node(id string) Node { return g.nodes[id] }

// NodeIDs returns the node ids in description order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, len(g.order))
	copy(ids, g.order)
	return ids
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int { return len(g.nodes) }

// Links returns the graph's links in description order.
func (g *Graph) Links() []Link {
	out := make([]Link, len(g.links))
	copy(out, g.links)
	return out
}

// Incoming returns the links targeting the given node.
func (g *Graph) Incoming(id string) []Link { return g.incoming[id] }

// Outgoing returns the links originating at the given node.
func (g *Graph) Outgoing(id string) []Link { return g.outgoing[id] }

// Description re-emits the loaded description. Loading the returned value
// into a graph with the same registry reproduces this graph, up to link
// ordering.
func (g *Graph) Description() Description {
	d := Description{
		Nodes: make([]NodeDescription, 0, len(g.order)),
		Links: make([]Link, len(g.links)),
	}
	for _, id := range g.order {
		d.Nodes = append(d.Nodes, g.descs[id])
	}
	copy(d.Links, g.links)
	return d
}

// setNode replaces the canonical instance for a node id. Called by the
// executor with the snapshot returned from a successful firing.
func (g *Graph) setNode(id string, n Node) { g.nodes[id] = n }
