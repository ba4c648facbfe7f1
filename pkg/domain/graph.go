package domain

import "fmt"

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source"`
	Target string `json:"target" yaml:"target"`
}

// EdgeID builds the default identifier of an edge.
func EdgeID(source, target string) string {
	return fmt.Sprintf("e-%s-%s", source, target)
}

// Graph is the node and edge collections drawn on the canvas.
// Collection order is significant: compilation walks edges in insertion order.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// NewGraph returns a graph holding only the start node.
func NewGraph() Graph {
	return Graph{Nodes: []Node{NewStartNode()}, Edges: []Edge{}}
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Has reports whether a node with the given id exists.
func (g Graph) Has(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// IncomingEdges returns the edges whose target is id, in edge order.
func (g Graph) IncomingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Target == id {
			out = append(out, e)
		}
	}
	return out
}

// OutgoingEdges returns the edges whose source is id, in edge order.
func (g Graph) OutgoingEdges(id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.Source == id {
			out = append(out, e)
		}
	}
	return out
}

// HasEdges reports whether any edge touches the node.
func (g Graph) HasEdges(id string) bool {
	for _, e := range g.Edges {
		if e.Source == id || e.Target == id {
			return true
		}
	}
	return false
}

// Incomers returns the source nodes of edges pointing at id, in node order.
func (g Graph) Incomers(id string) []Node {
	sources := make(map[string]bool)
	for _, e := range g.IncomingEdges(id) {
		sources[e.Source] = true
	}
	return g.filterNodes(sources)
}

// Outgoers returns the target nodes of edges leaving id, in node order.
func (g Graph) Outgoers(id string) []Node {
	targets := make(map[string]bool)
	for _, e := range g.OutgoingEdges(id) {
		targets[e.Target] = true
	}
	return g.filterNodes(targets)
}

func (g Graph) filterNodes(ids map[string]bool) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if ids[n.ID] {
			out = append(out, n)
		}
	}
	return out
}

// FindByKind returns every node of the given kind, in node order.
func (g Graph) FindByKind(k Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

// Start returns the first start node of the graph.
func (g Graph) Start() (Node, bool) {
	starts := g.FindByKind(KindStart)
	if len(starts) == 0 {
		return Node{}, false
	}
	return starts[0], true
}

// HasEdge reports whether an edge source -> target exists.
func (g Graph) HasEdge(source, target string) bool {
	for _, e := range g.Edges {
		if e.Source == source && e.Target == target {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the graph.
func (g Graph) Clone() Graph {
	c := Graph{
		Nodes: make([]Node, len(g.Nodes)),
		Edges: make([]Edge, len(g.Edges)),
	}
	for i, n := range g.Nodes {
		c.Nodes[i] = n.Clone()
	}
	copy(c.Edges, g.Edges)
	return c
}
