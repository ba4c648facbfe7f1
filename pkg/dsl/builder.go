package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/adapters/memory"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// Builder manages the graph construction. Nodes and edges keep the order
// in which they were declared, which is also the order of the compiled
// conversation.
type Builder struct {
	nodes []*domain.Node
	index map[string]*domain.Node
	edges []domain.Edge
	errs  []error
}

// New creates a new graph builder seeded with the start node.
func New() *Builder {
	b := &Builder{index: make(map[string]*domain.Node)}
	b.add(domain.NewStartNode())
	return b
}

// Question declares a top-level question connected to the start node.
func (b *Builder) Question(id, label string) *QuestionBuilder {
	if b.add(domain.Node{ID: id, Kind: domain.KindQuestion, Label: label}) {
		b.Edge(domain.StartNodeID, id)
	}
	return &QuestionBuilder{id: id, builder: b}
}

// Orphan declares a node without any connection.
func (b *Builder) Orphan(kind domain.Kind, id, label string) *Builder {
	b.add(domain.Node{ID: id, Kind: kind, Label: label})
	return b
}

// Edge adds a raw connection. The connection rules are not applied.
func (b *Builder) Edge(source, target string) *Builder {
	b.edges = append(b.edges, domain.Edge{
		ID:     domain.EdgeID(source, target),
		Source: source,
		Target: target,
	})
	return b
}

// Build returns the declared graph. Duplicate ids, unknown kinds and
// edges pointing at undeclared nodes are reported together.
func (b *Builder) Build() (domain.Graph, error) {
	g := domain.Graph{
		Nodes: make([]domain.Node, 0, len(b.nodes)),
		Edges: append([]domain.Edge{}, b.edges...),
	}
	for _, n := range b.nodes {
		g.Nodes = append(g.Nodes, n.Clone())
	}

	errs := append([]error{}, b.errs...)
	if err := compiler.Validate(g); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return domain.Graph{}, err
	}
	return g, nil
}

// BuildTemplate wraps the graph into a named template.
func (b *Builder) BuildTemplate(name, description string) (domain.Template, error) {
	g, err := b.Build()
	if err != nil {
		return domain.Template{}, err
	}
	return domain.Template{Name: name, Description: description, Graph: g}, nil
}

// BuildLoader compiles the graph into an in-memory template loader holding
// a single template.
func (b *Builder) BuildLoader(name string) (*memory.Loader, error) {
	t, err := b.BuildTemplate(name, "")
	if err != nil {
		return nil, err
	}
	loader, err := memory.NewLoader(t)
	if err != nil {
		return nil, fmt.Errorf("failed to build memory loader: %w", err)
	}
	return loader, nil
}

// add registers a node and reports whether it was new.
func (b *Builder) add(n domain.Node) bool {
	if _, exists := b.index[n.ID]; exists {
		b.errs = append(b.errs, fmt.Errorf("%w: %s", domain.ErrDuplicateNodeID, n.ID))
		return false
	}
	ptr := &n
	b.nodes = append(b.nodes, ptr)
	b.index[n.ID] = ptr
	return true
}

func (b *Builder) node(id string) *domain.Node {
	return b.index[id]
}
