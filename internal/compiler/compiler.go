package compiler

import (
	"fmt"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// Compile walks the graph forward from rootID and builds the ordered
// conversation tree. Children are the question targets of the root's
// outgoing edges, in edge order.
//
// A checklist with zero items is left out of the compiled question, while
// blank items of a non-empty checklist are kept verbatim.
//
// A question that can be reached again from one of its own descendants
// fails the compilation with a *domain.StructuralError of kind "cycle".
// The same question reached along two separate paths is expanded under
// each parent.
func Compile(g domain.Graph, rootID string) ([]domain.ConversationNode, error) {
	c := newCompilation(g)
	if _, ok := c.nodes[rootID]; !ok {
		return nil, &domain.StructuralError{
			Kind:    "missing_root",
			Msg:     fmt.Sprintf("root node %q does not exist", rootID),
			NodeIDs: []string{rootID},
		}
	}
	if path := FindCycle(g, rootID); path != nil {
		return nil, &domain.StructuralError{Kind: "cycle", Msg: "cycle detected", NodeIDs: path}
	}
	return c.children(rootID)
}

// Definition compiles the whole graph from its start node.
func Definition(g domain.Graph) (*domain.ConversationDefinition, error) {
	start, ok := g.Start()
	if !ok {
		return nil, &domain.StructuralError{Kind: "missing_start", Msg: "graph has no start node"}
	}
	questions, err := Compile(g, start.ID)
	if err != nil {
		return nil, err
	}
	return &domain.ConversationDefinition{Questions: questions}, nil
}

type compilation struct {
	nodes    map[string]domain.Node
	outgoing map[string][]domain.Edge

	// trail is the current ancestor path; onTrail mirrors it for lookups.
	trail   []string
	onTrail map[string]bool
}

func newCompilation(g domain.Graph) *compilation {
	c := &compilation{
		nodes:    make(map[string]domain.Node, len(g.Nodes)),
		outgoing: make(map[string][]domain.Edge),
		onTrail:  make(map[string]bool),
	}
	for _, n := range g.Nodes {
		if _, dup := c.nodes[n.ID]; !dup {
			c.nodes[n.ID] = n
		}
	}
	for _, e := range g.Edges {
		c.outgoing[e.Source] = append(c.outgoing[e.Source], e)
	}
	return c
}

func (c *compilation) enter(id string) {
	c.trail = append(c.trail, id)
	c.onTrail[id] = true
}

func (c *compilation) leave(id string) {
	c.trail = c.trail[:len(c.trail)-1]
	delete(c.onTrail, id)
}

func (c *compilation) children(parentID string) ([]domain.ConversationNode, error) {
	c.enter(parentID)
	defer c.leave(parentID)

	result := []domain.ConversationNode{}
	for _, e := range c.outgoing[parentID] {
		target, ok := c.nodes[e.Target]
		if !ok || target.Kind != domain.KindQuestion {
			continue
		}
		if c.onTrail[target.ID] {
			return nil, c.cycleError(target.ID)
		}

		node, err := c.question(target)
		if err != nil {
			return nil, err
		}
		result = append(result, node)
	}
	return result, nil
}

func (c *compilation) question(q domain.Node) (domain.ConversationNode, error) {
	node := domain.ConversationNode{
		ID:   q.ID,
		Text: q.Label,
	}

	if answer, ok := c.firstTarget(q.ID, domain.KindAnswer); ok {
		label := answer.Label
		node.Answer = &label
	}

	if checklist, ok := c.firstTarget(q.ID, domain.KindChecklist); ok && len(checklist.ChecklistItems) > 0 {
		node.Checklist = &domain.Checklist{
			Title: checklist.Label,
			Items: checklist.ItemTexts(),
		}
	}

	if len(q.Attachments) > 0 {
		node.Attachments = make([]domain.AttachmentRef, len(q.Attachments))
		for i, a := range q.Attachments {
			node.Attachments[i] = domain.AttachmentRef{ID: a.ID, Name: a.Name}
		}
	}

	children, err := c.children(q.ID)
	if err != nil {
		return domain.ConversationNode{}, err
	}
	node.Children = children
	return node, nil
}

func (c *compilation) firstTarget(sourceID string, k domain.Kind) (domain.Node, bool) {
	for _, e := range c.outgoing[sourceID] {
		if n, ok := c.nodes[e.Target]; ok && n.Kind == k {
			return n, true
		}
	}
	return domain.Node{}, false
}

// cyclePath closes the current trail at repeated: repeated, ..., repeated.
func (c *compilation) cyclePath(repeated string) []string {
	for i, id := range c.trail {
		if id == repeated {
			return append(append([]string{}, c.trail[i:]...), repeated)
		}
	}
	return []string{repeated}
}

func (c *compilation) cycleError(repeated string) error {
	return &domain.StructuralError{
		Kind:    "cycle",
		Msg:     "cycle detected",
		NodeIDs: c.cyclePath(repeated),
	}
}

// FindCycle reports the first question cycle reachable from rootID as a
// closed path (first and last id equal), or nil when there is none.
// Unlike Compile it visits every node once, so shared sub-questions cost
// nothing extra.
func FindCycle(g domain.Graph, rootID string) []string {
	c := newCompilation(g)
	if _, ok := c.nodes[rootID]; !ok {
		return nil
	}
	done := make(map[string]bool, len(c.nodes))

	var visit func(id string) []string
	visit = func(id string) []string {
		c.enter(id)
		defer c.leave(id)
		for _, e := range c.outgoing[id] {
			target, ok := c.nodes[e.Target]
			if !ok || target.Kind != domain.KindQuestion {
				continue
			}
			if c.onTrail[target.ID] {
				return c.cyclePath(target.ID)
			}
			if done[target.ID] {
				continue
			}
			if path := visit(target.ID); path != nil {
				return path
			}
		}
		done[id] = true
		return nil
	}
	return visit(rootID)
}
