// Package editor implements the authoring operations of the canvas: adding
// and removing nodes, wiring them under the connection rules, and exporting
// the compiled conversation.
//
// An Editor is not safe for concurrent use. Hosts that share one document
// between requests serialize access (see pkg/session).
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/internal/validator"
	"github.com/aretw0/botcanvas/pkg/attachment"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// ErrConnectionRejected is returned by Apply when a Connect command is
// refused by the connection rules. The direct Connect method never errors.
var ErrConnectionRejected = errors.New("connection rejected")

// ErrAttachmentNotFound is returned when removing an unknown attachment.
var ErrAttachmentNotFound = errors.New("attachment not found")

// Editor owns one dialogue graph.
type Editor struct {
	graph  domain.Graph
	clock  func() time.Time
	logger *slog.Logger
	hooks  domain.EditorHooks

	// pending holds mutation events of a batch in progress; nil outside one.
	pending []func()
}

// Option configures an Editor.
type Option func(*Editor)

// WithClock overrides the time source used for generated node ids and event timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Editor) {
		e.clock = clock
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithHooks registers observers for graph mutations.
func WithHooks(hooks domain.EditorHooks) Option {
	return func(e *Editor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// New creates an editor over a fresh graph holding only the start node.
func New(opts ...Option) *Editor {
	e := &Editor{graph: domain.NewGraph()}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return e
}

// FromGraph creates an editor over a copy of g. The graph must pass the
// structural checks of compiler.Validate; a missing start node is inserted.
func FromGraph(g domain.Graph, opts ...Option) (*Editor, error) {
	if err := compiler.Validate(g); err != nil {
		return nil, err
	}
	e := New(opts...)
	e.graph = compiler.EnsureStart(g.Clone())
	if e.graph.Nodes == nil {
		e.graph.Nodes = []domain.Node{}
	}
	if e.graph.Edges == nil {
		e.graph.Edges = []domain.Edge{}
	}
	return e, nil
}

// Snapshot returns a deep copy of the current graph.
func (e *Editor) Snapshot() domain.Graph {
	return e.graph.Clone()
}

// AddNode drops a new node on the canvas. An empty id is generated from the
// kind and the clock; an empty label falls back to the kind's default label.
// Start nodes cannot be added.
func (e *Editor) AddNode(ctx context.Context, cmd domain.AddNode) (domain.Node, error) {
	if !cmd.Kind.IsValid() {
		return domain.Node{}, fmt.Errorf("%w: %q", domain.ErrInvalidKind, cmd.Kind)
	}
	if cmd.Kind == domain.KindStart {
		return domain.Node{}, fmt.Errorf("%w: only one start node is allowed", domain.ErrStartImmutable)
	}

	id := strings.TrimSpace(cmd.ID)
	if id == "" {
		id = e.freshID(cmd.Kind)
	} else if e.graph.Has(id) {
		return domain.Node{}, fmt.Errorf("%w: %s", domain.ErrDuplicateNodeID, id)
	}

	label := cmd.Label
	if label == "" {
		label = domain.DefaultLabel(cmd.Kind)
	}

	n := domain.Node{ID: id, Kind: cmd.Kind, Label: label, Position: cmd.Position}
	if cmd.Kind == domain.KindChecklist {
		n.ChecklistItems = []domain.ChecklistItem{}
	}
	e.graph.Nodes = append(e.graph.Nodes, n)

	e.logger.Debug("node added", "node_id", id, "kind", cmd.Kind)
	e.emitNode(ctx, e.hooks.OnNodeAdded, domain.EventNodeAdded, n)
	return n.Clone(), nil
}

// freshID returns an unused id derived from the clock. Nodes created within
// the same millisecond get a numeric suffix.
func (e *Editor) freshID(k domain.Kind) string {
	base := domain.NewNodeID(k, e.clock())
	id := base
	for i := 1; e.graph.Has(id); i++ {
		id = fmt.Sprintf("%s_%d", base, i)
	}
	return id
}

// Connect adds the edge source -> target when the connection rules allow it.
// A rejected connection leaves the graph unchanged and is reported through
// the returned verdict and the OnConnectionRejected hook only.
func (e *Editor) Connect(ctx context.Context, source, target string) validator.Verdict {
	verdict := validator.Check(e.graph, source, target)
	if !verdict.Allowed {
		e.logger.Debug("connection rejected", "source", source, "target", target, "rule", verdict.Rule)
		e.fireEdge(ctx, e.hooks.OnConnectionRejected, domain.EventConnectionRejected, source, target, string(verdict.Rule))
		return verdict
	}

	e.graph.Edges = append(e.graph.Edges, domain.Edge{
		ID:     domain.EdgeID(source, target),
		Source: source,
		Target: target,
	})
	e.logger.Debug("edge added", "source", source, "target", target)
	e.emitEdge(ctx, e.hooks.OnEdgeAdded, domain.EventEdgeAdded, source, target, string(verdict.Rule))
	return verdict
}

// Disconnect removes every edge source -> target. It reports whether anything was removed.
func (e *Editor) Disconnect(ctx context.Context, source, target string) bool {
	kept := e.graph.Edges[:0]
	removed := 0
	for _, edge := range e.graph.Edges {
		if edge.Source == source && edge.Target == target {
			removed++
			continue
		}
		kept = append(kept, edge)
	}
	e.graph.Edges = kept
	if removed == 0 {
		return false
	}
	e.emitEdge(ctx, e.hooks.OnEdgeRemoved, domain.EventEdgeRemoved, source, target, "")
	return true
}

// Rename changes the label of a node.
func (e *Editor) Rename(ctx context.Context, id, label string) error {
	return e.update(ctx, id, func(n *domain.Node) error {
		if n.Kind == domain.KindStart {
			return fmt.Errorf("%w: cannot rename %s", domain.ErrStartImmutable, id)
		}
		n.Label = label
		return nil
	})
}

// Move changes the canvas position of a node. The start node stays where it is.
func (e *Editor) Move(ctx context.Context, id string, pos domain.Position) error {
	return e.update(ctx, id, func(n *domain.Node) error {
		if n.Kind == domain.KindStart {
			return fmt.Errorf("%w: cannot move %s", domain.ErrStartImmutable, id)
		}
		n.Position = pos
		return nil
	})
}

// SetChecklistItems replaces the items of a checklist node. Blank items are kept.
func (e *Editor) SetChecklistItems(ctx context.Context, id string, items []domain.ChecklistItem) error {
	return e.update(ctx, id, func(n *domain.Node) error {
		if n.Kind != domain.KindChecklist {
			return fmt.Errorf("%w: %s is a %s, not a checklist", domain.ErrInvalidKind, id, n.Kind)
		}
		n.ChecklistItems = append([]domain.ChecklistItem{}, items...)
		return nil
	})
}

// AddAttachment attaches a file to a question or answer node. The payload
// must decode and fit within attachment.MaxSize; the id is recomputed from
// the content. Attaching the same content twice is a no-op.
func (e *Editor) AddAttachment(ctx context.Context, nodeID string, a domain.Attachment) (domain.Attachment, error) {
	data, err := attachment.Decode(a)
	if err != nil {
		return domain.Attachment{}, err
	}
	normalized, err := attachment.New(a.Name, data)
	if err != nil {
		return domain.Attachment{}, err
	}

	err = e.update(ctx, nodeID, func(n *domain.Node) error {
		if n.Kind != domain.KindQuestion && n.Kind != domain.KindAnswer {
			return fmt.Errorf("%w: attachments are only allowed on questions and answers", domain.ErrInvalidKind)
		}
		for _, existing := range n.Attachments {
			if existing.ID == normalized.ID {
				return nil
			}
		}
		n.Attachments = append(n.Attachments, normalized)
		return nil
	})
	if err != nil {
		return domain.Attachment{}, err
	}
	return normalized, nil
}

// RemoveAttachment detaches a file from a node.
func (e *Editor) RemoveAttachment(ctx context.Context, nodeID, attachmentID string) error {
	return e.update(ctx, nodeID, func(n *domain.Node) error {
		for i, a := range n.Attachments {
			if a.ID == attachmentID {
				n.Attachments = append(n.Attachments[:i:i], n.Attachments[i+1:]...)
				if len(n.Attachments) == 0 {
					n.Attachments = nil
				}
				return nil
			}
		}
		return fmt.Errorf("%w: %s on %s", ErrAttachmentNotFound, attachmentID, nodeID)
	})
}

// Delete removes a node and every edge touching it.
func (e *Editor) Delete(ctx context.Context, id string) error {
	idx := e.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	n := e.graph.Nodes[idx]
	if n.Kind == domain.KindStart {
		return fmt.Errorf("%w: cannot delete %s", domain.ErrStartImmutable, id)
	}

	e.graph.Nodes = append(e.graph.Nodes[:idx:idx], e.graph.Nodes[idx+1:]...)

	var removed []domain.Edge
	kept := make([]domain.Edge, 0, len(e.graph.Edges))
	for _, edge := range e.graph.Edges {
		if edge.Source == id || edge.Target == id {
			removed = append(removed, edge)
			continue
		}
		kept = append(kept, edge)
	}
	e.graph.Edges = kept

	e.logger.Debug("node deleted", "node_id", id, "edges_removed", len(removed))
	for _, edge := range removed {
		e.emitEdge(ctx, e.hooks.OnEdgeRemoved, domain.EventEdgeRemoved, edge.Source, edge.Target, "")
	}
	e.emitNode(ctx, e.hooks.OnNodeRemoved, domain.EventNodeRemoved, n)
	return nil
}

// Lint runs the lint engine against the current graph.
func (e *Editor) Lint() domain.Findings {
	return lint.Lint(e.graph)
}

// Compile builds the conversation definition from the start node.
func (e *Editor) Compile() (*domain.ConversationDefinition, error) {
	return compiler.Definition(e.graph)
}

// Export compiles the current graph into a Bundle.
func (e *Editor) Export() (*Bundle, error) {
	b, err := Export(e.graph)
	if err != nil {
		e.logger.Info("export refused", "err", err)
	}
	return b, err
}

func (e *Editor) indexOf(id string) int {
	for i, n := range e.graph.Nodes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func (e *Editor) update(ctx context.Context, id string, fn func(*domain.Node) error) error {
	idx := e.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	n := e.graph.Nodes[idx].Clone()
	if err := fn(&n); err != nil {
		return err
	}
	e.graph.Nodes[idx] = n
	e.emitNode(ctx, e.hooks.OnNodeUpdated, domain.EventNodeUpdated, n)
	return nil
}

// dispatch runs a mutation event now, or queues it while a batch is open.
func (e *Editor) dispatch(fire func()) {
	if e.pending != nil {
		e.pending = append(e.pending, fire)
		return
	}
	fire()
}

func (e *Editor) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), t domain.EventType, n domain.Node) {
	if hook == nil {
		return
	}
	ev := &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: t},
		NodeID:    n.ID,
		NodeKind:  n.Kind,
	}
	e.dispatch(func() { hook(ctx, ev) })
}

func (e *Editor) emitEdge(ctx context.Context, hook func(context.Context, *domain.EdgeEvent), t domain.EventType, source, target, rule string) {
	if hook == nil {
		return
	}
	ev := e.edgeEvent(t, source, target, rule)
	e.dispatch(func() { hook(ctx, ev) })
}

// fireEdge bypasses batching. Rejections change nothing, so there is
// nothing to roll back.
func (e *Editor) fireEdge(ctx context.Context, hook func(context.Context, *domain.EdgeEvent), t domain.EventType, source, target, rule string) {
	if hook == nil {
		return
	}
	hook(ctx, e.edgeEvent(t, source, target, rule))
}

func (e *Editor) edgeEvent(t domain.EventType, source, target, rule string) *domain.EdgeEvent {
	return &domain.EdgeEvent{
		EventBase: domain.EventBase{Timestamp: e.clock(), Type: t},
		Source:    source,
		Target:    target,
		Rule:      rule,
	}
}
