package editor

import (
	"context"
	"fmt"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// Apply dispatches a command to the matching operation. Unlike Connect,
// a refused connection is reported as ErrConnectionRejected.
func (e *Editor) Apply(ctx context.Context, cmd domain.Command) error {
	switch c := cmd.(type) {
	case domain.AddNode:
		_, err := e.AddNode(ctx, c)
		return err
	case domain.Connect:
		if v := e.Connect(ctx, c.Source, c.Target); !v.Allowed {
			return fmt.Errorf("%w [%s]: %s", ErrConnectionRejected, v.Rule, v.Reason)
		}
		return nil
	case domain.Disconnect:
		e.Disconnect(ctx, c.Source, c.Target)
		return nil
	case domain.RenameNode:
		return e.Rename(ctx, c.ID, c.Label)
	case domain.DeleteNode:
		return e.Delete(ctx, c.ID)
	case domain.MoveNode:
		return e.Move(ctx, c.ID, c.Position)
	case domain.SetChecklistItems:
		return e.SetChecklistItems(ctx, c.ID, c.Items)
	case domain.AddAttachment:
		_, err := e.AddAttachment(ctx, c.NodeID, c.Attachment)
		return err
	case domain.RemoveAttachment:
		return e.RemoveAttachment(ctx, c.NodeID, c.AttachmentID)
	case nil:
		return fmt.Errorf("%w: nil command", domain.ErrInvalidCommand)
	default:
		return fmt.Errorf("%w: unsupported command %q", domain.ErrInvalidCommand, cmd.CommandName())
	}
}

// ApplyAll applies commands in order and stops at the first failure. The
// graph is left untouched when any command fails, and the node and edge
// hooks fire only once the whole batch has succeeded. Rejected connections
// are reported immediately.
func (e *Editor) ApplyAll(ctx context.Context, cmds []domain.Command) error {
	e.pending = []func(){}
	err := e.applyAll(ctx, cmds)
	events := e.pending
	e.pending = nil
	if err != nil {
		return err
	}
	for _, fire := range events {
		fire()
	}
	return nil
}

func (e *Editor) applyAll(ctx context.Context, cmds []domain.Command) error {
	backup := e.graph.Clone()
	for i, cmd := range cmds {
		if err := e.Apply(ctx, cmd); err != nil {
			e.graph = backup
			return fmt.Errorf("command %d: %w", i, err)
		}
	}
	return nil
}

// Import merges a template graph into the current one. Template nodes other
// than start are appended under fresh ids; edges leaving the template's
// start are re-attached to this graph's start node. Every edge goes through
// the connection rules, so edges that would break them are dropped.
// It returns the mapping from template ids to the ids used in this graph.
func (e *Editor) Import(ctx context.Context, tmpl domain.Graph) (map[string]string, error) {
	if err := compiler.Validate(tmpl); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	start, ok := e.graph.Start()
	if !ok {
		return nil, &domain.StructuralError{Kind: "missing_start", Msg: "graph has no start node"}
	}

	mapping := make(map[string]string, len(tmpl.Nodes))
	for _, n := range tmpl.Nodes {
		if n.Kind == domain.KindStart {
			mapping[n.ID] = start.ID
			continue
		}
		c := n.Clone()
		c.ID = e.freshID(n.Kind)
		e.graph.Nodes = append(e.graph.Nodes, c)
		mapping[n.ID] = c.ID
		e.emitNode(ctx, e.hooks.OnNodeAdded, domain.EventNodeAdded, c)
	}

	dropped := 0
	for _, edge := range tmpl.Edges {
		if v := e.Connect(ctx, mapping[edge.Source], mapping[edge.Target]); !v.Allowed {
			dropped++
		}
	}

	e.logger.Info("template imported", "nodes", len(mapping), "edges", len(tmpl.Edges), "dropped_edges", dropped)
	return mapping, nil
}
