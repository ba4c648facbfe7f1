package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventNodeAdded          EventType = "node_added"
	EventNodeRemoved        EventType = "node_removed"
	EventNodeUpdated        EventType = "node_updated"
	EventEdgeAdded          EventType = "edge_added"
	EventEdgeRemoved        EventType = "edge_removed"
	EventConnectionRejected EventType = "connection_rejected"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// NodeEvent represents a node entering, leaving or changing in the graph.
type NodeEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	NodeKind Kind   `json:"node_kind"`
}

// EdgeEvent represents an edge change or a rejected connection attempt.
// Rule names the validator rule that decided the outcome.
type EdgeEvent struct {
	EventBase
	Source string `json:"source"`
	Target string `json:"target"`
	Rule   string `json:"rule,omitempty"`
}

// EditorHooks defines callbacks for editor observability.
type EditorHooks struct {
	OnNodeAdded          func(context.Context, *NodeEvent)
	OnNodeRemoved        func(context.Context, *NodeEvent)
	OnNodeUpdated        func(context.Context, *NodeEvent)
	OnEdgeAdded          func(context.Context, *EdgeEvent)
	OnEdgeRemoved        func(context.Context, *EdgeEvent)
	OnConnectionRejected func(context.Context, *EdgeEvent)
}

// Merge returns hooks that call h first and then other.
func (h EditorHooks) Merge(other EditorHooks) EditorHooks {
	return EditorHooks{
		OnNodeAdded:          chain(h.OnNodeAdded, other.OnNodeAdded),
		OnNodeRemoved:        chain(h.OnNodeRemoved, other.OnNodeRemoved),
		OnNodeUpdated:        chain(h.OnNodeUpdated, other.OnNodeUpdated),
		OnEdgeAdded:          chain(h.OnEdgeAdded, other.OnEdgeAdded),
		OnEdgeRemoved:        chain(h.OnEdgeRemoved, other.OnEdgeRemoved),
		OnConnectionRejected: chain(h.OnConnectionRejected, other.OnConnectionRejected),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
