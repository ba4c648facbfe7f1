package observability

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// LoggingHooks returns editor hooks that log every mutation at debug level
// and rejected connections at info level.
func LoggingHooks(logger *slog.Logger) domain.EditorHooks {
	node := func(msg string) func(context.Context, *domain.NodeEvent) {
		return func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, msg, "node_id", e.NodeID, "kind", e.NodeKind)
		}
	}
	return domain.EditorHooks{
		OnNodeAdded:   node("node_added"),
		OnNodeRemoved: node("node_removed"),
		OnNodeUpdated: node("node_updated"),
		OnEdgeAdded: func(ctx context.Context, e *domain.EdgeEvent) {
			logger.DebugContext(ctx, "edge_added", "source", e.Source, "target", e.Target)
		},
		OnEdgeRemoved: func(ctx context.Context, e *domain.EdgeEvent) {
			logger.DebugContext(ctx, "edge_removed", "source", e.Source, "target", e.Target)
		},
		OnConnectionRejected: func(ctx context.Context, e *domain.EdgeEvent) {
			logger.InfoContext(ctx, "connection_rejected", "source", e.Source, "target", e.Target, "rule", e.Rule)
		},
	}
}

func exportResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrExportBlocked):
		return "blocked"
	default:
		return "failed"
	}
}
