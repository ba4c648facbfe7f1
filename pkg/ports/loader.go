package ports

import (
	"context"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// TemplateLoader defines how reusable graph fragments are discovered.
// This allows the template catalogue (Loam, Memory) to be decoupled.
type TemplateLoader interface {
	// Templates returns every available template, sorted by name.
	Templates(ctx context.Context) ([]domain.Template, error)

	// Template retrieves a single template by name.
	// Returns domain.ErrTemplateNotFound if the name is unknown.
	Template(ctx context.Context, name string) (domain.Template, error)
}

// Watchable defines an interface for loaders that can notify about backend changes.
// This is typically used for hot-reload of the template catalogue.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying templates change.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
