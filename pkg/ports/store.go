package ports

import (
	"context"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// GraphStore defines the interface for persisting canvas documents.
type GraphStore interface {
	// Save persists the document under doc.ID, replacing any previous copy.
	Save(ctx context.Context, doc *domain.Document) error

	// Load retrieves a document by ID.
	// Returns domain.ErrDocumentNotFound if the document does not exist.
	Load(ctx context.Context, id string) (*domain.Document, error)

	// Delete removes a document. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of every stored document.
	List(ctx context.Context) ([]string, error)
}
