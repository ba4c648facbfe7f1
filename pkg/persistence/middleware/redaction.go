package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

type redactionMiddleware struct {
	next     ports.GraphStore
	patterns []*regexp.Regexp
}

// NewRedactionMiddleware creates a middleware that masks text matching any
// of the patterns in node labels, checklist items and attachment names
// before the document reaches the store. Loads are passed through.
func NewRedactionMiddleware(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.GraphStore) ports.GraphStore {
		return &redactionMiddleware{next: next, patterns: patterns}
	}
}

func (m *redactionMiddleware) Save(ctx context.Context, doc *domain.Document) error {
	// Deep clone so the caller's in-memory document keeps the original text.
	cloned := doc.Clone()

	for i := range cloned.Graph.Nodes {
		n := &cloned.Graph.Nodes[i]
		n.Label = m.mask(n.Label)
		for j := range n.ChecklistItems {
			n.ChecklistItems[j].Text = m.mask(n.ChecklistItems[j].Text)
		}
		for j := range n.Attachments {
			n.Attachments[j].Name = m.mask(n.Attachments[j].Name)
		}
	}

	return m.next.Save(ctx, cloned)
}

func (m *redactionMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllLiteralString(s, Mask)
	}
	return s
}

func (m *redactionMiddleware) Load(ctx context.Context, id string) (*domain.Document, error) {
	return m.next.Load(ctx, id)
}

func (m *redactionMiddleware) Delete(ctx context.Context, id string) error {
	return m.next.Delete(ctx, id)
}

func (m *redactionMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}
