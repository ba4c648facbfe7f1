package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// Loader implements ports.TemplateLoader using an in-memory map.
type Loader struct {
	templates map[string]domain.Template
}

// NewLoader creates a loader from domain templates. Every template graph
// must pass the structural checks and names must be unique.
func NewLoader(templates ...domain.Template) (*Loader, error) {
	data := make(map[string]domain.Template, len(templates))
	for _, t := range templates {
		if t.Name == "" {
			return nil, fmt.Errorf("template missing name")
		}
		if _, dup := data[t.Name]; dup {
			return nil, fmt.Errorf("duplicate template %q", t.Name)
		}
		if err := compiler.Validate(t.Graph); err != nil {
			return nil, fmt.Errorf("template %s: %w", t.Name, err)
		}
		t.Graph = t.Graph.Clone()
		data[t.Name] = t
	}
	return &Loader{templates: data}, nil
}

// NewFromSnapshots parses raw JSON snapshots keyed by template name.
// This improves DX for tests and embedded catalogues.
func NewFromSnapshots(data map[string]string) (*Loader, error) {
	parser := compiler.NewParser()
	templates := make([]domain.Template, 0, len(data))
	for name, raw := range data {
		g, err := parser.Parse([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
		templates = append(templates, domain.Template{Name: name, Graph: g})
	}
	return NewLoader(templates...)
}

// Template retrieves a template by name.
func (l *Loader) Template(ctx context.Context, name string) (domain.Template, error) {
	t, ok := l.templates[name]
	if !ok {
		return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
	}
	t.Graph = t.Graph.Clone()
	return t, nil
}

// Templates returns all templates sorted by name.
func (l *Loader) Templates(ctx context.Context) ([]domain.Template, error) {
	names := make([]string, 0, len(l.templates))
	for k := range l.templates {
		names = append(names, k)
	}
	sort.Strings(names) // Deterministic order

	out := make([]domain.Template, 0, len(names))
	for _, name := range names {
		t := l.templates[name]
		t.Graph = t.Graph.Clone()
		out = append(out, t)
	}
	return out, nil
}
