package loam

import (
	"context"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/loam"
	"github.com/mitchellh/mapstructure"
)

// Loader adapts a Loam repository to the ports.TemplateLoader interface.
type Loader struct {
	Repo *loam.TypedRepository[NodeMetadata]
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[NodeMetadata]) *Loader {
	return &Loader{
		Repo: repo,
	}
}

// Open initializes a read-only Loam repository at dir and wraps it.
func Open(dir string) (*Loader, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize loam: %w", err)
	}
	return New(loam.NewTypedRepository[NodeMetadata](repo)), nil
}

// draft accumulates the files of one template before it is assembled.
type draft struct {
	tmpl  domain.Template
	nodes []placed
	seen  map[string]string
}

type placed struct {
	node   domain.Node
	parent string
	order  int
}

// Templates loads every template in the library, sorted by name.
func (l *Loader) Templates(ctx context.Context) ([]domain.Template, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	drafts := make(map[string]*draft)
	for _, doc := range docs {
		docID := trimExtension(doc.ID)
		name := doc.Data.Template
		if name == "" {
			name = path.Dir(docID)
		}
		if name == "." || name == "" {
			return nil, fmt.Errorf("%s: file at library root must declare a template", doc.ID)
		}

		d, ok := drafts[name]
		if !ok {
			d = &draft{tmpl: domain.Template{Name: name}, seen: make(map[string]string)}
			drafts[name] = d
		}

		if strings.EqualFold(doc.Data.Kind, KindTemplate) {
			d.tmpl.Description = strings.TrimSpace(doc.Data.Description)
			if d.tmpl.Description == "" {
				d.tmpl.Description = strings.TrimSpace(doc.Content)
			}
			d.tmpl.Tags = doc.Data.Tags
			continue
		}

		p, err := toNode(docID, doc.Data, doc.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", doc.ID, err)
		}
		if existing, dup := d.seen[p.node.ID]; dup {
			return nil, fmt.Errorf("%w: '%s' is defined in both '%s' and '%s'", domain.ErrDuplicateNodeID, p.node.ID, existing, doc.ID)
		}
		d.seen[p.node.ID] = doc.ID
		d.nodes = append(d.nodes, p)
	}

	out := make([]domain.Template, 0, len(drafts))
	for _, d := range drafts {
		t, err := d.assemble()
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", d.tmpl.Name, err)
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Template loads a single template by name.
func (l *Loader) Template(ctx context.Context, name string) (domain.Template, error) {
	all, err := l.Templates(ctx)
	if err != nil {
		return domain.Template{}, err
	}
	for _, t := range all {
		if t.Name == name {
			return t, nil
		}
	}
	return domain.Template{}, fmt.Errorf("%w: %s", domain.ErrTemplateNotFound, name)
}

// assemble orders the nodes and wires parent edges. Siblings are sorted by
// order then id, which fixes the sibling order of the compiled output.
func (d *draft) assemble() (domain.Template, error) {
	sort.SliceStable(d.nodes, func(i, j int) bool {
		if d.nodes[i].order != d.nodes[j].order {
			return d.nodes[i].order < d.nodes[j].order
		}
		return d.nodes[i].node.ID < d.nodes[j].node.ID
	})

	g := domain.Graph{Nodes: []domain.Node{domain.NewStartNode()}}
	for _, p := range d.nodes {
		g.Nodes = append(g.Nodes, p.node)
	}
	for _, p := range d.nodes {
		if p.parent == "" {
			continue
		}
		g.Edges = append(g.Edges, domain.Edge{
			ID:     domain.EdgeID(p.parent, p.node.ID),
			Source: p.parent,
			Target: p.node.ID,
		})
	}

	if err := compiler.Validate(g); err != nil {
		return domain.Template{}, err
	}
	d.tmpl.Graph = g
	return d.tmpl, nil
}

func toNode(docID string, meta NodeMetadata, content string) (placed, error) {
	kind, err := domain.ParseKind(meta.Kind)
	if err != nil {
		return placed{}, err
	}
	if kind == domain.KindStart {
		return placed{}, fmt.Errorf("%w: the start node is implicit", domain.ErrStartImmutable)
	}

	id := meta.ID
	if id == "" {
		id = path.Base(docID)
	}
	id = trimExtension(id)

	n := domain.Node{ID: id, Kind: kind, Label: strings.TrimSpace(content)}

	if kind == domain.KindChecklist {
		items, err := decodeItems(meta.Items)
		if err != nil {
			return placed{}, err
		}
		n.ChecklistItems = items
	}

	if len(meta.Position) > 0 {
		if err := weakDecode(meta.Position, &n.Position); err != nil {
			return placed{}, fmt.Errorf("position: %w", err)
		}
	}

	var order int
	if meta.Order != nil {
		if err := weakDecode(meta.Order, &order); err != nil {
			return placed{}, fmt.Errorf("order: %w", err)
		}
	}

	parent := meta.Parent
	if parent == "" && kind == domain.KindQuestion {
		parent = domain.StartNodeID
	}

	return placed{node: n, parent: trimExtension(parent), order: order}, nil
}

// decodeItems accepts plain strings and inline {text, required} maps.
func decodeItems(raw []any) ([]domain.ChecklistItem, error) {
	items := make([]domain.ChecklistItem, 0, len(raw))
	for i, item := range raw {
		switch v := item.(type) {
		case nil:
			items = append(items, domain.ChecklistItem{})
		case string:
			items = append(items, domain.ChecklistItem{Text: v})
		case map[string]any, map[any]any:
			var ci domain.ChecklistItem
			if err := weakDecode(v, &ci); err != nil {
				return nil, fmt.Errorf("items[%d]: %w", i, err)
			}
			items = append(items, ci)
		default:
			return nil, fmt.Errorf("items[%d]: invalid checklist item type: %T", i, v)
		}
	}
	return items, nil
}

func weakDecode(input, output any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           output,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}

// Watch implements ports.Watchable. Every change in the library is reported
// as a single tick; consumers reload the whole library.
func (l *Loader) Watch(ctx context.Context) (<-chan struct{}, error) {
	events, err := l.Repo.Watch(ctx, "**/*.{md,json,yaml,yml}")
	if err != nil {
		return nil, fmt.Errorf("failed to start loam watcher: %w", err)
	}

	ch := make(chan struct{}, 1)

	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-events:
				if !ok {
					return
				}
				// Coalesce bursts: a pending tick already covers this change.
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()

	return ch, nil
}
