package compiler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Format is a snapshot encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported format %q (expected json or yaml)", s)
	}
}

// Parser is responsible for converting raw snapshot bytes into a Graph.
//
// Both the flat shape ({id, kind, label, ...}) and the editor shape
// ({id, type, position, data: {label, type, checklistItems, attachments}})
// are accepted. Unknown fields are rejected.
type Parser struct {
	format      Format
	ensureStart bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithFormat sets the snapshot encoding (default JSON).
func WithFormat(f Format) ParserOption {
	return func(p *Parser) {
		p.format = f
	}
}

// WithEnsureStart controls whether a missing start node is inserted after
// parsing (default true, matching how the editor loads saved canvases).
func WithEnsureStart(enabled bool) ParserOption {
	return func(p *Parser) {
		p.ensureStart = enabled
	}
}

// NewParser creates a new parser instance.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{format: FormatJSON, ensureStart: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse decodes and validates a snapshot.
func (p *Parser) Parse(data []byte) (domain.Graph, error) {
	return p.ParseReader(bytes.NewReader(data))
}

// ParseReader decodes and validates a snapshot read from r.
func (p *Parser) ParseReader(r io.Reader) (domain.Graph, error) {
	var raw rawSnapshot
	switch p.format {
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&raw); err != nil {
			return domain.Graph{}, &domain.SchemaError{Field: "snapshot", Msg: err.Error()}
		}
	default:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&raw); err != nil {
			return domain.Graph{}, &domain.SchemaError{Field: "snapshot", Msg: err.Error()}
		}
	}

	g, err := raw.toGraph()
	if err != nil {
		return domain.Graph{}, err
	}
	if err := Validate(g); err != nil {
		return domain.Graph{}, err
	}
	if p.ensureStart {
		g = EnsureStart(g)
	}
	return g, nil
}

// Validate checks the structural integrity of a graph: unique ids, known
// kinds, at most one start node and edges that reference existing nodes.
// Every problem is reported.
func Validate(g domain.Graph) error {
	var errs []error
	seen := make(map[string]bool, len(g.Nodes))
	var starts []string

	for i, n := range g.Nodes {
		if n.ID == "" {
			errs = append(errs, &domain.SchemaError{Field: fmt.Sprintf("nodes[%d].id", i), Msg: "required field is missing"})
			continue
		}
		if !n.Kind.IsValid() {
			errs = append(errs, &domain.SchemaError{Field: fmt.Sprintf("nodes[%d].kind", i), Msg: fmt.Sprintf("unknown kind %q", n.Kind)})
		}
		if seen[n.ID] {
			errs = append(errs, &domain.StructuralError{Kind: "duplicate_id", Msg: "node id is used more than once", NodeIDs: []string{n.ID}})
		}
		seen[n.ID] = true
		if n.Kind == domain.KindStart {
			starts = append(starts, n.ID)
		}
	}
	if len(starts) > 1 {
		errs = append(errs, &domain.StructuralError{
			Kind:    "multiple_start",
			Msg:     fmt.Sprintf("%d start nodes found; exactly one is allowed", len(starts)),
			NodeIDs: starts,
		})
	}

	for i, e := range g.Edges {
		if e.Source == "" || e.Target == "" {
			errs = append(errs, &domain.SchemaError{Field: fmt.Sprintf("edges[%d]", i), Msg: "source and target are required"})
			continue
		}
		for _, end := range []string{e.Source, e.Target} {
			if !seen[end] {
				errs = append(errs, &domain.StructuralError{
					Kind:    "dangling_edge",
					Msg:     fmt.Sprintf("edge %s -> %s references unknown node", e.Source, e.Target),
					NodeIDs: []string{end},
				})
			}
		}
	}

	return errors.Join(errs...)
}

// EnsureStart prepends the canonical start node when the graph has none.
func EnsureStart(g domain.Graph) domain.Graph {
	if _, ok := g.Start(); ok {
		return g
	}
	out := g.Clone()
	out.Nodes = append([]domain.Node{domain.NewStartNode()}, out.Nodes...)
	return out
}

// Encode writes the graph in the given format.
func Encode(w io.Writer, g domain.Graph, f Format) error {
	if g.Nodes == nil {
		g.Nodes = []domain.Node{}
	}
	if g.Edges == nil {
		g.Edges = []domain.Edge{}
	}
	switch f {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(g); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(g)
	}
}

type rawSnapshot struct {
	Nodes []rawNode `json:"nodes" yaml:"nodes"`
	Edges []rawEdge `json:"edges" yaml:"edges"`
}

type rawNode struct {
	ID             string                 `json:"id" yaml:"id"`
	Kind           string                 `json:"kind" yaml:"kind"`
	Type           string                 `json:"type" yaml:"type"`
	Label          string                 `json:"label" yaml:"label"`
	ChecklistItems []domain.ChecklistItem `json:"checklistItems" yaml:"checklistItems"`
	Attachments    []domain.Attachment    `json:"attachments" yaml:"attachments"`
	Position       domain.Position        `json:"position" yaml:"position"`
	Data           *rawNodeData           `json:"data" yaml:"data"`

	// Canvas bookkeeping written by the editor; ignored.
	Width            *float64         `json:"width,omitempty" yaml:"width,omitempty"`
	Height           *float64         `json:"height,omitempty" yaml:"height,omitempty"`
	Selected         bool             `json:"selected,omitempty" yaml:"selected,omitempty"`
	Dragging         bool             `json:"dragging,omitempty" yaml:"dragging,omitempty"`
	Draggable        *bool            `json:"draggable,omitempty" yaml:"draggable,omitempty"`
	PositionAbsolute *domain.Position `json:"positionAbsolute,omitempty" yaml:"positionAbsolute,omitempty"`
}

type rawNodeData struct {
	Label          string                 `json:"label" yaml:"label"`
	Type           string                 `json:"type" yaml:"type"`
	Content        string                 `json:"content" yaml:"content"`
	ChecklistItems []domain.ChecklistItem `json:"checklistItems" yaml:"checklistItems"`
	Attachments    []domain.Attachment    `json:"attachments" yaml:"attachments"`
}

type rawEdge struct {
	ID           string  `json:"id" yaml:"id"`
	Source       string  `json:"source" yaml:"source"`
	Target       string  `json:"target" yaml:"target"`
	Type         string  `json:"type,omitempty" yaml:"type,omitempty"`
	SourceHandle *string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle *string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
	Animated     bool    `json:"animated,omitempty" yaml:"animated,omitempty"`
}

func (r rawSnapshot) toGraph() (domain.Graph, error) {
	g := domain.Graph{
		Nodes: make([]domain.Node, 0, len(r.Nodes)),
		Edges: make([]domain.Edge, 0, len(r.Edges)),
	}

	for i, rn := range r.Nodes {
		n := domain.Node{
			ID:             rn.ID,
			Label:          rn.Label,
			ChecklistItems: rn.ChecklistItems,
			Attachments:    rn.Attachments,
			Position:       rn.Position,
		}

		kind := rn.Kind
		if kind == "" {
			kind = rn.Type
		}
		if rn.Data != nil {
			if kind == "" {
				kind = rn.Data.Type
			}
			if n.Label == "" {
				n.Label = rn.Data.Label
			}
			if n.ChecklistItems == nil {
				n.ChecklistItems = rn.Data.ChecklistItems
			}
			if n.Attachments == nil {
				n.Attachments = rn.Data.Attachments
			}
		}

		k, err := domain.ParseKind(kind)
		if err != nil {
			return domain.Graph{}, &domain.SchemaError{Field: fmt.Sprintf("nodes[%d].kind", i), Msg: fmt.Sprintf("unknown kind %q", kind)}
		}
		n.Kind = k
		g.Nodes = append(g.Nodes, n)
	}

	for _, re := range r.Edges {
		id := re.ID
		if id == "" {
			id = domain.EdgeID(re.Source, re.Target)
		}
		g.Edges = append(g.Edges, domain.Edge{ID: id, Source: re.Source, Target: re.Target})
	}

	return g, nil
}
