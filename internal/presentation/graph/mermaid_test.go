package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/botcanvas/internal/presentation/graph"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    domain.Graph
		contains []string
	}{
		{
			name:     "Start Node Shape",
			graph:    domain.Graph{Nodes: []domain.Node{domain.NewStartNode()}},
			contains: []string{`start(("/start"))`},
		},
		{
			name: "Kind Shapes",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "q1", Kind: domain.KindQuestion, Label: "Hi?"},
				{ID: "a1", Kind: domain.KindAnswer, Label: "Hello"},
				{ID: "c1", Kind: domain.KindChecklist, Label: "Steps", ChecklistItems: []domain.ChecklistItem{{Text: "x"}, {Text: "y"}}},
			}},
			contains: []string{
				`q1[/"Hi?"/]`,
				`a1["Hello"]`,
				`c1[["Steps <br/> ☑ 2"]]`,
			},
		},
		{
			name: "ID Sanitization",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "path/to/file.md", Kind: domain.KindAnswer, Label: "a"},
				{ID: "hyphen-ated", Kind: domain.KindAnswer, Label: "b"},
			}},
			contains: []string{
				`path_to_file_md["a"]`,
				`hyphen_ated["b"]`,
			},
		},
		{
			name: "Label Escaping",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "a", Kind: domain.KindAnswer, Label: `Say "yes"`},
				{ID: "b", Kind: domain.KindAnswer, Label: "  "},
			}},
			contains: []string{
				`a["Say #quot;yes#quot;"]`,
				`b["(empty)"]`,
			},
		},
		{
			name: "Edges",
			graph: domain.Graph{
				Nodes: []domain.Node{domain.NewStartNode(), {ID: "q-1", Kind: domain.KindQuestion, Label: "Q"}},
				Edges: []domain.Edge{{ID: "e", Source: "start", Target: "q-1"}},
			},
			contains: []string{"start --> q_1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "classDef")
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := domain.Graph{Nodes: []domain.Node{
		domain.NewStartNode(),
		{ID: "q1", Kind: domain.KindQuestion, Label: "Q"},
		{ID: "a1", Kind: domain.KindAnswer, Label: ""},
	}}
	overlay := &graph.Overlay{Findings: domain.Findings{
		{Check: "unanswered_question", Severity: domain.SeverityWarning, NodeIDs: []string{"q1"}},
		{Check: "orphan_answer", Severity: domain.SeverityError, NodeIDs: []string{"a1", "ghost"}},
		{Check: "other", Severity: domain.SeverityWarning, NodeIDs: []string{"a1"}},
	}}

	got := graph.GenerateMermaid(g, overlay)
	assert.Contains(t, got, "classDef error")
	assert.Contains(t, got, "class q1 warning;")
	assert.Contains(t, got, "class a1 error;")
	assert.NotContains(t, got, "ghost")
}
