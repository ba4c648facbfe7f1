package domain_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{
			domain.NewStartNode(),
			{ID: "q1", Kind: domain.KindQuestion, Label: "Hi?"},
			{ID: "q2", Kind: domain.KindQuestion, Label: "Next?"},
			{ID: "a1", Kind: domain.KindAnswer, Label: "Hello"},
			{ID: "c1", Kind: domain.KindChecklist, Label: "Todo", ChecklistItems: []domain.ChecklistItem{{Text: "a"}, {Text: " "}}},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "q2"},
			{Source: "start", Target: "q1"},
			{Source: "q1", Target: "a1"},
			{Source: "q1", Target: "c1"},
		},
	}
}

func TestGraph_Queries(t *testing.T) {
	g := sampleGraph()

	t.Run("Incomers", func(t *testing.T) {
		in := g.Incomers("a1")
		require.Len(t, in, 1)
		assert.Equal(t, "q1", in[0].ID)
		assert.Empty(t, g.Incomers("start"))
	})

	t.Run("Outgoers keep node order", func(t *testing.T) {
		out := g.Outgoers("start")
		require.Len(t, out, 2)
		assert.Equal(t, "q1", out[0].ID)
		assert.Equal(t, "q2", out[1].ID)
	})

	t.Run("OutgoingEdges keep edge order", func(t *testing.T) {
		edges := g.OutgoingEdges("start")
		require.Len(t, edges, 2)
		assert.Equal(t, "q2", edges[0].Target)
		assert.Equal(t, "q1", edges[1].Target)
	})

	t.Run("FindByKind", func(t *testing.T) {
		qs := g.FindByKind(domain.KindQuestion)
		require.Len(t, qs, 2)
		assert.Equal(t, "q1", qs[0].ID)
		assert.Empty(t, g.FindByKind(domain.Kind("bogus")))
	})

	t.Run("Start", func(t *testing.T) {
		s, ok := g.Start()
		require.True(t, ok)
		assert.Equal(t, domain.StartNodeID, s.ID)

		_, ok = domain.Graph{}.Start()
		assert.False(t, ok)
	})

	t.Run("HasEdges", func(t *testing.T) {
		assert.True(t, g.HasEdges("c1"))
		g2 := g.Clone()
		g2.Nodes = append(g2.Nodes, domain.Node{ID: "lonely", Kind: domain.KindAnswer})
		assert.False(t, g2.HasEdges("lonely"))
	})
}

func TestGraph_CloneIsDeep(t *testing.T) {
	g := sampleGraph()
	c := g.Clone()

	c.Nodes[4].ChecklistItems[0].Text = "changed"
	c.Edges[0].Target = "x"

	assert.Equal(t, "a", g.Nodes[4].ChecklistItems[0].Text)
	assert.Equal(t, "q2", g.Edges[0].Target)
}

func TestNode_Helpers(t *testing.T) {
	n := domain.Node{Kind: domain.KindChecklist, Label: "  ", ChecklistItems: []domain.ChecklistItem{{Text: "a"}, {Text: ""}, {Text: "\t"}}}
	assert.True(t, n.Blank())
	assert.Equal(t, 2, n.BlankItems())
	assert.Equal(t, []string{"a", "", "\t"}, n.ItemTexts())
}

func TestKind(t *testing.T) {
	for _, k := range domain.Kinds() {
		assert.True(t, k.IsValid())
		parsed, err := domain.ParseKind(" " + string(k) + " ")
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}

	_, err := domain.ParseKind("tool")
	assert.ErrorIs(t, err, domain.ErrInvalidKind)

	assert.True(t, domain.KindAnswer.IsLeaf())
	assert.True(t, domain.KindChecklist.IsLeaf())
	assert.False(t, domain.KindQuestion.IsLeaf())
	assert.False(t, domain.KindStart.IsLeaf())
}

func TestNewNodeID(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	assert.Equal(t, "question_1700000000123", domain.NewNodeID(domain.KindQuestion, ts))
	assert.Equal(t, "New checklist", domain.DefaultLabel(domain.KindChecklist))
	assert.Equal(t, "/start", domain.DefaultLabel(domain.KindStart))
}

func TestNode_EmptyChecklistSurvivesJSON(t *testing.T) {
	tests := []struct {
		name    string
		items   []domain.ChecklistItem
		wantKey bool
	}{
		{"Omitted", nil, false},
		{"Empty", []domain.ChecklistItem{}, true},
		{"Filled", []domain.ChecklistItem{{Text: "a"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := domain.Node{ID: "c1", Kind: domain.KindChecklist, Label: "Todo", ChecklistItems: tt.items}
			raw, err := json.Marshal(n)
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, strings.Contains(string(raw), `"checklistItems"`))

			var back domain.Node
			require.NoError(t, json.Unmarshal(raw, &back))
			assert.Equal(t, tt.items == nil, back.ChecklistItems == nil)
			assert.Equal(t, n, back)
		})
	}
}
