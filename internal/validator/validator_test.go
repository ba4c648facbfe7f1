package validator

import (
	"testing"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func canvas(edges ...domain.Edge) domain.Graph {
	return domain.Graph{
		Nodes: []domain.Node{
			domain.NewStartNode(),
			{ID: "q1", Kind: domain.KindQuestion, Label: "Hi?"},
			{ID: "q2", Kind: domain.KindQuestion, Label: "More?"},
			{ID: "a1", Kind: domain.KindAnswer, Label: "Hello"},
			{ID: "a2", Kind: domain.KindAnswer, Label: "Hey"},
			{ID: "c1", Kind: domain.KindChecklist, Label: "List"},
			{ID: "c2", Kind: domain.KindChecklist, Label: "Other"},
		},
		Edges: edges,
	}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		edges  []domain.Edge
		source string
		target string
		want   Rule
	}{
		{"Missing source", nil, "ghost", "q1", RuleMissingEndpoint},
		{"Missing target", nil, "q1", "ghost", RuleMissingEndpoint},
		{"Start to answer", nil, "start", "a1", RuleStartLeaf},
		{"Checklist to start", nil, "c1", "start", RuleStartLeaf},
		{"Start to question", nil, "start", "q1", RuleAccepted},
		{"Question to answer", nil, "q1", "a1", RuleAccepted},
		{"Question to question", nil, "q1", "q2", RuleAccepted},
		{"Question to start", nil, "q1", "start", RuleStartTarget},
		{"Start to itself", nil, "start", "start", RuleStartTarget},
		{
			name:   "Question to start already wired",
			edges:  []domain.Edge{{Source: "start", Target: "q1"}},
			source: "q1", target: "start",
			want: RuleStartTarget,
		},
		{
			name:   "Attached answer to other question",
			edges:  []domain.Edge{{Source: "q1", Target: "a1"}},
			source: "q2", target: "a1",
			want: RuleLeafAlreadyAttached,
		},
		{
			name:   "Attached answer reversed direction",
			edges:  []domain.Edge{{Source: "q1", Target: "a1"}},
			source: "a1", target: "q2",
			want: RuleLeafAlreadyAttached,
		},
		{
			name:   "Answer to attached answer",
			edges:  []domain.Edge{{Source: "q1", Target: "a1"}},
			source: "a2", target: "a1",
			want: RuleTargetHasIncoming,
		},
		{
			name:   "Second answer",
			edges:  []domain.Edge{{Source: "q1", Target: "a1"}},
			source: "q1", target: "a2",
			want: RuleDuplicateAnswer,
		},
		{
			name:   "Second checklist",
			edges:  []domain.Edge{{Source: "q1", Target: "c1"}},
			source: "q1", target: "c2",
			want: RuleDuplicateChecklist,
		},
		{
			name:   "Answer and checklist on same question",
			edges:  []domain.Edge{{Source: "q1", Target: "a1"}},
			source: "q1", target: "c1",
			want: RuleAccepted,
		},
		{
			name:   "Free answer to question",
			source: "a1", target: "q1",
			want: RuleAccepted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Check(canvas(tt.edges...), tt.source, tt.target)
			assert.Equal(t, tt.want, v.Rule, v.Reason)
			assert.Equal(t, tt.want == RuleAccepted, v.Allowed)
			assert.Equal(t, v.Allowed, IsValidConnection(canvas(tt.edges...), tt.source, tt.target))
		})
	}
}

// An answer already attached to one question rejects a pairing with any
// other question, whichever direction the edge is drawn in.
func TestCheck_SymmetryForAttachedLeaf(t *testing.T) {
	g := canvas(domain.Edge{Source: "q1", Target: "a1"}, domain.Edge{Source: "q1", Target: "c1"})
	for _, leaf := range []string{"a1", "c1"} {
		assert.False(t, IsValidConnection(g, "q2", leaf))
		assert.False(t, IsValidConnection(g, leaf, "q2"))
	}
}

func TestRules_Order(t *testing.T) {
	rules := Rules()
	assert.Equal(t, RuleMissingEndpoint, rules[0].Rule)
	assert.Equal(t, RuleAccepted, rules[len(rules)-1].Rule)
}
