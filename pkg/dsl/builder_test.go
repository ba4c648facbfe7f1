package dsl

import (
	"context"
	"testing"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_SimpleFlow(t *testing.T) {
	b := New()

	greet := b.Question("q1", "Hi! Need help?").
		Answer("a1", "Tell me more.")
	greet.Ask("q2", "Ready?").
		Checklist("c1", "Before you begin", "Open the app", "")
	b.Question("q3", "Anything else?").Answer("a3", "Bye")

	g, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"start", "q1", "a1", "q2", "c1", "q3", "a3"}, nodeIDs(g))
	assert.Empty(t, lint.Lint(g).Errors())

	def, err := compiler.Definition(g)
	require.NoError(t, err)
	require.Len(t, def.Questions, 2)
	assert.Equal(t, "q1", def.Questions[0].ID)
	assert.Equal(t, "q3", def.Questions[1].ID)
	require.Len(t, def.Questions[0].Children, 1)
	assert.Equal(t, []string{"Open the app", ""}, def.Questions[0].Children[0].Checklist.Items)
}

func TestBuilder_From(t *testing.T) {
	b := New()
	b.Question("q1", "Parent").Answer("a1", "ok")
	b.Question("q2", "Child").From("q1")

	g, err := b.Build()
	require.NoError(t, err)
	assert.False(t, g.HasEdge("start", "q2"))
	assert.True(t, g.HasEdge("q1", "q2"))
}

func TestBuilder_Attach(t *testing.T) {
	b := New()
	b.Question("q1", "See file").Attach("doc.txt", []byte("hello"))

	g, err := b.Build()
	require.NoError(t, err)
	q, _ := g.Node("q1")
	require.Len(t, q.Attachments, 1)
	assert.Equal(t, "doc.txt", q.Attachments[0].Name)

	bad := New()
	bad.Question("q1", "Empty name").Attach("", []byte("x"))
	_, err = bad.Build()
	assert.Error(t, err)
}

func TestBuilder_Errors(t *testing.T) {
	b := New()
	b.Question("q1", "one")
	b.Question("q1", "again")
	b.Edge("q1", "ghost")

	_, err := b.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDuplicateNodeID)
	assert.ErrorIs(t, err, domain.ErrStructural)
}

func TestBuilder_BrokenGraphsForLint(t *testing.T) {
	b := New()
	b.Orphan(domain.KindAnswer, "loose", "")
	b.Edge("start", "loose")

	g, err := b.Build()
	require.NoError(t, err)
	assert.True(t, lint.Lint(g).HasErrors())
}

func TestBuilder_BuildLoader(t *testing.T) {
	b := New()
	b.Question("q1", "Hi?").Answer("a1", "Hello")

	loader, err := b.BuildLoader("greeting")
	require.NoError(t, err)

	tmpl, err := loader.Template(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Len(t, tmpl.Graph.Nodes, 3)
}

func nodeIDs(g domain.Graph) []string {
	out := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		out[i] = n.ID
	}
	return out
}
