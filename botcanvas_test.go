package botcanvas_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/dsl"
	"github.com/aretw0/botcanvas/pkg/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const supportYAML = `
nodes:
  - id: start
    kind: start
    label: /start
  - id: q1
    kind: question
    label: Need help?
  - id: a1
    kind: answer
    label: Sure.
edges:
  - source: start
    target: q1
  - source: q1
    target: a1
`

func TestEngine_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "support.yaml")
	require.NoError(t, os.WriteFile(path, []byte(supportYAML), 0o644))

	eng := botcanvas.New()
	g, err := eng.Load(path)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 3)
	assert.Empty(t, eng.Lint(g))

	bare := filepath.Join(dir, "bare.json")
	require.NoError(t, os.WriteFile(bare, []byte(`{"nodes":[{"id":"q1","kind":"question","label":"Hi?"}],"edges":[]}`), 0o644))
	g, err = eng.Load(bare)
	require.NoError(t, err)
	start, ok := g.Start()
	require.True(t, ok, "start node is inserted on load")
	assert.Equal(t, domain.StartNodeID, start.ID)

	_, err = eng.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestEngine_Parse_RejectsUnknownFields(t *testing.T) {
	_, err := botcanvas.New().Parse([]byte(`{"nodes":[],"edges":[],"extra":1}`), compiler.FormatJSON)
	assert.ErrorIs(t, err, domain.ErrSchema)
}

func TestEngine_CheckConnection(t *testing.T) {
	b := dsl.New()
	b.Question("q1", "Hi?").Answer("a1", "Hello")
	b.Orphan(domain.KindAnswer, "a2", "Bye")
	g, err := b.Build()
	require.NoError(t, err)

	eng := botcanvas.New()
	assert.Equal(t, "duplicate_answer", string(eng.CheckConnection(g, "q1", "a2").Rule))
	assert.True(t, eng.CheckConnection(g, "start", "q1").Allowed, "duplicate edges are not rejected by the rules")
}

func TestEngine_Metrics(t *testing.T) {
	m := observability.NewMetrics()
	eng := botcanvas.New(botcanvas.WithMetrics(m))

	b := dsl.New()
	b.Question("q1", "Hi?")
	g, err := b.Build()
	require.NoError(t, err)

	assert.Len(t, eng.Lint(g), 1)
	_, err = eng.Compile(g)
	require.NoError(t, err)
	_, err = eng.Export(g)
	require.NoError(t, err)
	_, err = eng.Export(domain.NewGraph())
	assert.ErrorIs(t, err, domain.ErrExportBlocked)

	ed, err := eng.Edit(&g)
	require.NoError(t, err)
	ed.Connect(context.Background(), "start", "ghost")

	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "botcanvas_compile_duration_seconds"))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Registry(), "botcanvas_exports_total"))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Registry(), "botcanvas_connections_total"))
}

func TestEngine_Template(t *testing.T) {
	_, err := botcanvas.New().Template(context.Background(), "greeting")
	assert.ErrorIs(t, err, domain.ErrTemplateNotFound)

	b := dsl.New()
	b.Question("q1", "Hi?").Answer("a1", "Hello")
	loader, err := b.BuildLoader("greeting")
	require.NoError(t, err)

	eng := botcanvas.New(botcanvas.WithTemplates(loader))
	tmpl, err := eng.Template(context.Background(), "greeting")
	require.NoError(t, err)
	assert.Len(t, tmpl.Graph.Nodes, 3)
	assert.NotNil(t, eng.Templates())
}

func TestVersion(t *testing.T) {
	assert.NotEmpty(t, botcanvas.Version)
}
