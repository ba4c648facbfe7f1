package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/dsl"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphArg(t *testing.T, g domain.Graph) string {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return string(data)
}

func sampleGraph(t *testing.T) domain.Graph {
	t.Helper()
	b := dsl.New()
	b.Question("q1", "Need help?").Answer("a1", "Sure.")
	b.Question("q2", "Anything else?")
	g, err := b.Build()
	require.NoError(t, err)
	return g
}

func TestHandleLint(t *testing.T) {
	s := NewServer()
	res, err := s.handleLint(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: graphArg(t, sampleGraph(t))})
	require.NoError(t, err)
	assert.True(t, res.CanExport)
	require.Len(t, res.Findings, 1)
	assert.Equal(t, "question_without_answer", res.Findings[0].Check)
	assert.Equal(t, []string{"q2"}, res.Findings[0].NodeIDs)

	_, err = s.handleLint(context.Background(), mcp.CallToolRequest{}, GraphArgs{})
	assert.Error(t, err)
}

func TestHandleLint_AcceptsYAML(t *testing.T) {
	s := NewServer()
	yamlGraph := `
nodes:
  - id: start
    kind: start
    label: Start
  - id: q1
    kind: question
    label: Hi?
edges:
  - source: start
    target: q1
`
	res, err := s.handleLint(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: yamlGraph})
	require.NoError(t, err)
	assert.True(t, res.CanExport)
}

func TestHandleCompile(t *testing.T) {
	s := NewServer()
	def, err := s.handleCompile(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: graphArg(t, sampleGraph(t))})
	require.NoError(t, err)
	require.Len(t, def.Questions, 2)
	require.NotNil(t, def.Questions[0].Answer)
	assert.Equal(t, "Sure.", *def.Questions[0].Answer)
}

func TestHandleExport(t *testing.T) {
	s := NewServer()

	res, err := s.handleExport(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: graphArg(t, sampleGraph(t))})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Fingerprint)
	assert.Len(t, res.Findings, 1)
	assert.Empty(t, res.Payloads)

	_, err = s.handleExport(context.Background(), mcp.CallToolRequest{}, GraphArgs{Graph: graphArg(t, domain.NewGraph())})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrExportBlocked)
	assert.Contains(t, err.Error(), "no_path_from_start")
}

func TestHandleValidateConnection(t *testing.T) {
	s := NewServer()
	g := graphArg(t, sampleGraph(t))

	tests := []struct {
		name    string
		source  string
		target  string
		allowed bool
		rule    string
	}{
		{name: "start to answer", source: "start", target: "a1", rule: "start_leaf"},
		{name: "question to question", source: "q1", target: "q2", allowed: true, rule: "accepted"},
		{name: "answer already attached", source: "q2", target: "a1", rule: "leaf_already_attached"},
		{name: "unknown node", source: "q1", target: "ghost", rule: "missing_endpoint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.handleValidateConnection(context.Background(), mcp.CallToolRequest{},
				ConnectionArgs{Graph: g, Source: tt.source, Target: tt.target})
			require.NoError(t, err)
			assert.Equal(t, tt.allowed, v.Allowed)
			assert.Equal(t, tt.rule, string(v.Rule))
		})
	}
}

func TestHandleRenderMermaid(t *testing.T) {
	s := NewServer()

	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"graph": graphArg(t, sampleGraph(t))}
	res, err := s.handleRenderMermaid(context.Background(), req)
	require.NoError(t, err)
	require.False(t, res.IsError)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.Contains(t, text.Text, "graph TD")
	assert.Contains(t, text.Text, "class q2 warning;")

	res, err = s.handleRenderMermaid(context.Background(), mcp.CallToolRequest{})
	require.NoError(t, err)
	assert.True(t, res.IsError)
}

func TestProtocol_ListsToolsAndResources(t *testing.T) {
	b := dsl.New()
	b.Question("q1", "Hi?").Answer("a1", "Hello")
	templates, err := b.BuildLoader("greeting")
	require.NoError(t, err)

	s := NewServer(WithTemplates(templates))
	ctx := context.Background()

	call := func(method string, params any) string {
		msg := map[string]any{"jsonrpc": "2.0", "id": 1, "method": method}
		if params != nil {
			msg["params"] = params
		}
		raw, err := json.Marshal(msg)
		require.NoError(t, err)
		out, err := json.Marshal(s.MCPServer().HandleMessage(ctx, raw))
		require.NoError(t, err)
		return string(out)
	}

	call("initialize", map[string]any{
		"protocolVersion": mcp.LATEST_PROTOCOL_VERSION,
		"clientInfo":      map[string]any{"name": "test", "version": "0"},
		"capabilities":    map[string]any{},
	})

	tools := call("tools/list", nil)
	for _, name := range []string{"lint_graph", "compile_graph", "export_graph", "validate_connection", "render_mermaid"} {
		assert.Contains(t, tools, `"name":"`+name+`"`)
	}

	rules := call("resources/read", map[string]any{"uri": rulesURI})
	assert.Contains(t, rules, "start_leaf")

	tmpl := call("resources/read", map[string]any{"uri": templatesURI})
	assert.Contains(t, tmpl, "greeting")

	lint := call("tools/call", map[string]any{
		"name":      "lint_graph",
		"arguments": map[string]any{"graph": graphArg(t, sampleGraph(t))},
	})
	assert.Contains(t, lint, "question_without_answer")
}
