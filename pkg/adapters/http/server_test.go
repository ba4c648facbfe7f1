package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/botcanvas/pkg/adapters/memory"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/dsl"
	"github.com/aretw0/botcanvas/pkg/observability"
	"github.com/aretw0/botcanvas/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	handler  http.Handler
	sessions *session.Manager
	streams  *StreamManager
	metrics  *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tmpl, err := greeting().BuildTemplate("greeting", "Say hi")
	require.NoError(t, err)
	loader, err := memory.NewLoader(tmpl)
	require.NoError(t, err)

	streams := NewStreamManager(nil)
	metrics := observability.NewMetrics()
	mgr := session.NewManager(memory.NewStore(),
		session.WithDiffListener(streams.Publish),
		session.WithHooks(metrics.Hooks()),
	)

	handler, err := NewHandler(
		WithSessions(mgr),
		WithStreams(streams),
		WithTemplates(loader),
		WithMetrics(metrics),
	)
	require.NoError(t, err)
	return &fixture{handler: handler, sessions: mgr, streams: streams, metrics: metrics}
}

func greeting() *dsl.Builder {
	b := dsl.New()
	b.Question("q1", "Hi! Need help?").Answer("a1", "Tell me more.")
	return b
}

func graphJSON(t *testing.T, g domain.Graph) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(g)
	require.NoError(t, err)
	return data
}

func (f *fixture) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestMeta(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = f.do(t, "GET", "/info", nil)
	info := decodeBody[map[string]string](t, w)
	assert.Equal(t, "botcanvas-http", info["app"])
	assert.Equal(t, "1.0.0", info["api_version"])

	w = f.do(t, "GET", "/openapi.yaml", nil)
	assert.Contains(t, w.Body.String(), "openapi: 3.0.3")

	w = f.do(t, "OPTIONS", "/lint", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestLoadSpec(t *testing.T) {
	doc, err := LoadSpec(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, doc.Paths.Find("/documents/{id}/commands"))
}

func TestLintGraph(t *testing.T) {
	f := newFixture(t)

	b := dsl.New()
	b.Question("q1", "Hi?")
	g, err := b.Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/lint", map[string]any{"graph": graphJSON(t, g)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	resp := decodeBody[lintResponse](t, w)
	assert.True(t, resp.CanExport)
	require.Len(t, resp.Findings, 1)
	assert.Equal(t, "question_without_answer", resp.Findings[0].Check)
}

func TestLintGraph_RejectsBadRequests(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "missing graph", body: map[string]any{}},
		{name: "graph not an object", body: map[string]any{"graph": "nope"}},
		{name: "unknown kind", body: map[string]any{"graph": map[string]any{
			"nodes": []any{map[string]any{"id": "x", "kind": "sticker"}},
		}}},
		{name: "dangling edge", body: map[string]any{"graph": map[string]any{
			"nodes": []any{map[string]any{"id": "start", "kind": "start"}},
			"edges": []any{map[string]any{"source": "start", "target": "ghost"}},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, "POST", "/lint", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.NotEmpty(t, decodeBody[errorResponse](t, w).Error)
		})
	}
}

func TestCompileGraph(t *testing.T) {
	f := newFixture(t)

	g, err := greeting().Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/compile", map[string]any{"graph": graphJSON(t, g)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	def := decodeBody[domain.ConversationDefinition](t, w)
	require.Len(t, def.Questions, 1)
	assert.Equal(t, "q1", def.Questions[0].ID)

	cyclic := dsl.New()
	cyclic.Question("q1", "one").Answer("a1", "x")
	cyclic.Question("q2", "two").From("q1")
	cyclic.Edge("q2", "q1")
	cg, err := cyclic.Build()
	require.NoError(t, err)

	w = f.do(t, "POST", "/compile", map[string]any{"graph": graphJSON(t, cg)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestExportGraph(t *testing.T) {
	f := newFixture(t)

	b := greeting()
	b.Question("q2", "See the manual").Attach("manual.txt", []byte("read me")).Answer("a2", "ok")
	g, err := b.Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/export", map[string]any{"graph": graphJSON(t, g)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeBody[exportResponse](t, w)
	assert.Len(t, resp.Definition.Questions, 2)
	assert.NotEmpty(t, resp.Fingerprint)
	require.Len(t, resp.Payloads, 1)
	assert.True(t, strings.HasSuffix(resp.Payloads[0], ".txt"))

	t.Run("blocked", func(t *testing.T) {
		w := f.do(t, "POST", "/export", map[string]any{"graph": graphJSON(t, domain.NewGraph())})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeBody[errorResponse](t, w)
		checks := make([]string, 0, len(resp.Findings))
		for _, f := range resp.Findings {
			checks = append(checks, f.Check)
		}
		assert.Contains(t, checks, "no_path_from_start")
	})

	metrics := f.do(t, "GET", "/metrics", nil)
	assert.Contains(t, metrics.Body.String(), `botcanvas_exports_total{result="blocked"} 1`)
	assert.Contains(t, metrics.Body.String(), `botcanvas_exports_total{result="ok"} 1`)
}

func TestCheckConnection(t *testing.T) {
	f := newFixture(t)

	g, err := greeting().Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/connections/check", map[string]any{
		"graph": graphJSON(t, g), "source": "start", "target": "a1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	verdict := decodeBody[map[string]any](t, w)
	assert.Equal(t, false, verdict["allowed"])
	assert.Equal(t, "start_leaf", verdict["rule"])

	w = f.do(t, "POST", "/connections/check", map[string]any{"graph": graphJSON(t, g), "source": "start"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, "GET", "/connections/rules", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "start_leaf")
}

func TestRenderMermaid(t *testing.T) {
	f := newFixture(t)

	b := dsl.New()
	b.Question("q1", "Hi?")
	g, err := b.Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/graph/mermaid", map[string]any{"graph": graphJSON(t, g)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "graph TD"))
	assert.Contains(t, w.Body.String(), "class q1 warning;")
}

func TestTemplates(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "GET", "/templates", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[[]domain.Template](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "greeting", list[0].Name)

	w = f.do(t, "GET", "/templates/greeting", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, "GET", "/templates/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, "GET", "/templates/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "memory loader cannot be watched")
}

func TestDocuments_Lifecycle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, "POST", "/documents", map[string]any{"name": "Support"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decodeBody[domain.Document](t, w)
	assert.Equal(t, "Support", doc.Name)
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))

	w = f.do(t, "GET", "/documents", nil)
	assert.Contains(t, w.Body.String(), doc.ID)

	w = f.do(t, "GET", "/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	cmds := map[string]any{"commands": []any{
		map[string]any{"type": "add_node", "payload": map[string]any{"id": "q1", "kind": "question", "label": "Hi?"}},
		map[string]any{"type": "connect", "payload": map[string]any{"source": "start", "target": "q1"}},
	}}

	t.Run("missing If-Match", func(t *testing.T) {
		w := f.do(t, "POST", "/documents/"+doc.ID+"/commands", cmds)
		assert.Equal(t, http.StatusPreconditionRequired, w.Code)
	})

	w = f.do(t, "POST", "/documents/"+doc.ID+"/commands", cmds, "If-Match", `"1"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edit := decodeBody[editResponse](t, w)
	assert.Equal(t, int64(2), edit.Document.Version)
	require.NotNil(t, edit.Diff)
	assert.Len(t, edit.Diff.AddedNodes, 1)
	assert.Equal(t, `"2"`, w.Header().Get("ETag"))

	t.Run("stale version", func(t *testing.T) {
		w := f.do(t, "POST", "/documents/"+doc.ID+"/commands", cmds, "If-Match", `"1"`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("rejected connection rolls back", func(t *testing.T) {
		bad := map[string]any{"commands": []any{
			map[string]any{"type": "add_node", "payload": map[string]any{"id": "a9", "kind": "answer"}},
			map[string]any{"type": "connect", "payload": map[string]any{"source": "start", "target": "a9"}},
		}}
		w := f.do(t, "POST", "/documents/"+doc.ID+"/commands", bad, "If-Match", `"2"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "start_leaf")

		current, err := f.sessions.Get(context.Background(), doc.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), current.Version)
	})

	t.Run("unknown command", func(t *testing.T) {
		w := f.do(t, "POST", "/documents/"+doc.ID+"/commands",
			map[string]any{"commands": []any{map[string]any{"type": "explode"}}}, "If-Match", `"2"`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	w = f.do(t, "GET", "/documents/"+doc.ID+"/lint", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "question_without_answer")

	w = f.do(t, "POST", "/documents/"+doc.ID+"/import", map[string]any{"template": "greeting"}, "If-Match", `"2"`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	edit = decodeBody[editResponse](t, w)
	assert.Equal(t, int64(3), edit.Document.Version)
	assert.Len(t, edit.Document.Graph.Nodes, 4)

	w = f.do(t, "GET", "/documents/"+doc.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, "warnings alone do not block the export")
	exported := decodeBody[exportResponse](t, w)
	assert.Len(t, exported.Definition.Questions, 2)
	assert.NotEmpty(t, exported.Findings)

	w = f.do(t, "DELETE", "/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(t, "GET", "/documents/"+doc.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocuments_CreateFromGraph(t *testing.T) {
	f := newFixture(t)

	g, err := greeting().Build()
	require.NoError(t, err)

	w := f.do(t, "POST", "/documents", map[string]any{"graph": graphJSON(t, g)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decodeBody[domain.Document](t, w)
	assert.Equal(t, "Untitled", doc.Name)

	w = f.do(t, "GET", "/documents/"+doc.ID+"/export", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decodeBody[exportResponse](t, w).Fingerprint)
}

func TestDocuments_Disabled(t *testing.T) {
	handler, err := NewHandler()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/documents", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscribeDocumentEvents(t *testing.T) {
	f := newFixture(t)
	srv := httptest.NewServer(f.handler)
	defer srv.Close()

	doc, err := f.sessions.Create(context.Background(), "live", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/documents/"+doc.ID+"/events?watch=nodes", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	lines := make(chan string, 32)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	require.Equal(t, "event: ping", waitLine(t, lines, "event:"))
	require.Eventually(t, func() bool { return f.streams.Subscribers(doc.ID) == 1 }, time.Second, 10*time.Millisecond)

	_, _, err = f.sessions.Apply(context.Background(), doc.ID, 1, domain.AddNode{ID: "q1", Kind: domain.KindQuestion, Label: "Hi?"})
	require.NoError(t, err)

	assert.Equal(t, "event: diff", waitLine(t, lines, "event:"))
	data := waitLine(t, lines, "data:")
	assert.Contains(t, data, `"document_id":"`+doc.ID+`"`)
	assert.Contains(t, data, `"version":2`)

	cancel()
	assert.Eventually(t, func() bool { return f.streams.Subscribers(doc.ID) == 0 }, time.Second, 10*time.Millisecond)
}

func TestSubscribeDocumentEvents_NotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, "GET", "/documents/missing/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatchesWatch(t *testing.T) {
	nodes := []byte(`{"document_id":"d","version":2,"added_nodes":[{"id":"q"}]}`)
	edges := []byte(`{"document_id":"d","version":2,"added_edges":[{"id":"e"}]}`)

	assert.True(t, matchesWatch(nodes, []string{"nodes"}))
	assert.False(t, matchesWatch(nodes, []string{"edges"}))
	assert.True(t, matchesWatch(edges, []string{" nodes", "edges "}))
	assert.True(t, matchesWatch([]byte("not json"), []string{"nodes"}))
}

func waitLine(t *testing.T, lines <-chan string, prefix string) string {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed while waiting for %q", prefix)
			}
			if strings.HasPrefix(line, prefix) {
				return line
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", prefix)
		}
	}
}
