package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/internal/presentation/graph"
	"github.com/aretw0/botcanvas/internal/validator"
	"github.com/aretw0/botcanvas/pkg/attachment"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/editor"
	"github.com/aretw0/botcanvas/pkg/observability"
	"github.com/aretw0/botcanvas/pkg/ports"
	"github.com/aretw0/botcanvas/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server serves the stateless graph tools and, when a session manager is
// configured, the hosted documents.
type Server struct {
	Sessions  *session.Manager
	Streams   *StreamManager
	Templates ports.TemplateLoader
	Metrics   *observability.Metrics

	logger   *slog.Logger
	spec     *openapi3.T
	validate *requestValidate
}

// Option configures the Server.
type Option func(*Server)

// WithSessions enables the /documents routes.
func WithSessions(mgr *session.Manager) Option {
	return func(s *Server) {
		s.Sessions = mgr
	}
}

// WithStreams sets the stream manager fed by the session manager. Register
// StreamManager.Publish as the manager's diff listener so subscribers see edits.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithTemplates enables the /templates routes and template import by name.
func WithTemplates(loader ports.TemplateLoader) Option {
	return func(s *Server) {
		s.Templates = loader
	}
}

// WithMetrics records tool usage and mounts /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.Metrics = m
	}
}

// WithLogger configures the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler. It fails when the embedded OpenAPI
// document does not load.
func NewHandler(opts ...Option) (http.Handler, error) {
	s := &Server{
		logger:   logging.NewNop(),
		validate: newRequestValidate(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	spec, err := LoadSpec(context.Background())
	if err != nil {
		return nil, err
	}
	s.spec = spec
	rv, err := newRequestValidator(spec)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(Spec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	if s.Metrics != nil {
		r.Handle("/metrics", s.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		r.Use(rv.middleware)

		r.Get("/health", s.GetHealth)
		r.Get("/info", s.GetInfo)

		r.Post("/lint", s.LintGraph)
		r.Post("/compile", s.CompileGraph)
		r.Post("/export", s.ExportGraph)
		r.Post("/connections/check", s.CheckConnection)
		r.Get("/connections/rules", s.ListRules)
		r.Post("/graph/mermaid", s.RenderMermaid)

		r.Get("/templates", s.ListTemplates)
		r.Get("/templates/events", s.SubscribeTemplateEvents)
		r.Get("/templates/{name}", s.GetTemplate)

		r.Route("/documents", func(r chi.Router) {
			r.Use(s.requireSessions)
			r.Get("/", s.ListDocuments)
			r.Post("/", s.CreateDocument)
			r.Get("/{id}", s.GetDocument)
			r.Delete("/{id}", s.DeleteDocument)
			r.Post("/{id}/commands", s.ApplyCommands)
			r.Post("/{id}/import", s.ImportTemplate)
			r.Get("/{id}/lint", s.LintDocument)
			r.Get("/{id}/export", s.ExportDocument)
			r.Get("/{id}/events", s.SubscribeDocumentEvents)
		})
	})

	return enableCORS(r), nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, If-Match")
		w.Header().Set("Access-Control-Expose-Headers", "ETag")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireSessions(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Sessions == nil {
			writeError(w, http.StatusNotFound, "document hosting is not enabled", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>botcanvas API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`

// -- Wire types --

type graphRequest struct {
	Graph json.RawMessage `json:"graph" validate:"required"`
}

type connectionRequest struct {
	Graph  json.RawMessage `json:"graph" validate:"required"`
	Source string          `json:"source" validate:"required"`
	Target string          `json:"target" validate:"required"`
}

type createDocumentRequest struct {
	Name  string          `json:"name" validate:"max=200"`
	Graph json.RawMessage `json:"graph"`
}

type commandsRequest struct {
	Commands []domain.CommandEnvelope `json:"commands" validate:"required,min=1"`
}

type importRequest struct {
	Template string          `json:"template" validate:"required_without=Graph"`
	Graph    json.RawMessage `json:"graph"`
}

type lintResponse struct {
	Findings  domain.Findings `json:"findings"`
	CanExport bool            `json:"canExport"`
}

type exportResponse struct {
	Definition  *domain.ConversationDefinition `json:"definition"`
	Findings    domain.Findings                `json:"findings"`
	Fingerprint string                         `json:"fingerprint"`
	Payloads    []string                       `json:"payloads"`
}

type editResponse struct {
	Document *domain.Document  `json:"document"`
	Diff     *domain.GraphDiff `json:"diff"`
}

type errorResponse struct {
	Error    string          `json:"error"`
	Findings domain.Findings `json:"findings,omitempty"`
}

// -- Meta --

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"app":         "botcanvas-http",
		"version":     strings.TrimSpace(botcanvas.Version),
		"api_version": apiVersion,
	})
}

// -- Stateless tools --

// LintGraph handles the POST /lint request.
func (s *Server) LintGraph(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	g, ok := s.decodeGraph(w, r, &body, func() json.RawMessage { return body.Graph })
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.lintResponse(g))
}

// CompileGraph handles the POST /compile request.
func (s *Server) CompileGraph(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	g, ok := s.decodeGraph(w, r, &body, func() json.RawMessage { return body.Graph })
	if !ok {
		return
	}

	started := time.Now()
	def, err := compiler.Definition(g)
	if s.Metrics != nil {
		s.Metrics.ObserveCompile(time.Since(started))
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, def)
}

// ExportGraph handles the POST /export request.
func (s *Server) ExportGraph(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	g, ok := s.decodeGraph(w, r, &body, func() json.RawMessage { return body.Graph })
	if !ok {
		return
	}
	bundle, err := editor.Export(g)
	s.respondExport(w, bundle, err)
}

// CheckConnection handles the POST /connections/check request.
func (s *Server) CheckConnection(w http.ResponseWriter, r *http.Request) {
	var body connectionRequest
	g, ok := s.decodeGraph(w, r, &body, func() json.RawMessage { return body.Graph })
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, validator.Check(g, body.Source, body.Target))
}

// ListRules handles the GET /connections/rules request.
func (s *Server) ListRules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, validator.Rules())
}

// RenderMermaid handles the POST /graph/mermaid request.
func (s *Server) RenderMermaid(w http.ResponseWriter, r *http.Request) {
	var body graphRequest
	g, ok := s.decodeGraph(w, r, &body, func() json.RawMessage { return body.Graph })
	if !ok {
		return
	}
	out := graph.GenerateMermaid(g, &graph.Overlay{Findings: lint.Lint(g)})
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(out))
}

// -- Templates --

// ListTemplates handles the GET /templates request.
func (s *Server) ListTemplates(w http.ResponseWriter, r *http.Request) {
	if s.Templates == nil {
		writeError(w, http.StatusNotFound, "template library is not configured", nil)
		return
	}
	templates, err := s.Templates.Templates(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if templates == nil {
		templates = []domain.Template{}
	}
	writeJSON(w, http.StatusOK, templates)
}

// GetTemplate handles the GET /templates/{name} request.
func (s *Server) GetTemplate(w http.ResponseWriter, r *http.Request) {
	if s.Templates == nil {
		writeError(w, http.StatusNotFound, "template library is not configured", nil)
		return
	}
	tmpl, err := s.Templates.Template(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tmpl)
}

// -- Documents --

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"ids": ids})
}

// CreateDocument handles the POST /documents request.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var body createDocumentRequest
	if !s.decode(w, r, &body) {
		return
	}

	var g *domain.Graph
	if len(body.Graph) > 0 {
		parsed, err := compiler.NewParser().Parse(body.Graph)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		g = &parsed
	}

	doc, err := s.Sessions.Create(r.Context(), body.Name, g)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.logger.Info("document created", "document_id", doc.ID)
	setETag(w, doc)
	writeJSON(w, http.StatusCreated, doc)
}

// GetDocument handles the GET /documents/{id} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles the DELETE /documents/{id} request.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyCommands handles the POST /documents/{id}/commands request.
func (s *Server) ApplyCommands(w http.ResponseWriter, r *http.Request) {
	version, ok := expectedVersion(w, r)
	if !ok {
		return
	}
	var body commandsRequest
	if !s.decode(w, r, &body) {
		return
	}

	cmds := make([]domain.Command, 0, len(body.Commands))
	for i, env := range body.Commands {
		cmd, err := domain.DecodeCommand(env)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("commands[%d]: %v", i, err), nil)
			return
		}
		cmds = append(cmds, cmd)
	}

	doc, diff, err := s.Sessions.Apply(r.Context(), chi.URLParam(r, "id"), version, cmds...)
	s.respondEdit(w, doc, diff, err)
}

// ImportTemplate handles the POST /documents/{id}/import request.
func (s *Server) ImportTemplate(w http.ResponseWriter, r *http.Request) {
	version, ok := expectedVersion(w, r)
	if !ok {
		return
	}
	var body importRequest
	if !s.decode(w, r, &body) {
		return
	}

	var tmpl domain.Graph
	if len(body.Graph) > 0 {
		parsed, err := compiler.NewParser().Parse(body.Graph)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		tmpl = parsed
	} else {
		if s.Templates == nil {
			writeError(w, http.StatusNotFound, "template library is not configured", nil)
			return
		}
		t, err := s.Templates.Template(r.Context(), body.Template)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		tmpl = t.Graph
	}

	doc, diff, err := s.Sessions.Import(r.Context(), chi.URLParam(r, "id"), version, tmpl)
	s.respondEdit(w, doc, diff, err)
}

// LintDocument handles the GET /documents/{id}/lint request.
func (s *Server) LintDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusOK, s.lintResponse(doc.Graph))
}

// ExportDocument handles the GET /documents/{id}/export request.
func (s *Server) ExportDocument(w http.ResponseWriter, r *http.Request) {
	bundle, err := s.Sessions.Export(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrDocumentNotFound) {
		s.writeDomainError(w, err)
		return
	}
	s.respondExport(w, bundle, err)
}

// -- Helpers --

func (s *Server) lintResponse(g domain.Graph) lintResponse {
	findings := lint.Lint(g)
	if s.Metrics != nil {
		s.Metrics.ObserveFindings(findings)
	}
	if findings == nil {
		findings = domain.Findings{}
	}
	return lintResponse{Findings: findings, CanExport: !findings.HasErrors()}
}

func (s *Server) respondExport(w http.ResponseWriter, bundle *editor.Bundle, err error) {
	if s.Metrics != nil {
		s.Metrics.ObserveExport(err)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	names := make([]string, 0, len(bundle.Payloads))
	for name := range bundle.Payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	findings := bundle.Findings
	if findings == nil {
		findings = domain.Findings{}
	}
	writeJSON(w, http.StatusOK, exportResponse{
		Definition:  bundle.Definition,
		Findings:    findings,
		Fingerprint: bundle.Fingerprint,
		Payloads:    names,
	})
}

func (s *Server) respondEdit(w http.ResponseWriter, doc *domain.Document, diff *domain.GraphDiff, err error) {
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	setETag(w, doc)
	writeJSON(w, http.StatusOK, editResponse{Document: doc, Diff: diff})
}

// decode reads a JSON body into dst and runs struct validation.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		s.logger.Warn("invalid request body", "path", r.URL.Path, "error", err)
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return false
	}
	return true
}

// decodeGraph decodes a request carrying a graph and parses the graph
// with the snapshot parser. The raw func reads the graph field after decoding.
func (s *Server) decodeGraph(w http.ResponseWriter, r *http.Request, dst any, raw func() json.RawMessage) (domain.Graph, bool) {
	if !s.decode(w, r, dst) {
		return domain.Graph{}, false
	}
	g, err := compiler.NewParser().Parse(raw())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return domain.Graph{}, false
	}
	return g, true
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
	}

	var blocked *domain.ExportBlockedError
	if errors.As(err, &blocked) {
		writeError(w, status, err.Error(), blocked.Findings)
		return
	}
	writeError(w, status, err.Error(), nil)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrTemplateNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrExportBlocked),
		errors.Is(err, domain.ErrStructural):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSchema),
		errors.Is(err, domain.ErrInvalidCommand),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, domain.ErrDuplicateNodeID),
		errors.Is(err, domain.ErrNodeNotFound),
		errors.Is(err, domain.ErrStartImmutable),
		errors.Is(err, editor.ErrConnectionRejected),
		errors.Is(err, editor.ErrAttachmentNotFound),
		errors.Is(err, attachment.ErrTooLarge),
		errors.Is(err, attachment.ErrInvalidData),
		errors.Is(err, attachment.ErrEmptyName):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// expectedVersion reads the If-Match header. Edits without it are refused
// so that concurrent editors cannot silently overwrite each other.
func expectedVersion(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(r.Header.Get("If-Match"))
	if raw == "" {
		writeError(w, http.StatusPreconditionRequired, "If-Match header with the document version is required", nil)
		return 0, false
	}
	raw = strings.Trim(strings.TrimPrefix(raw, "W/"), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 1 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid If-Match version %q", raw), nil)
		return 0, false
	}
	return v, true
}

func setETag(w http.ResponseWriter, doc *domain.Document) {
	w.Header().Set("ETag", fmt.Sprintf(`"%d"`, doc.Version))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string, findings domain.Findings) {
	writeJSON(w, status, errorResponse{Error: msg, Findings: findings})
}
