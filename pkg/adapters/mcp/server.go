package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/aretw0/botcanvas"
	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/internal/presentation/graph"
	"github.com/aretw0/botcanvas/internal/validator"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/editor"
	"github.com/aretw0/botcanvas/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const (
	rulesURI     = "botcanvas://rules"
	templatesURI = "botcanvas://templates"
)

// LintResult aligns with the HTTP lint response.
type LintResult struct {
	Findings  domain.Findings `json:"findings" jsonschema_description:"Problems found in the graph, errors first"`
	CanExport bool            `json:"canExport" jsonschema_description:"False when any finding is an error"`
}

// ExportResult aligns with the HTTP export response.
type ExportResult struct {
	Definition  *domain.ConversationDefinition `json:"definition" jsonschema_description:"The compiled conversation tree"`
	Findings    domain.Findings                `json:"findings" jsonschema_description:"Warnings that did not block the export"`
	Fingerprint string                         `json:"fingerprint" jsonschema_description:"Content hash of the exported graph"`
	Payloads    []string                       `json:"payloads" jsonschema_description:"File names of the attachment payloads"`
}

// GraphArgs carries a graph snapshot encoded as JSON or YAML.
type GraphArgs struct {
	Graph string `json:"graph"`
}

// ConnectionArgs carries a graph and a proposed edge.
type ConnectionArgs struct {
	Graph  string `json:"graph"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Server exposes the graph tools over the Model Context Protocol.
type Server struct {
	templates ports.TemplateLoader
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithTemplates exposes the template library as a resource.
func WithTemplates(loader ports.TemplateLoader) Option {
	return func(s *Server) {
		s.templates = loader
	}
}

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(opts ...Option) *Server {
	s := &Server{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.mcpServer = server.NewMCPServer("botcanvas-mcp", strings.TrimSpace(botcanvas.Version),
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the SSE transport on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	baseURL := "http://" + addr
	if strings.HasPrefix(addr, ":") {
		baseURL = "http://localhost" + addr
	}
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	graphParam := mcp.WithString("graph", mcp.Required(),
		mcp.Description("Graph snapshot as JSON or YAML: {nodes: [...], edges: [...]}"))

	s.mcpServer.AddTool(mcp.NewTool("lint_graph",
		mcp.WithDescription("Lint a dialogue graph. Error findings block the export; warnings do not."),
		graphParam,
		mcp.WithOutputSchema[LintResult](),
	), mcp.NewStructuredToolHandler(s.handleLint))

	s.mcpServer.AddTool(mcp.NewTool("compile_graph",
		mcp.WithDescription("Compile a dialogue graph into the nested conversation definition."),
		graphParam,
		mcp.WithOutputSchema[domain.ConversationDefinition](),
	), mcp.NewStructuredToolHandler(s.handleCompile))

	s.mcpServer.AddTool(mcp.NewTool("export_graph",
		mcp.WithDescription("Lint and compile a dialogue graph. Fails with the findings when any of them is an error."),
		graphParam,
		mcp.WithOutputSchema[ExportResult](),
	), mcp.NewStructuredToolHandler(s.handleExport))

	s.mcpServer.AddTool(mcp.NewTool("validate_connection",
		mcp.WithDescription("Check whether an edge may be drawn between two nodes and name the deciding rule."),
		graphParam,
		mcp.WithString("source", mcp.Required(), mcp.Description("Source node ID")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target node ID")),
		mcp.WithOutputSchema[validator.Verdict](),
	), mcp.NewStructuredToolHandler(s.handleValidateConnection))

	s.mcpServer.AddTool(mcp.NewTool("render_mermaid",
		mcp.WithDescription("Render the graph as a Mermaid flowchart with lint findings highlighted."),
		graphParam,
	), s.handleRenderMermaid)
}

func parseGraph(raw string) (domain.Graph, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return domain.Graph{}, errors.New("graph is required")
	}
	format := compiler.FormatYAML
	if strings.HasPrefix(trimmed, "{") {
		format = compiler.FormatJSON
	}
	g, err := compiler.NewParser(compiler.WithFormat(format)).Parse([]byte(trimmed))
	if err != nil {
		return domain.Graph{}, fmt.Errorf("invalid graph: %w", err)
	}
	return g, nil
}

func (s *Server) handleLint(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (LintResult, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return LintResult{}, err
	}
	findings := lint.Lint(g)
	return LintResult{Findings: findings, CanExport: !findings.HasErrors()}, nil
}

func (s *Server) handleCompile(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (domain.ConversationDefinition, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return domain.ConversationDefinition{}, err
	}
	def, err := compiler.Definition(g)
	if err != nil {
		return domain.ConversationDefinition{}, fmt.Errorf("compile failed: %w", err)
	}
	return *def, nil
}

func (s *Server) handleExport(ctx context.Context, request mcp.CallToolRequest, args GraphArgs) (ExportResult, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return ExportResult{}, err
	}
	bundle, err := editor.Export(g)
	if err != nil {
		var blocked *domain.ExportBlockedError
		if errors.As(err, &blocked) {
			s.logger.Info("MCP export blocked", "errors", len(blocked.Findings.Errors()))
			return ExportResult{}, fmt.Errorf("%w: %s", err, describeFindings(blocked.Findings.Errors()))
		}
		return ExportResult{}, err
	}

	names := make([]string, 0, len(bundle.Payloads))
	for name := range bundle.Payloads {
		names = append(names, name)
	}
	sort.Strings(names)

	return ExportResult{
		Definition:  bundle.Definition,
		Findings:    bundle.Findings,
		Fingerprint: bundle.Fingerprint,
		Payloads:    names,
	}, nil
}

func (s *Server) handleValidateConnection(ctx context.Context, request mcp.CallToolRequest, args ConnectionArgs) (validator.Verdict, error) {
	g, err := parseGraph(args.Graph)
	if err != nil {
		return validator.Verdict{}, err
	}
	if args.Source == "" || args.Target == "" {
		return validator.Verdict{}, errors.New("source and target are required")
	}
	return validator.Check(g, args.Source, args.Target), nil
}

func (s *Server) handleRenderMermaid(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	g, err := parseGraph(request.GetString("graph", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(graph.GenerateMermaid(g, &graph.Overlay{Findings: lint.Lint(g)})), nil
}

func describeFindings(findings domain.Findings) string {
	parts := make([]string, 0, len(findings))
	for _, f := range findings {
		parts = append(parts, fmt.Sprintf("[%s] %s", f.Check, f.Message))
	}
	return strings.Join(parts, "; ")
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(rulesURI, "Connection Rules",
		mcp.WithResourceDescription("The connection rules in evaluation order"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonResource(rulesURI, validator.Rules())
	})

	if s.templates == nil {
		return
	}
	s.mcpServer.AddResource(mcp.NewResource(templatesURI, "Template Library",
		mcp.WithResourceDescription("Reusable graph fragments that can be imported into a document"),
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		templates, err := s.templates.Templates(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load templates: %w", err)
		}
		return jsonResource(templatesURI, templates)
	})
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
