package botcanvas

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/internal/presentation/graph"
	"github.com/aretw0/botcanvas/internal/validator"
	loamAdapter "github.com/aretw0/botcanvas/pkg/adapters/loam"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/editor"
	"github.com/aretw0/botcanvas/pkg/observability"
	"github.com/aretw0/botcanvas/pkg/ports"
)

// Engine is the high-level entry point for the botcanvas library.
// It bundles the parser, the connection validator, the compiler and the
// lint engine behind one value and forwards events to the configured
// hooks and metrics.
type Engine struct {
	logger    *slog.Logger
	hooks     domain.EditorHooks
	metrics   *observability.Metrics
	templates ports.TemplateLoader
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithHooks registers editor hooks for every editor created by the engine.
func WithHooks(hooks domain.EditorHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithMetrics records lint, compile and export outcomes, and editor events.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
		e.hooks = e.hooks.Merge(m.Hooks())
	}
}

// WithTemplates injects a template library.
func WithTemplates(loader ports.TemplateLoader) Option {
	return func(e *Engine) {
		e.templates = loader
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	e := &Engine{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OpenTemplates opens a Loam template library rooted at dir.
func OpenTemplates(dir string) (ports.TemplateLoader, error) {
	return loamAdapter.Open(dir)
}

// Parse decodes a snapshot. A missing start node is inserted.
func (e *Engine) Parse(data []byte, format compiler.Format) (domain.Graph, error) {
	return compiler.NewParser(compiler.WithFormat(format)).Parse(data)
}

// Load reads a snapshot file, picking the format from its extension.
func (e *Engine) Load(path string) (domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to read snapshot: %w", err)
	}
	g, err := e.Parse(data, compiler.FormatFromPath(path))
	if err != nil {
		return domain.Graph{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// CheckConnection evaluates a proposed edge without changing the graph.
func (e *Engine) CheckConnection(g domain.Graph, source, target string) validator.Verdict {
	v := validator.Check(g, source, target)
	if !v.Allowed {
		e.logger.Debug("connection rejected", "source", source, "target", target, "rule", v.Rule)
	}
	return v
}

// Lint scans the graph and returns its findings.
func (e *Engine) Lint(g domain.Graph) domain.Findings {
	started := time.Now()
	findings := lint.Lint(g)
	e.logger.Debug("graph linted", "findings", len(findings), "duration", time.Since(started))
	if e.metrics != nil {
		e.metrics.ObserveFindings(findings)
	}
	return findings
}

// Compile turns the graph into the nested conversation definition.
func (e *Engine) Compile(g domain.Graph) (*domain.ConversationDefinition, error) {
	started := time.Now()
	def, err := compiler.Definition(g)
	elapsed := time.Since(started)
	if e.metrics != nil {
		e.metrics.ObserveCompile(elapsed)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Debug("graph compiled", "questions", len(def.Questions), "duration", elapsed)
	return def, nil
}

// Export lints and compiles the graph. It fails with a
// *domain.ExportBlockedError when any finding is an error.
func (e *Engine) Export(g domain.Graph) (*editor.Bundle, error) {
	bundle, err := editor.Export(g)
	if e.metrics != nil {
		e.metrics.ObserveExport(err)
	}
	if err != nil {
		return nil, err
	}
	e.logger.Info("graph exported", "fingerprint", bundle.Fingerprint, "payloads", len(bundle.Payloads))
	return bundle, nil
}

// Mermaid renders the graph as a Mermaid flowchart with findings highlighted.
func (e *Engine) Mermaid(g domain.Graph) string {
	return graph.GenerateMermaid(g, &graph.Overlay{Findings: lint.Lint(g)})
}

// Edit opens an editor over g wired to the engine's logger and hooks.
// A nil graph starts from a fresh canvas.
func (e *Engine) Edit(g *domain.Graph) (*editor.Editor, error) {
	opts := []editor.Option{editor.WithLogger(e.logger), editor.WithHooks(e.hooks)}
	if g == nil {
		return editor.New(opts...), nil
	}
	return editor.FromGraph(*g, opts...)
}

// Template fetches a template from the configured library.
func (e *Engine) Template(ctx context.Context, name string) (domain.Template, error) {
	if e.templates == nil {
		return domain.Template{}, fmt.Errorf("%w: no template library configured", domain.ErrTemplateNotFound)
	}
	return e.templates.Template(ctx, name)
}

// Templates returns the configured template library, or nil.
func (e *Engine) Templates() ports.TemplateLoader {
	return e.templates
}
