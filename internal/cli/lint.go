package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/botcanvas/internal/presentation/tui"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// LintOptions controls how findings are printed.
type LintOptions struct {
	Options
	JSON bool
	// Pretty renders the report as styled markdown.
	Pretty bool
	Width  int
}

type lintReport struct {
	Findings  domain.Findings `json:"findings"`
	CanExport bool            `json:"canExport"`
}

// RunLint lints the snapshot at path and writes the report to w.
// It returns ErrLintFailed when any finding is an error.
func RunLint(w io.Writer, path string, opts LintOptions) error {
	eng := newEngine(opts.Options)
	g, err := loadGraph(eng, path, opts.Options)
	if err != nil {
		return err
	}
	findings := eng.Lint(g)

	switch {
	case opts.JSON:
		if err := writeJSON(w, lintReport{Findings: findings, CanExport: !findings.HasErrors()}); err != nil {
			return err
		}
	case opts.Pretty:
		out, err := tui.NewRenderer(opts.Width)(tui.LintReport(findings))
		if err != nil {
			return err
		}
		fmt.Fprint(w, out)
	default:
		if len(findings) == 0 {
			fmt.Fprintln(w, "No findings. Graph is ready to export! ✅")
		}
		for _, f := range findings {
			fmt.Fprintf(w, "%s [%s] %s\n", tui.Severity(f.Severity), f.Check, f.Message)
		}
	}

	if findings.HasErrors() {
		return fmt.Errorf("%w: %d error(s)", ErrLintFailed, len(findings.Errors()))
	}
	return nil
}
