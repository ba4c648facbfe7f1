package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// LintReport formats findings as a markdown document, errors first.
func LintReport(findings domain.Findings) string {
	var sb strings.Builder
	sb.WriteString("# Lint report\n\n")

	if len(findings) == 0 {
		sb.WriteString("No problems found. The graph is ready to export.\n")
		return sb.String()
	}

	errs := findings.Errors()
	warnings := len(findings.Warnings())
	fmt.Fprintf(&sb, "**%d error(s)**, **%d warning(s)**\n\n", len(errs), warnings)

	for _, sev := range []domain.Severity{domain.SeverityError, domain.SeverityWarning} {
		for _, f := range findings {
			if f.Severity != sev {
				continue
			}
			fmt.Fprintf(&sb, "- **%s** `%s` %s", sev, f.Check, f.Message)
			if len(f.NodeIDs) > 0 {
				fmt.Fprintf(&sb, " (`%s`)", strings.Join(f.NodeIDs, "`, `"))
			}
			sb.WriteString("\n")
		}
	}

	if len(errs) > 0 {
		sb.WriteString("\nExport is blocked until every error is fixed.\n")
	}
	return sb.String()
}

// Severity colours a severity label for plain terminal output.
func Severity(s domain.Severity) string {
	p := termenv.ColorProfile()
	switch s {
	case domain.SeverityError:
		return termenv.String(string(s)).Foreground(p.Color("#ef4444")).Bold().String()
	case domain.SeverityWarning:
		return termenv.String(string(s)).Foreground(p.Color("#f59e0b")).String()
	default:
		return string(s)
	}
}
