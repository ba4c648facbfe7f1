package editor

import (
	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/lint"
	"github.com/aretw0/botcanvas/pkg/attachment"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// Bundle is everything handed to the packaging collaborator on export.
type Bundle struct {
	Definition *domain.ConversationDefinition `json:"definition"`

	// Payloads holds decoded attachment content keyed by attachment.FileName.
	Payloads map[string][]byte `json:"-"`

	// Findings are the warnings that did not block the export.
	Findings domain.Findings `json:"findings"`

	// Fingerprint identifies the exact graph that was exported.
	Fingerprint string `json:"fingerprint"`
}

// Export lints g and, when no error finding is present, compiles it.
// A blocked export returns a *domain.ExportBlockedError carrying every finding.
func Export(g domain.Graph) (*Bundle, error) {
	findings := lint.Lint(g)
	if findings.HasErrors() {
		return nil, &domain.ExportBlockedError{Findings: findings}
	}

	def, err := compiler.Definition(g)
	if err != nil {
		return nil, err
	}
	payloads, err := attachment.Payloads(g)
	if err != nil {
		return nil, err
	}
	fp, err := compiler.Fingerprint(g)
	if err != nil {
		return nil, err
	}

	return &Bundle{
		Definition:  def,
		Payloads:    payloads,
		Findings:    findings,
		Fingerprint: fp,
	}, nil
}
