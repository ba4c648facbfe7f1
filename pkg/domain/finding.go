package domain

import (
	"fmt"
	"strings"
)

// Severity classifies a lint finding.
type Severity string

const (
	// SeverityError blocks export.
	SeverityError Severity = "error"
	// SeverityWarning is advisory.
	SeverityWarning Severity = "warning"
)

// IsValid reports whether s is a known severity.
func (s Severity) IsValid() bool {
	return s == SeverityError || s == SeverityWarning
}

func (s Severity) String() string {
	return string(s)
}

// ParseSeverity converts a string into a Severity. Matching is case-insensitive.
func ParseSeverity(s string) (Severity, error) {
	sev := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !sev.IsValid() {
		return "", fmt.Errorf("invalid severity %q", s)
	}
	return sev, nil
}

// Finding is one lint result.
// Check is a stable machine identifier; NodeIDs lets editors jump to the offending nodes.
type Finding struct {
	Check    string   `json:"check"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
	NodeIDs  []string `json:"nodeIds"`
}

// Findings is the result of a lint pass.
type Findings []Finding

// HasErrors reports whether any finding blocks export.
func (f Findings) HasErrors() bool {
	for _, finding := range f {
		if finding.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only the error findings.
func (f Findings) Errors() Findings {
	return f.bySeverity(SeverityError)
}

// Warnings returns only the warning findings.
func (f Findings) Warnings() Findings {
	return f.bySeverity(SeverityWarning)
}

func (f Findings) bySeverity(s Severity) Findings {
	out := Findings{}
	for _, finding := range f {
		if finding.Severity == s {
			out = append(out, finding)
		}
	}
	return out
}

// NodeIDs returns every node id mentioned by the findings, deduplicated, in first-seen order.
func (f Findings) NodeIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	for _, finding := range f {
		for _, id := range finding.NodeIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}
	return ids
}
