package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// Overlay marks nodes touched by lint findings.
type Overlay struct {
	Findings domain.Findings
}

// GenerateMermaid produces a Mermaid flowchart from a graph.
// It applies semantic styling:
// - Start: ((Circle))
// - Question: [/Parallelogram/]
// - Checklist: [[Subroutine]]
// - Answer: [Rectangle]
// Nodes referenced by findings are styled as error or warning when an
// overlay is provided. Error wins over warning.
func GenerateMermaid(g domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range g.Nodes {
		opener, closer := "[", "]"
		switch node.Kind {
		case domain.KindStart:
			opener, closer = "((", "))"
		case domain.KindQuestion:
			opener, closer = "[/", "/]"
		case domain.KindChecklist:
			opener, closer = "[[", "]]"
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", sanitizeMermaidID(node.ID), opener, nodeLabel(node), closer)
	}

	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "    %s --> %s\n", sanitizeMermaidID(e.Source), sanitizeMermaidID(e.Target))
	}

	if overlay != nil && len(overlay.Findings) > 0 {
		sb.WriteString("\n    %% Lint Overlay\n")
		// Force black text (color:#000) for high-contrast regardless of theme
		sb.WriteString("    classDef error fill:#ffcdd2,stroke:#c62828,stroke-width:3px,color:#000;\n")
		sb.WriteString("    classDef warning fill:#fff9c4,stroke:#f9a825,stroke-width:2px,color:#000;\n")

		severity := make(map[string]domain.Severity)
		var order []string
		for _, f := range overlay.Findings {
			for _, id := range f.NodeIDs {
				current, seen := severity[id]
				if !seen {
					order = append(order, id)
				}
				if !seen || current != domain.SeverityError {
					severity[id] = f.Severity
				}
			}
		}
		for _, id := range order {
			if _, ok := g.Node(id); !ok {
				continue
			}
			fmt.Fprintf(&sb, "    class %s %s;\n", sanitizeMermaidID(id), severity[id])
		}
	}

	return sb.String()
}

func nodeLabel(n domain.Node) string {
	label := strings.TrimSpace(n.Label)
	if label == "" {
		label = "(empty)"
	}
	label = strings.ReplaceAll(label, "\"", "#quot;")
	label = strings.ReplaceAll(label, "\n", "<br/>")

	if n.Kind == domain.KindChecklist {
		label += fmt.Sprintf(" <br/> ☑ %d", len(n.ChecklistItems))
	}
	if len(n.Attachments) > 0 {
		label += fmt.Sprintf(" <br/> 📎 %d", len(n.Attachments))
	}
	return label
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
