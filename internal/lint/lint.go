// Package lint scans a dialogue graph for structural errors and quality
// warnings. Error findings block export; warnings are advisory.
package lint

import (
	"fmt"
	"strings"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// Stable check identifiers.
const (
	CheckMissingStart              = "missing_start"
	CheckMultipleStart             = "multiple_start"
	CheckNoPathFromStart           = "no_path_from_start"
	CheckQuestionCycle             = "question_cycle"
	CheckQuestionWithoutAnswer     = "question_without_answer"
	CheckEmptyChecklist            = "empty_checklist"
	CheckDisconnectedQuestion      = "disconnected_question"
	CheckDisconnectedAnswer        = "disconnected_answer"
	CheckUnfilledIsolatedNode      = "unfilled_isolated_node"
	CheckUnfilledConnectedQuestion = "unfilled_connected_question"
	CheckUnfilledConnectedAnswer   = "unfilled_connected_answer"
	CheckBlankChecklistItem        = "blank_checklist_item"
)

type check func(g domain.Graph) domain.Findings

// checks run in this order on every call.
var checks = []check{
	startPresence,
	noPathFromStart,
	questionCycle,
	questionsWithoutAnswer,
	emptyChecklists,
	disconnectedQuestions,
	disconnectedAnswers,
	unfilledIsolatedNodes,
	unfilledConnectedNodes,
	blankChecklistItems,
}

// Lint runs every check against g. The result is never nil.
// Findings of the same check are aggregated into one finding listing all
// offending nodes, except blank checklist items which are reported per checklist.
func Lint(g domain.Graph) domain.Findings {
	findings := domain.Findings{}
	for _, c := range checks {
		findings = append(findings, c(g)...)
	}
	return findings
}

// CanExport reports whether the graph is free of error findings.
func CanExport(g domain.Graph) bool {
	return !Lint(g).HasErrors()
}

func startPresence(g domain.Graph) domain.Findings {
	starts := g.FindByKind(domain.KindStart)
	switch len(starts) {
	case 0:
		return domain.Findings{{
			Check:    CheckMissingStart,
			Message:  "The graph has no start node",
			Severity: domain.SeverityError,
			NodeIDs:  []string{},
		}}
	case 1:
		return nil
	default:
		return domain.Findings{{
			Check:    CheckMultipleStart,
			Message:  fmt.Sprintf("%d start nodes found; exactly one is allowed", len(starts)),
			Severity: domain.SeverityError,
			NodeIDs:  ids(starts),
		}}
	}
}

func noPathFromStart(g domain.Graph) domain.Findings {
	start, ok := g.Start()
	if !ok {
		return nil
	}
	if hasOutgoingOfKind(g, start.ID, domain.KindQuestion) {
		return nil
	}
	return domain.Findings{{
		Check:    CheckNoPathFromStart,
		Message:  "No questions are connected to the start node",
		Severity: domain.SeverityError,
		NodeIDs:  []string{start.ID},
	}}
}

// questionCycle reports a cycle among questions reachable from start,
// which the compiler would refuse.
func questionCycle(g domain.Graph) domain.Findings {
	start, ok := g.Start()
	if !ok {
		return nil
	}
	path := compiler.FindCycle(g, start.ID)
	if path == nil {
		return nil
	}
	return domain.Findings{{
		Check:    CheckQuestionCycle,
		Message:  fmt.Sprintf("Questions form a cycle: %s", strings.Join(path, " -> ")),
		Severity: domain.SeverityError,
		NodeIDs:  uniq(path),
	}}
}

func questionsWithoutAnswer(g domain.Graph) domain.Findings {
	var offenders []domain.Node
	for _, q := range g.FindByKind(domain.KindQuestion) {
		if !hasOutgoingOfKind(g, q.ID, domain.KindAnswer) && !hasOutgoingOfKind(g, q.ID, domain.KindChecklist) {
			offenders = append(offenders, q)
		}
	}
	return aggregate(CheckQuestionWithoutAnswer, offenders,
		"question has no answer", "questions have no answer")
}

func emptyChecklists(g domain.Graph) domain.Findings {
	var offenders []domain.Node
	for _, c := range g.FindByKind(domain.KindChecklist) {
		if len(c.ChecklistItems) == 0 {
			offenders = append(offenders, c)
		}
	}
	return aggregate(CheckEmptyChecklist, offenders,
		"checklist has no items", "checklists have no items")
}

func disconnectedQuestions(g domain.Graph) domain.Findings {
	var offenders []domain.Node
	for _, q := range g.FindByKind(domain.KindQuestion) {
		if !hasIncomingOfKind(g, q.ID, domain.KindStart, domain.KindQuestion) {
			offenders = append(offenders, q)
		}
	}
	return aggregate(CheckDisconnectedQuestion, offenders,
		"question has no incoming connection", "questions have no incoming connections")
}

func disconnectedAnswers(g domain.Graph) domain.Findings {
	var offenders []domain.Node
	for _, a := range g.FindByKind(domain.KindAnswer) {
		if !hasIncomingOfKind(g, a.ID, domain.KindQuestion) {
			offenders = append(offenders, a)
		}
	}
	return aggregate(CheckDisconnectedAnswer, offenders,
		"answer is not connected to a question", "answers are not connected to questions")
}

func unfilledIsolatedNodes(g domain.Graph) domain.Findings {
	var offenders []domain.Node
	for _, n := range g.Nodes {
		if n.Kind != domain.KindStart && !g.HasEdges(n.ID) && n.Blank() {
			offenders = append(offenders, n)
		}
	}
	return aggregate(CheckUnfilledIsolatedNode, offenders,
		"unconnected node is empty", "unconnected nodes are empty")
}

func unfilledConnectedNodes(g domain.Graph) domain.Findings {
	var questions, leaves []domain.Node
	for _, n := range g.Nodes {
		if n.Kind == domain.KindStart || !g.HasEdges(n.ID) || !n.Blank() {
			continue
		}
		switch n.Kind {
		case domain.KindQuestion:
			questions = append(questions, n)
		case domain.KindAnswer, domain.KindChecklist:
			leaves = append(leaves, n)
		}
	}

	findings := aggregate(CheckUnfilledConnectedQuestion, questions,
		"connected question is empty", "connected questions are empty")
	return append(findings, aggregate(CheckUnfilledConnectedAnswer, leaves,
		"connected answer is empty", "connected answers are empty")...)
}

func blankChecklistItems(g domain.Graph) domain.Findings {
	var findings domain.Findings
	for _, c := range g.FindByKind(domain.KindChecklist) {
		blank := c.BlankItems()
		if blank == 0 {
			continue
		}
		findings = append(findings, domain.Finding{
			Check:    CheckBlankChecklistItem,
			Message:  fmt.Sprintf("Checklist %q has %d empty %s", c.Label, blank, plural(blank, "item", "items")),
			Severity: domain.SeverityWarning,
			NodeIDs:  []string{c.ID},
		})
	}
	return findings
}

// aggregate folds all offenders of one check into a single warning.
func aggregate(checkID string, offenders []domain.Node, singular, pluralForm string) domain.Findings {
	if len(offenders) == 0 {
		return nil
	}
	return domain.Findings{{
		Check:    checkID,
		Message:  fmt.Sprintf("%d %s", len(offenders), plural(len(offenders), singular, pluralForm)),
		Severity: domain.SeverityWarning,
		NodeIDs:  ids(offenders),
	}}
}

func plural(n int, singular, pluralForm string) string {
	if n == 1 {
		return singular
	}
	return pluralForm
}

func hasOutgoingOfKind(g domain.Graph, id string, k domain.Kind) bool {
	for _, e := range g.OutgoingEdges(id) {
		if n, ok := g.Node(e.Target); ok && n.Kind == k {
			return true
		}
	}
	return false
}

func hasIncomingOfKind(g domain.Graph, id string, kinds ...domain.Kind) bool {
	for _, e := range g.IncomingEdges(id) {
		n, ok := g.Node(e.Source)
		if !ok {
			continue
		}
		for _, k := range kinds {
			if n.Kind == k {
				return true
			}
		}
	}
	return false
}

func ids(nodes []domain.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID
	}
	return out
}

func uniq(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
