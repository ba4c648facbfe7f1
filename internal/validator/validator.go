package validator

import (
	"fmt"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// Rule names the connection rule that decided a verdict.
type Rule string

const (
	RuleMissingEndpoint     Rule = "missing_endpoint"
	RuleStartLeaf           Rule = "start_leaf"
	RuleLeafAlreadyAttached Rule = "leaf_already_attached"
	RuleTargetHasIncoming   Rule = "target_has_incoming"
	RuleDuplicateAnswer     Rule = "duplicate_answer"
	RuleDuplicateChecklist  Rule = "duplicate_checklist"
	RuleStartTarget         Rule = "start_target"
	RuleAccepted            Rule = "accepted"
)

// Verdict is the outcome of a proposed connection.
type Verdict struct {
	Allowed bool   `json:"allowed"`
	Rule    Rule   `json:"rule"`
	Reason  string `json:"reason"`
}

// RuleDoc documents one rule, in evaluation order.
type RuleDoc struct {
	Rule        Rule   `json:"rule"`
	Description string `json:"description"`
}

// Rules lists the connection rules in the order they are evaluated. The first match wins.
func Rules() []RuleDoc {
	return []RuleDoc{
		{RuleMissingEndpoint, "Reject when the source or the target node does not exist."},
		{RuleStartLeaf, "Reject any edge between the start node and an answer or checklist, in either direction."},
		{RuleLeafAlreadyAttached, "Between a question and an answer/checklist, reject when the answer/checklist already has an incoming edge."},
		{RuleTargetHasIncoming, "Reject when the target is an answer/checklist that already has an incoming edge."},
		{RuleDuplicateAnswer, "Reject a second answer for the same question."},
		{RuleDuplicateChecklist, "Reject a second checklist for the same question."},
		{RuleStartTarget, "Reject any edge into the start node, including a self-loop on it."},
		{RuleAccepted, "Accept everything else."},
	}
}

// IsValidConnection reports whether the edge source -> target may be added to g.
// It is advisory: callers drop rejected connections without raising an error.
func IsValidConnection(g domain.Graph, source, target string) bool {
	return Check(g, source, target).Allowed
}

// Check evaluates the connection rules and explains the verdict.
func Check(g domain.Graph, source, target string) Verdict {
	src, okSrc := g.Node(source)
	tgt, okTgt := g.Node(target)
	if !okSrc || !okTgt {
		missing := source
		if okSrc {
			missing = target
		}
		return reject(RuleMissingEndpoint, "node %q does not exist", missing)
	}

	if (src.Kind == domain.KindStart && tgt.Kind.IsLeaf()) || (tgt.Kind == domain.KindStart && src.Kind.IsLeaf()) {
		return reject(RuleStartLeaf, "start cannot be connected to %s %q", leafOf(src, tgt).Kind, leafOf(src, tgt).ID)
	}

	if pairsQuestionWithLeaf(src, tgt) {
		leaf := leafOf(src, tgt)
		if len(g.IncomingEdges(leaf.ID)) > 0 {
			return reject(RuleLeafAlreadyAttached, "%s %q is already attached", leaf.Kind, leaf.ID)
		}
	}

	if tgt.Kind.IsLeaf() && len(g.IncomingEdges(tgt.ID)) > 0 {
		return reject(RuleTargetHasIncoming, "%s %q already has an incoming connection", tgt.Kind, tgt.ID)
	}

	if src.Kind == domain.KindQuestion {
		switch tgt.Kind {
		case domain.KindAnswer:
			if hasOutgoingOfKind(g, src.ID, domain.KindAnswer) {
				return reject(RuleDuplicateAnswer, "question %q already has an answer", src.ID)
			}
		case domain.KindChecklist:
			if hasOutgoingOfKind(g, src.ID, domain.KindChecklist) {
				return reject(RuleDuplicateChecklist, "question %q already has a checklist", src.ID)
			}
		}
	}

	// The start node has no input handle on the canvas.
	if tgt.Kind == domain.KindStart {
		return reject(RuleStartTarget, "start node %q cannot have incoming connections", tgt.ID)
	}

	return Verdict{Allowed: true, Rule: RuleAccepted, Reason: "connection allowed"}
}

func reject(rule Rule, format string, args ...any) Verdict {
	return Verdict{Allowed: false, Rule: rule, Reason: fmt.Sprintf(format, args...)}
}

func pairsQuestionWithLeaf(a, b domain.Node) bool {
	return (a.Kind == domain.KindQuestion && b.Kind.IsLeaf()) || (b.Kind == domain.KindQuestion && a.Kind.IsLeaf())
}

// leafOf returns whichever endpoint is an answer or checklist.
func leafOf(a, b domain.Node) domain.Node {
	if a.Kind.IsLeaf() {
		return a
	}
	return b
}

func hasOutgoingOfKind(g domain.Graph, id string, k domain.Kind) bool {
	for _, e := range g.OutgoingEdges(id) {
		if n, ok := g.Node(e.Target); ok && n.Kind == k {
			return true
		}
	}
	return false
}
