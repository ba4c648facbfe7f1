package dsl

import (
	"github.com/aretw0/botcanvas/pkg/attachment"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// QuestionBuilder provides a fluent API for configuring a question and
// the nodes hanging off it.
type QuestionBuilder struct {
	id      string
	builder *Builder
}

// ID returns the question's node id.
func (q *QuestionBuilder) ID() string {
	return q.id
}

// Answer attaches an answer node to the question.
func (q *QuestionBuilder) Answer(id, label string) *QuestionBuilder {
	if q.builder.add(domain.Node{ID: id, Kind: domain.KindAnswer, Label: label}) {
		q.builder.Edge(q.id, id)
	}
	return q
}

// Checklist attaches a checklist node with the given items to the question.
func (q *QuestionBuilder) Checklist(id, title string, items ...string) *QuestionBuilder {
	n := domain.Node{ID: id, Kind: domain.KindChecklist, Label: title, ChecklistItems: []domain.ChecklistItem{}}
	for _, it := range items {
		n.ChecklistItems = append(n.ChecklistItems, domain.ChecklistItem{Text: it})
	}
	if q.builder.add(n) {
		q.builder.Edge(q.id, id)
	}
	return q
}

// Attach adds a file to the question. Errors surface from Build.
func (q *QuestionBuilder) Attach(name string, data []byte) *QuestionBuilder {
	a, err := attachment.New(name, data)
	if err != nil {
		q.builder.errs = append(q.builder.errs, err)
		return q
	}
	n := q.builder.node(q.id)
	n.Attachments = append(n.Attachments, a)
	return q
}

// Ask creates a follow-up question under this one and returns its builder.
func (q *QuestionBuilder) Ask(id, label string) *QuestionBuilder {
	if q.builder.add(domain.Node{ID: id, Kind: domain.KindQuestion, Label: label}) {
		q.builder.Edge(q.id, id)
	}
	return &QuestionBuilder{id: id, builder: q.builder}
}

// From moves the question under parentID, replacing its current incoming edges.
func (q *QuestionBuilder) From(parentID string) *QuestionBuilder {
	kept := q.builder.edges[:0]
	for _, e := range q.builder.edges {
		if e.Target != q.id {
			kept = append(kept, e)
		}
	}
	q.builder.edges = kept
	q.builder.Edge(parentID, q.id)
	return q
}
