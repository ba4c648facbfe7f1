package domain

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the closed set of node kinds that can appear on the canvas.
type Kind string

const (
	// KindStart is the unique entry point of the dialogue.
	KindStart Kind = "start"
	// KindQuestion is a bot prompt. Questions form the branches of the tree.
	KindQuestion Kind = "question"
	// KindAnswer is the reply text attached to a question.
	KindAnswer Kind = "answer"
	// KindChecklist is an ordered list of items attached to a question.
	KindChecklist Kind = "checklist"
)

// StartNodeID and StartLabel are the identity of the start node seeded into every graph.
const (
	StartNodeID = "start"
	StartLabel  = "/start"
)

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindStart, KindQuestion, KindAnswer, KindChecklist}
}

// IsValid reports whether k is one of the known kinds.
func (k Kind) IsValid() bool {
	switch k {
	case KindStart, KindQuestion, KindAnswer, KindChecklist:
		return true
	default:
		return false
	}
}

// IsLeaf reports whether nodes of this kind hang off a question (answer or checklist).
func (k Kind) IsLeaf() bool {
	switch k {
	case KindAnswer, KindChecklist:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a string into a Kind. Matching is case-insensitive.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
	return k, nil
}

// DefaultLabel is the label given to a freshly dropped node of the given kind.
func DefaultLabel(k Kind) string {
	switch k {
	case KindStart:
		return StartLabel
	case KindQuestion:
		return "New question"
	case KindAnswer:
		return "New answer"
	case KindChecklist:
		return "New checklist"
	default:
		return ""
	}
}

// NewNodeID builds a node identifier from its kind and creation time.
func NewNodeID(k Kind, t time.Time) string {
	return fmt.Sprintf("%s_%d", k, t.UnixMilli())
}

// ChecklistItem is one line of a checklist node.
type ChecklistItem struct {
	Text     string `json:"text" yaml:"text"`
	Required bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// Attachment is a file attached to a question or answer.
// ID is the hex SHA-256 of the decoded content; Data is the base64 data URL.
// Type is "file" or "image".
type Attachment struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Data string `json:"data,omitempty" yaml:"data,omitempty"`
}

// Position is the canvas coordinate of a node. It carries no semantics.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Node represents a logical unit of the dialogue graph.
type Node struct {
	ID    string `json:"id" yaml:"id"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Label string `json:"label" yaml:"label"`

	// ChecklistItems is only meaningful on checklist nodes. An empty list is
	// distinct from an absent one; JSON keeps that apart (nil is omitted,
	// empty encodes as []). YAML output collapses both to an omitted key.
	ChecklistItems []ChecklistItem `json:"checklistItems,omitzero" yaml:"checklistItems,omitempty"`

	// Attachments is only meaningful on question and answer nodes.
	Attachments []Attachment `json:"attachments,omitempty" yaml:"attachments,omitempty"`

	Position Position `json:"position" yaml:"position"`
}

// NewStartNode returns the canonical start node.
func NewStartNode() Node {
	return Node{ID: StartNodeID, Kind: KindStart, Label: StartLabel}
}

// Blank reports whether the node has no visible label.
func (n Node) Blank() bool {
	return strings.TrimSpace(n.Label) == ""
}

// ItemTexts returns the raw checklist item texts, blanks included.
func (n Node) ItemTexts() []string {
	texts := make([]string, len(n.ChecklistItems))
	for i, item := range n.ChecklistItems {
		texts[i] = item.Text
	}
	return texts
}

// BlankItems counts checklist items whose text is empty or whitespace.
func (n Node) BlankItems() int {
	count := 0
	for _, item := range n.ChecklistItems {
		if strings.TrimSpace(item.Text) == "" {
			count++
		}
	}
	return count
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	c := n
	if n.ChecklistItems != nil {
		c.ChecklistItems = append([]ChecklistItem{}, n.ChecklistItems...)
	}
	if n.Attachments != nil {
		c.Attachments = append([]Attachment{}, n.Attachments...)
	}
	return c
}
