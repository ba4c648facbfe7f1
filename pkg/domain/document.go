package domain

import "time"

// Document is a named graph owned by a multi-session host.
// Version increases by one on every change of the graph.
type Document struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Graph     Graph     `json:"graph"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Sealed holds an opaque encrypted copy of the document when a
	// persistence middleware hides the content from the underlying store.
	Sealed string `json:"sealed,omitempty"`
}

// NewDocument returns a document holding a fresh graph.
func NewDocument(id, name string, now time.Time) *Document {
	return &Document{
		ID:        id,
		Name:      name,
		Graph:     NewGraph(),
		Version:   1,
		UpdatedAt: now,
	}
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	c := *d
	c.Graph = d.Graph.Clone()
	return &c
}
