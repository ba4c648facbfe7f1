package domain

import (
	"reflect"
)

// GraphDiff represents the changes between two versions of a document graph.
// It is designed to be serialized to JSON for partial updates on the client.
type GraphDiff struct {
	// DocumentID is always present to identify the target.
	DocumentID string `json:"document_id"`
	Version    int64  `json:"version"`

	// AddedNodes and UpdatedNodes carry the full node; RemovedNodes only the id.
	AddedNodes   []Node   `json:"added_nodes,omitempty"`
	UpdatedNodes []Node   `json:"updated_nodes,omitempty"`
	RemovedNodes []string `json:"removed_nodes,omitempty"`

	AddedEdges   []Edge `json:"added_edges,omitempty"`
	RemovedEdges []Edge `json:"removed_edges,omitempty"`
}

// Diff calculates the difference between two documents.
// If oldDoc is nil, it returns a diff representing the entire newDoc (initial load).
func Diff(oldDoc, newDoc *Document) *GraphDiff {
	if newDoc == nil {
		return nil
	}

	diff := &GraphDiff{
		DocumentID: newDoc.ID,
		Version:    newDoc.Version,
	}

	var oldGraph Graph
	if oldDoc != nil {
		oldGraph = oldDoc.Graph
	}

	diff.AddedNodes, diff.UpdatedNodes, diff.RemovedNodes = diffNodes(oldGraph, newDoc.Graph)
	diff.AddedEdges, diff.RemovedEdges = diffEdges(oldGraph, newDoc.Graph)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffNodes(old, new Graph) (added, updated []Node, removed []string) {
	oldByID := make(map[string]Node, len(old.Nodes))
	for _, n := range old.Nodes {
		oldByID[n.ID] = n
	}
	newIDs := make(map[string]bool, len(new.Nodes))

	for _, n := range new.Nodes {
		newIDs[n.ID] = true
		prev, exists := oldByID[n.ID]
		if !exists {
			added = append(added, n)
			continue
		}
		if !reflect.DeepEqual(prev, n) {
			updated = append(updated, n)
		}
	}

	for _, n := range old.Nodes {
		if !newIDs[n.ID] {
			removed = append(removed, n.ID)
		}
	}
	return added, updated, removed
}

// diffEdges compares edges by endpoints; edge ids are not significant.
func diffEdges(old, new Graph) (added, removed []Edge) {
	for _, e := range new.Edges {
		if !old.HasEdge(e.Source, e.Target) {
			added = append(added, e)
		}
	}
	for _, e := range old.Edges {
		if !new.HasEdge(e.Source, e.Target) {
			removed = append(removed, e)
		}
	}
	return added, removed
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *GraphDiff) IsEmpty() bool {
	return len(d.AddedNodes) == 0 &&
		len(d.UpdatedNodes) == 0 &&
		len(d.RemovedNodes) == 0 &&
		len(d.AddedEdges) == 0 &&
		len(d.RemovedEdges) == 0
}
