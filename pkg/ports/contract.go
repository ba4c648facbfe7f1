package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunGraphStoreContract runs a suite of tests to verify that a GraphStore implementation
// adheres to the defined interface contract.
func RunGraphStoreContract(t *testing.T, store GraphStore) {
	ctx := context.Background()
	docID := "contract-test-doc-" + time.Now().Format("20060102150405")
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	sample := func(id string) *domain.Document {
		doc := domain.NewDocument(id, "Contract", now)
		doc.Graph.Nodes = append(doc.Graph.Nodes,
			domain.Node{ID: "q1", Kind: domain.KindQuestion, Label: "Hi?", Position: domain.Position{X: 1, Y: 2}},
			domain.Node{ID: "c1", Kind: domain.KindChecklist, Label: "Steps", ChecklistItems: []domain.ChecklistItem{{Text: "a"}, {Text: ""}}},
		)
		doc.Graph.Edges = append(doc.Graph.Edges,
			domain.Edge{ID: "e-start-q1", Source: "start", Target: "q1"},
			domain.Edge{ID: "e-q1-c1", Source: "q1", Target: "c1"},
		)
		return doc
	}

	t.Run("Save and Load", func(t *testing.T) {
		doc := sample(docID)

		err := store.Save(ctx, doc)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, doc.ID, loaded.ID)
		assert.Equal(t, doc.Name, loaded.Name)
		assert.Equal(t, doc.Version, loaded.Version)
		assert.True(t, doc.UpdatedAt.Equal(loaded.UpdatedAt))
		assert.Equal(t, doc.Graph, loaded.Graph)
	})

	t.Run("Loaded copy is isolated", func(t *testing.T) {
		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		loaded.Graph.Nodes[0].Label = "mutated"

		again, err := store.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, domain.StartLabel, again.Graph.Nodes[0].Label)
	})

	t.Run("Overwrite", func(t *testing.T) {
		doc := sample(docID)
		doc.Version = 2
		doc.Name = "Renamed"
		require.NoError(t, store.Save(ctx, doc))

		loaded, err := store.Load(ctx, docID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), loaded.Version)
		assert.Equal(t, "Renamed", loaded.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sample(docID)))

		err := store.Delete(ctx, docID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, docID)
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound, "Load after Delete should return ErrDocumentNotFound")

		assert.NoError(t, store.Delete(ctx, docID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := docID + "-1"
		id2 := docID + "-2"
		require.NoError(t, store.Save(ctx, sample(id1)))
		require.NoError(t, store.Save(ctx, sample(id2)))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
	})
}
