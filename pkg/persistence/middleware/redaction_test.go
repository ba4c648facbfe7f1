package middleware_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/botcanvas/pkg/adapters/memory"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/persistence/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactionMiddleware_Masking(t *testing.T) {
	underlyingStore := NewMockStore()
	// Mask e-mail addresses and anything that looks like a card number.
	secureStore := middleware.NewRedactionMiddleware([]string{
		`[\w.+-]+@[\w-]+\.[\w.]+`,
		`\b\d{4}-\d{4}-\d{4}-\d{4}\b`,
	})(underlyingStore)

	ctx := context.Background()
	doc := domain.NewDocument("pii-doc", "Support", time.Now())
	doc.Graph.Nodes = append(doc.Graph.Nodes,
		domain.Node{ID: "q1", Kind: domain.KindQuestion, Label: "Write to help@example.com"},
		domain.Node{ID: "c1", Kind: domain.KindChecklist, Label: "Card", ChecklistItems: []domain.ChecklistItem{{Text: "1234-5678-9012-3456"}, {Text: "keep"}}},
		domain.Node{ID: "a1", Kind: domain.KindAnswer, Label: "Thanks", Attachments: []domain.Attachment{{ID: "x", Name: "jane@corp.io.pdf"}}},
	)

	require.NoError(t, secureStore.Save(ctx, doc))

	// The caller's document is untouched.
	assert.Equal(t, "Write to help@example.com", doc.Graph.Nodes[1].Label)
	assert.Equal(t, "1234-5678-9012-3456", doc.Graph.Nodes[2].ChecklistItems[0].Text)

	stored, err := underlyingStore.Load(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Write to ***", stored.Graph.Nodes[1].Label)
	assert.Equal(t, "***", stored.Graph.Nodes[2].ChecklistItems[0].Text)
	assert.Equal(t, "keep", stored.Graph.Nodes[2].ChecklistItems[1].Text)
	assert.Equal(t, "***", stored.Graph.Nodes[3].Attachments[0].Name)
	assert.Equal(t, domain.StartLabel, stored.Graph.Nodes[0].Label)
}

func TestChain_Order(t *testing.T) {
	key := generateKey(t)
	store := middleware.Chain(memory.NewStore(),
		middleware.NewRedactionMiddleware([]string{"secret"}),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	ctx := context.Background()
	doc := secretDoc("chained")
	require.NoError(t, store.Save(ctx, doc))

	// Redaction runs before encryption, so the decrypted copy is masked.
	loaded, err := store.Load(ctx, "chained")
	require.NoError(t, err)
	assert.Equal(t, "my-***-sauce", loaded.Graph.Nodes[1].Label)
}
