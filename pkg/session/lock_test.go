package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aretw0/botcanvas/pkg/domain"
)

// MockStore structure
type MockStore struct{}

func (m *MockStore) Save(ctx context.Context, doc *domain.Document) error { return nil }
func (m *MockStore) Load(ctx context.Context, id string) (*domain.Document, error) {
	return domain.NewDocument(id, "mock", time.Time{}), nil
}
func (m *MockStore) Delete(ctx context.Context, id string) error { return nil }
func (m *MockStore) List(ctx context.Context) ([]string, error)  { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(&MockStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("doc-%d", i)
		_, _ = mgr.Get(ctx, id)
		_, _, _ = mgr.Apply(ctx, id, 0, domain.AddNode{ID: "q", Kind: domain.KindQuestion})
		_ = mgr.Delete(ctx, id)
	}

	lockCount := len(mgr.locks)
	t.Logf("Documents touched: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
