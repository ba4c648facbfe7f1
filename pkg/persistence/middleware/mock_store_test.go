package middleware_test

import (
	"context"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/ports"
)

// MockStore is a simple map-based store for testing middleware.
type MockStore struct {
	data map[string]*domain.Document
}

func NewMockStore() *MockStore {
	return &MockStore{
		data: make(map[string]*domain.Document),
	}
}

func (s *MockStore) Save(ctx context.Context, doc *domain.Document) error {
	s.data[doc.ID] = doc
	return nil
}

func (s *MockStore) Load(ctx context.Context, id string) (*domain.Document, error) {
	doc, ok := s.data[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *MockStore) Delete(ctx context.Context, id string) error {
	delete(s.data, id)
	return nil
}

func (s *MockStore) List(ctx context.Context) ([]string, error) {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var _ ports.GraphStore = (*MockStore)(nil)
