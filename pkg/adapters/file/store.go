package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
)

const ext = ".json"

// Store implements ports.GraphStore on the local filesystem.
// Each document is a JSON file named after its ID.
type Store struct {
	BasePath string
}

// New creates a new Store rooted at basePath.
// If basePath is empty, it defaults to ".botcanvas/documents".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".botcanvas", "documents")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(id string) (string, error) {
	if id == "" {
		return "", errors.New("document id cannot be empty")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(s.BasePath, id+ext), nil
}

// Save writes the document atomically: a temp file in the same directory
// is synced and then renamed over the destination.
func (s *Store) Save(ctx context.Context, doc *domain.Document) error {
	destPath, err := s.path(doc.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("failed to ensure document directory: %w", err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.BasePath, "tmp-"+doc.ID+"-*"+ext)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath) // no-op after a successful rename
	}()

	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		// Windows refuses to rename over an existing file.
		if _, statErr := os.Stat(destPath); statErr == nil {
			if err := os.Remove(destPath); err != nil {
				return fmt.Errorf("failed to replace document file: %w", err)
			}
			err = os.Rename(tmpPath, destPath)
		}
		if err != nil {
			return fmt.Errorf("failed to rename temp file: %w", err)
		}
	}
	return nil
}

// Load reads a document back from disk.
func (s *Store) Load(ctx context.Context, id string) (*domain.Document, error) {
	filePath, err := s.path(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}

	var doc domain.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document %s: %w", id, err)
	}
	return &doc, nil
}

// Delete removes the document file.
func (s *Store) Delete(ctx context.Context, id string) error {
	filePath, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete document file: %w", err)
	}
	return nil
}

// List returns the stored document IDs in sorted order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, "tmp-") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ext))
	}
	sort.Strings(ids)
	return ids, nil
}
