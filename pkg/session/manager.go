package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/aretw0/botcanvas/internal/compiler"
	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/editor"
	"github.com/aretw0/botcanvas/pkg/ports"
	"github.com/google/uuid"
)

// lockTTL bounds how long a crashed replica can hold a document.
const lockTTL = 30 * time.Second

// lockEntry holds the mutex and the reference count.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// DiffListener is notified after every committed edit.
type DiffListener func(ctx context.Context, diff *domain.GraphDiff)

// Manager orchestrates document access, ensuring safe concurrent operations.
// It uses Reference Counting to garbage collect unused locks.
type Manager struct {
	store ports.GraphStore

	mu    sync.Mutex            // Global lock for the map
	locks map[string]*lockEntry // Map of active locks

	locker    ports.DistributedLocker // Optional distributed locker
	logger    *slog.Logger
	hooks     domain.EditorHooks
	listeners []DiffListener
	clock     func() time.Time
	newID     func() string
}

// Option configures the Manager.
type Option func(*Manager)

// WithLocker enables distributed locking.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithHooks forwards editor hooks to every edit performed through the Manager.
func WithHooks(hooks domain.EditorHooks) Option {
	return func(m *Manager) {
		m.hooks = m.hooks.Merge(hooks)
	}
}

// WithDiffListener registers a callback for committed changes.
func WithDiffListener(l DiffListener) Option {
	return func(m *Manager) {
		m.listeners = append(m.listeners, l)
	}
}

// WithClock overrides the time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithIDGenerator overrides how new document IDs are generated (default: UUIDv4).
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		m.newID = fn
	}
}

// NewManager creates a new document Manager with the given persistence store.
func NewManager(store ports.GraphStore, opts ...Option) *Manager {
	m := &Manager{
		store:  store,
		locks:  make(map[string]*lockEntry),
		logger: logging.NewNop(), // Default to no-op
		clock:  time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire gets or creates a lock entry and increments its reference count.
// The caller MUST Lock the entry.mu, and then call release(id) after unlocking.
func (m *Manager) acquire(id string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		entry = &lockEntry{}
		m.locks[id] = entry
	}
	entry.refs++
	return entry
}

// release decrements the reference count and deletes the entry if it reaches zero.
func (m *Manager) release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[id]
	if !exists {
		return
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, id)
	}
}

// Create stores a new document holding g (or only the start node when g is nil).
func (m *Manager) Create(ctx context.Context, name string, g *domain.Graph) (*domain.Document, error) {
	doc := domain.NewDocument(m.newID(), strings.TrimSpace(name), m.clock())
	if g != nil {
		ed, err := editor.FromGraph(*g)
		if err != nil {
			return nil, err
		}
		doc.Graph = ed.Snapshot()
	}
	if doc.Name == "" {
		doc.Name = "Untitled"
	}

	err := m.WithLock(ctx, doc.ID, func(ctx context.Context) error {
		return m.store.Save(ctx, doc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	m.logger.Info("document created", "document_id", doc.ID, "nodes", len(doc.Graph.Nodes))
	m.notify(ctx, domain.Diff(nil, doc))
	return doc, nil
}

// Get retrieves a document from the store.
func (m *Manager) Get(ctx context.Context, id string) (*domain.Document, error) {
	var doc *domain.Document
	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		var err error
		doc, err = m.store.Load(ctx, id)
		return err
	})
	return doc, err
}

// Delete removes the document from the store.
func (m *Manager) Delete(ctx context.Context, id string) error {
	return m.WithLock(ctx, id, func(ctx context.Context) error {
		if _, err := m.store.Load(ctx, id); err != nil {
			return err
		}
		return m.store.Delete(ctx, id)
	})
}

// List delegates to the store.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the underlying graph store.
func (m *Manager) Store() ports.GraphStore {
	return m.store
}

// Edit loads the document, runs fn against an editor over its graph and
// commits the result with the version incremented. When expectedVersion is
// positive it must match the stored version, otherwise domain.ErrVersionConflict
// is returned. Nothing is saved when fn fails or leaves the graph unchanged.
func (m *Manager) Edit(ctx context.Context, id string, expectedVersion int64, fn func(context.Context, *editor.Editor) error) (*domain.Document, *domain.GraphDiff, error) {
	var (
		updated *domain.Document
		diff    *domain.GraphDiff
	)

	err := m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return fmt.Errorf("%w: expected %d, found %d", domain.ErrVersionConflict, expectedVersion, current.Version)
		}

		ed, err := editor.FromGraph(current.Graph,
			editor.WithClock(m.clock),
			editor.WithLogger(m.logger.With("document_id", id)),
			editor.WithHooks(m.hooks),
		)
		if err != nil {
			return err
		}
		if err := fn(ctx, ed); err != nil {
			return err
		}

		next := current.Clone()
		next.Graph = ed.Snapshot()
		next.Version = current.Version + 1
		next.UpdatedAt = m.clock()

		diff = domain.Diff(current, next)
		if diff == nil {
			updated = current
			return nil
		}
		if err := m.store.Save(ctx, next); err != nil {
			return fmt.Errorf("failed to save document: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	m.notify(ctx, diff)
	return updated, diff, nil
}

// Apply runs commands against a document atomically.
func (m *Manager) Apply(ctx context.Context, id string, expectedVersion int64, cmds ...domain.Command) (*domain.Document, *domain.GraphDiff, error) {
	return m.Edit(ctx, id, expectedVersion, func(ctx context.Context, ed *editor.Editor) error {
		return ed.ApplyAll(ctx, cmds)
	})
}

// Import merges a template graph into a document.
func (m *Manager) Import(ctx context.Context, id string, expectedVersion int64, tmpl domain.Graph) (*domain.Document, *domain.GraphDiff, error) {
	return m.Edit(ctx, id, expectedVersion, func(ctx context.Context, ed *editor.Editor) error {
		_, err := ed.Import(ctx, tmpl)
		return err
	})
}

// Replace swaps the whole graph of a document, as when the canvas saves a full snapshot.
func (m *Manager) Replace(ctx context.Context, id string, expectedVersion int64, g domain.Graph) (*domain.Document, *domain.GraphDiff, error) {
	replacement, err := editor.FromGraph(g)
	if err != nil {
		return nil, nil, err
	}
	snapshot := replacement.Snapshot()

	var doc *domain.Document
	var diff *domain.GraphDiff
	err = m.WithLock(ctx, id, func(ctx context.Context) error {
		current, err := m.store.Load(ctx, id)
		if err != nil {
			return err
		}
		if expectedVersion > 0 && current.Version != expectedVersion {
			return fmt.Errorf("%w: expected %d, found %d", domain.ErrVersionConflict, expectedVersion, current.Version)
		}
		next := current.Clone()
		next.Graph = snapshot
		next.Version = current.Version + 1
		next.UpdatedAt = m.clock()
		if diff = domain.Diff(current, next); diff == nil {
			doc = current
			return nil
		}
		doc = next
		return m.store.Save(ctx, next)
	})
	if err != nil {
		return nil, nil, err
	}
	m.notify(ctx, diff)
	return doc, diff, nil
}

// Lint runs the lint engine against a stored document.
func (m *Manager) Lint(ctx context.Context, id string) (domain.Findings, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	ed, err := editor.FromGraph(doc.Graph)
	if err != nil {
		return nil, err
	}
	return ed.Lint(), nil
}

// Export compiles a stored document.
func (m *Manager) Export(ctx context.Context, id string) (*editor.Bundle, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	bundle, err := editor.Export(doc.Graph)
	if err != nil {
		var blocked *domain.ExportBlockedError
		if errors.As(err, &blocked) {
			m.logger.Info("export blocked", "document_id", id, "errors", len(blocked.Findings.Errors()))
		}
		return nil, err
	}
	m.logger.Info("document exported", "document_id", id, "fingerprint", bundle.Fingerprint)
	return bundle, nil
}

// Fingerprint returns the content hash of a stored document's graph.
func (m *Manager) Fingerprint(ctx context.Context, id string) (string, error) {
	doc, err := m.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return compiler.Fingerprint(doc.Graph)
}

func (m *Manager) notify(ctx context.Context, diff *domain.GraphDiff) {
	if diff == nil {
		return
	}
	for _, l := range m.listeners {
		l(ctx, diff)
	}
}

// WithLock executes a function while holding the lock for the document.
func (m *Manager) WithLock(ctx context.Context, id string, fn func(context.Context) error) error {
	entry := m.acquire(id)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(id)
	}()

	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, id, lockTTL)
		if err != nil {
			return fmt.Errorf("failed to acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("Failed to release distributed lock (will expire via TTL)",
					"document_id", id,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}
