package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/botcanvas/internal/logging"
	"github.com/aretw0/botcanvas/pkg/domain"
)

// StreamManager fans committed graph diffs out to SSE subscribers.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- []byte]struct{} // DocumentID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty stream manager. A nil logger discards logs.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for a document. The returned
// function unregisters and closes it.
func (sm *StreamManager) Subscribe(documentID string) (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, 10)
	if _, ok := sm.subscribers[documentID]; !ok {
		sm.subscribers[documentID] = make(map[chan<- []byte]struct{})
	}
	sm.subscribers[documentID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[documentID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, documentID)
				}
			}
		})
	}
}

// Subscribers reports how many channels listen on a document.
func (sm *StreamManager) Subscribers(documentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[documentID])
}

// Broadcast sends msg to every subscriber of a document. Slow clients
// with a full buffer miss the message.
func (sm *StreamManager) Broadcast(documentID string, msg []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[documentID]
	if !ok {
		return
	}
	sm.logger.Debug("broadcasting diff", "document_id", documentID, "subscribers", len(subs), "payload_size", len(msg))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: client buffer full, dropping message", "document_id", documentID)
		}
	}
}

// Publish matches session.DiffListener and broadcasts the encoded diff.
func (sm *StreamManager) Publish(_ context.Context, diff *domain.GraphDiff) {
	if diff == nil {
		return
	}
	data, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("failed to encode diff", "document_id", diff.DocumentID, "error", err)
		return
	}
	sm.Broadcast(diff.DocumentID, data)
}
