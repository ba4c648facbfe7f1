package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aretw0/botcanvas/pkg/domain"
	"github.com/aretw0/botcanvas/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// SubscribeDocumentEvents handles the GET /documents/{id}/events request (SSE).
// Every committed edit is sent as a "diff" event carrying the GraphDiff.
func (s *Server) SubscribeDocumentEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Get(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}

	flusher, ok := startStream(w)
	if !ok {
		return
	}

	// Parse 'watch' filter
	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()
	s.logger.Info("SSE: subscribing to document updates", "document_id", id)

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "document_id", id)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !matchesWatch(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "event: diff\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// SubscribeTemplateEvents handles the GET /templates/events request (SSE).
// A "reload" event is sent whenever the template library changes on disk.
func (s *Server) SubscribeTemplateEvents(w http.ResponseWriter, r *http.Request) {
	watchable, ok := s.Templates.(ports.Watchable)
	if !ok {
		writeError(w, http.StatusNotFound, "template library does not support watching", nil)
		return
	}
	events, err := watchable.Watch(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("watch error: %v", err), nil)
		return
	}

	flusher, ok := startStream(w)
	if !ok {
		return
	}
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: templates\n\n")
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter) (http.Flusher, bool) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported", nil)
		return nil, false
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	return flusher, true
}

// matchesWatch keeps a diff when it touches any watched part of the graph.
// Messages that cannot be decoded are always kept.
func matchesWatch(msg []byte, watchList []string) bool {
	var diff domain.GraphDiff
	if err := json.Unmarshal(msg, &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "nodes":
			if len(diff.AddedNodes)+len(diff.UpdatedNodes)+len(diff.RemovedNodes) > 0 {
				return true
			}
		case "edges":
			if len(diff.AddedEdges)+len(diff.RemovedEdges) > 0 {
				return true
			}
		}
	}
	return false
}
