package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// handleSSE streams engine events to the client as Server-Sent Events until
// the client disconnects or the bus closes.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if s.bus == nil {
		respondError(w, http.StatusServiceUnavailable, "event bus not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	ctx := r.Context()
	eventCh := s.bus.Subscribe()
	defer s.bus.Unsubscribe(eventCh)

	s.logger.Info("event stream client connected", "remote_addr", r.RemoteAddr)
	s.sendSSE(w, flusher, "connected", map[string]string{"status": "connected"})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("event stream client disconnected", "remote_addr", r.RemoteAddr)
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			s.sendSSE(w, flusher, event.EventType(), event)
		}
	}
}

// sendSSE writes one event in SSE wire format.
func (s *Server) sendSSE(w http.ResponseWriter, flusher http.Flusher, eventType string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		s.logger.Warn("event marshal failed", "type", eventType, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\n", eventType)
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}
