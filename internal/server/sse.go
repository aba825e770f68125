package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"blograg/internal/domain"
	"blograg/internal/usecase"
)

// handleQueryStream answers a question as a server-sent-events stream.
// The event order mirrors the engine's callbacks: one "sources" event,
// zero or more "chunk" events, then exactly one of "complete" or "error".
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	question := r.URL.Query().Get("q")
	opts := s.requestOptions(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	emit := func(event string, payload any) {
		data, err := json.Marshal(payload)
		if err != nil {
			s.log.Error("failed to encode stream event", "event", event, "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	s.engine.StreamQuery(r.Context(), question, opts, usecase.StreamSinks{
		OnSources: func(sources []domain.Source) {
			emit("sources", map[string]any{"sources": sources})
		},
		OnChunk: func(delta string) {
			emit("chunk", map[string]any{"text": delta})
		},
		OnComplete: func(tokens int) {
			emit("complete", map[string]any{"tokens_used": tokens})
		},
		OnError: func(err error) {
			s.log.Error("stream failed", "error", err)
			emit("error", errorBody{Error: err.Error()})
		},
	})
}
