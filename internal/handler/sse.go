package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/finbot-ai/agent-platform/internal/model"
)

// sseWriter serializes stream events onto an SSE response. Each event is
// written as one `data:` record and flushed immediately; ordering follows
// write order.
type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// newSSEWriter prepares w for event streaming. It fails when the
// underlying writer cannot flush, since unflushed events would defeat the
// latency contract.
func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	return &sseWriter{w: w, flusher: flusher}, nil
}

// WriteEvent writes one event and flushes it to the client.
func (s *sseWriter) WriteEvent(event model.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal stream event: %w", err)
	}

	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
