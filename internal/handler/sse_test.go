package handler

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/finbot-ai/agent-platform/internal/model"
)

func TestSSEWriterHeaders(t *testing.T) {
	rec := httptest.NewRecorder()

	if _, err := newSSEWriter(rec); err != nil {
		t.Fatalf("newSSEWriter() error = %v", err)
	}

	headers := map[string]string{
		"Content-Type":      "text/event-stream",
		"Cache-Control":     "no-cache",
		"Connection":        "keep-alive",
		"X-Accel-Buffering": "no",
	}
	for key, want := range headers {
		if got := rec.Header().Get(key); got != want {
			t.Errorf("header %s = %q, want %q", key, got, want)
		}
	}
}

func TestSSEWriterFraming(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, err := newSSEWriter(rec)
	if err != nil {
		t.Fatalf("newSSEWriter() error = %v", err)
	}

	err = sse.WriteEvent(model.StreamEvent{
		Type: model.EventTextDelta,
		Data: model.TextDeltaData{Text: "hello", ConversationID: "c1"},
	})
	if err != nil {
		t.Fatalf("WriteEvent() error = %v", err)
	}

	body := rec.Body.String()
	want := `data: {"type":"text_delta","data":{"text":"hello","conversation_id":"c1"}}` + "\n\n"
	if body != want {
		t.Errorf("body = %q, want %q", body, want)
	}
	if !rec.Flushed {
		t.Error("WriteEvent() should flush the response")
	}
}

func TestSSEWriterMultipleEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	sse, _ := newSSEWriter(rec)

	events := []model.StreamEvent{
		{Type: model.EventStreamStart, Data: model.StreamStartData{ConversationID: "c1", MessageCount: 1, IsNewConversation: true}},
		{Type: model.EventMessageStart, Data: model.MessageStartData{ConversationID: "c1", Iteration: 1}},
		{Type: model.EventMessageComplete, Data: model.MessageCompleteData{ConversationID: "c1", IterationsUsed: 1, TotalMessages: 2}},
	}
	for _, e := range events {
		if err := sse.WriteEvent(e); err != nil {
			t.Fatalf("WriteEvent(%v) error = %v", e.Type, err)
		}
	}

	records := strings.Count(rec.Body.String(), "data: ")
	if records != len(events) {
		t.Errorf("wrote %d records, want %d", records, len(events))
	}
}
