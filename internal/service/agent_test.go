package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/finbot-ai/agent-platform/internal/llm"
	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/store"
	"github.com/finbot-ai/agent-platform/internal/tool"
	"github.com/finbot-ai/agent-platform/pkg/logger"
)

// scriptedTurn is one model response the fake client will play back.
type scriptedTurn struct {
	deltas []string
	result llm.TurnResult
	err    error
}

type fakeClient struct {
	turns []scriptedTurn
	calls int
	seen  [][]model.Message
}

func (f *fakeClient) StreamTurn(ctx context.Context, req *llm.TurnRequest, callback llm.StreamCallback) (*llm.TurnResult, error) {
	f.seen = append(f.seen, req.Messages)
	if f.calls >= len(f.turns) {
		// Loop ran longer than the script; keep requesting tools so the
		// iteration cap test terminates.
		f.calls++
		return &llm.TurnResult{
			ToolCalls:  []model.ToolCall{{ID: "loop", Name: "calculator", Input: map[string]any{"expression": "1 + 1"}}},
			StopReason: "tool_use",
			Model:      "fake-model",
		}, nil
	}
	turn := f.turns[f.calls]
	f.calls++
	if turn.err != nil {
		return nil, turn.err
	}
	for i, text := range turn.deltas {
		if err := callback(text, i); err != nil {
			return nil, err
		}
	}
	result := turn.result
	if result.Model == "" {
		result.Model = "fake-model"
	}
	return &result, nil
}

func (f *fakeClient) Name() string { return "fake" }

func (f *fakeClient) Models() []string { return []string{"fake-model"} }

type eventRecorder struct {
	events []model.StreamEvent
}

func (r *eventRecorder) emit(event model.StreamEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) types() []model.EventType {
	types := make([]model.EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

func newTestAgent(client llm.Client, maxIterations int) (*AgentService, store.Store) {
	st := store.NewMemoryStore()
	registry := tool.NewRegistry()
	_ = registry.Register(tool.NewCalculator())
	return NewAgentService(st, registry, client, maxIterations, logger.NewNop()), st
}

func TestStreamChatPlainTextTurn(t *testing.T) {
	client := &fakeClient{turns: []scriptedTurn{
		{
			deltas: []string{"Hello", " there"},
			result: llm.TurnResult{Text: "Hello there", StopReason: "end_turn"},
		},
	}}
	agent, st := newTestAgent(client, 8)
	rec := &eventRecorder{}

	err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "hi"}, rec.emit)
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	want := []model.EventType{
		model.EventStreamStart,
		model.EventMessageStart,
		model.EventTextDelta,
		model.EventTextDelta,
		model.EventMessageComplete,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v (full sequence %v)", i, got[i], want[i], got)
		}
	}

	start, ok := rec.events[0].Data.(model.StreamStartData)
	if !ok {
		t.Fatalf("stream_start data is %T", rec.events[0].Data)
	}
	if !start.IsNewConversation {
		t.Error("stream_start should flag a new conversation")
	}
	if start.ConversationID == "" {
		t.Fatal("stream_start should carry the conversation id")
	}

	complete, ok := rec.events[len(rec.events)-1].Data.(model.MessageCompleteData)
	if !ok {
		t.Fatalf("message_complete data is %T", rec.events[len(rec.events)-1].Data)
	}
	if complete.IterationsUsed != 1 {
		t.Errorf("iterations_used = %d, want 1", complete.IterationsUsed)
	}
	if complete.TotalMessages != 2 {
		t.Errorf("total_messages = %d, want 2", complete.TotalMessages)
	}
	if complete.Note == "" {
		t.Error("message_complete should carry the continuation note")
	}

	conv, err := st.Get(start.ConversationID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("transcript has %d messages, want 2", len(conv.Messages))
	}
	if conv.Messages[0].Role != model.RoleUser || conv.Messages[1].Role != model.RoleAssistant {
		t.Errorf("transcript roles = %v, %v; want user, assistant", conv.Messages[0].Role, conv.Messages[1].Role)
	}
	if conv.Messages[1].Content != "Hello there" {
		t.Errorf("assistant content = %q, want accumulated text", conv.Messages[1].Content)
	}
}

func TestStreamChatToolCallingTurn(t *testing.T) {
	client := &fakeClient{turns: []scriptedTurn{
		{
			result: llm.TurnResult{
				ToolCalls: []model.ToolCall{
					{ID: "call_1", Name: "calculator", Input: map[string]any{"expression": "(100 + 50) / 3"}},
				},
				StopReason: "tool_use",
			},
		},
		{
			deltas: []string{"The answer is 50."},
			result: llm.TurnResult{Text: "The answer is 50.", StopReason: "end_turn"},
		},
	}}
	agent, st := newTestAgent(client, 8)
	rec := &eventRecorder{}

	err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "what is (100 + 50) / 3?"}, rec.emit)
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	want := []model.EventType{
		model.EventStreamStart,
		model.EventMessageStart,
		model.EventToolCall,
		model.EventToolResult,
		model.EventMessageStart,
		model.EventTextDelta,
		model.EventMessageComplete,
	}
	got := rec.types()
	if len(got) != len(want) {
		t.Fatalf("event types = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v (full sequence %v)", i, got[i], want[i], got)
		}
	}

	call, ok := rec.events[2].Data.(model.ToolCallData)
	if !ok {
		t.Fatalf("tool_call data is %T", rec.events[2].Data)
	}
	result, ok := rec.events[3].Data.(model.ToolResultData)
	if !ok {
		t.Fatalf("tool_result data is %T", rec.events[3].Data)
	}
	if call.ToolID != "call_1" || result.ToolID != "call_1" {
		t.Errorf("tool id pairing: call=%q result=%q, want call_1 for both", call.ToolID, result.ToolID)
	}
	if call.ToolName != "calculator" || result.ToolName != "calculator" {
		t.Errorf("tool name pairing: call=%q result=%q", call.ToolName, result.ToolName)
	}
	if !result.Success {
		t.Error("tool_result should be successful")
	}

	complete := rec.events[len(rec.events)-1].Data.(model.MessageCompleteData)
	if complete.IterationsUsed != 2 {
		t.Errorf("iterations_used = %d, want 2", complete.IterationsUsed)
	}

	// Transcript order: user, assistant(tool request), tool result, final
	// assistant answer.
	start := rec.events[0].Data.(model.StreamStartData)
	conv, _ := st.Get(start.ConversationID)
	wantRoles := []model.Role{model.RoleUser, model.RoleAssistant, model.RoleTool, model.RoleAssistant}
	if len(conv.Messages) != len(wantRoles) {
		t.Fatalf("transcript has %d messages, want %d", len(conv.Messages), len(wantRoles))
	}
	for i, role := range wantRoles {
		if conv.Messages[i].Role != role {
			t.Errorf("transcript[%d].Role = %v, want %v", i, conv.Messages[i].Role, role)
		}
	}
	if conv.Messages[2].ToolCallID != "call_1" {
		t.Errorf("tool message ToolCallID = %q, want call_1", conv.Messages[2].ToolCallID)
	}
	if !strings.Contains(conv.Messages[2].Content, "= 50") {
		t.Errorf("tool message content %q should carry the formatted result", conv.Messages[2].Content)
	}

	// The second model call must see the tool result in its context.
	if len(client.seen) != 2 {
		t.Fatalf("model called %d times, want 2", len(client.seen))
	}
	second := client.seen[1]
	if second[len(second)-1].Role != model.RoleTool {
		t.Errorf("last message in second model call = %v, want tool", second[len(second)-1].Role)
	}
}

func TestStreamChatContinuesExistingConversation(t *testing.T) {
	client := &fakeClient{turns: []scriptedTurn{
		{result: llm.TurnResult{Text: "first", StopReason: "end_turn"}},
		{result: llm.TurnResult{Text: "second", StopReason: "end_turn"}},
	}}
	agent, st := newTestAgent(client, 8)

	first := &eventRecorder{}
	if err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "one"}, first.emit); err != nil {
		t.Fatalf("first StreamChat() error = %v", err)
	}
	convID := first.events[0].Data.(model.StreamStartData).ConversationID

	second := &eventRecorder{}
	err := agent.StreamChat(context.Background(), &model.ChatRequest{
		Message:        "two",
		ConversationID: convID,
	}, second.emit)
	if err != nil {
		t.Fatalf("second StreamChat() error = %v", err)
	}

	start := second.events[0].Data.(model.StreamStartData)
	if start.IsNewConversation {
		t.Error("second turn should not report a new conversation")
	}
	if start.ConversationID != convID {
		t.Errorf("conversation id = %q, want %q", start.ConversationID, convID)
	}
	if start.MessageCount != 3 {
		t.Errorf("message_count = %d, want 3 (two prior plus new user message)", start.MessageCount)
	}

	conv, _ := st.Get(convID)
	if len(conv.Messages) != 4 {
		t.Errorf("transcript has %d messages, want 4", len(conv.Messages))
	}
}

func TestStreamChatUnknownConversation(t *testing.T) {
	agent, _ := newTestAgent(&fakeClient{}, 8)
	rec := &eventRecorder{}

	err := agent.StreamChat(context.Background(), &model.ChatRequest{
		Message:        "hi",
		ConversationID: "does-not-exist",
	}, rec.emit)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("StreamChat() error = %v, want ErrNotFound", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("no events should be emitted before the conversation loads, got %v", rec.types())
	}
}

func TestStreamChatMaxIterations(t *testing.T) {
	// An empty script makes the fake request a tool on every turn.
	client := &fakeClient{}
	agent, _ := newTestAgent(client, 2)
	rec := &eventRecorder{}

	err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "loop forever"}, rec.emit)
	if !errors.Is(err, ErrMaxIterations) {
		t.Fatalf("StreamChat() error = %v, want ErrMaxIterations", err)
	}

	last := rec.events[len(rec.events)-1]
	if last.Type != model.EventError {
		t.Fatalf("last event = %v, want error", last.Type)
	}
	data := last.Data.(model.ErrorData)
	if data.Iteration != 2 {
		t.Errorf("error iteration = %d, want 2", data.Iteration)
	}
	if client.calls != 2 {
		t.Errorf("model called %d times, want 2", client.calls)
	}
}

func TestStreamChatModelFailure(t *testing.T) {
	modelErr := errors.New("upstream 500")
	client := &fakeClient{turns: []scriptedTurn{{err: modelErr}}}
	agent, st := newTestAgent(client, 8)
	rec := &eventRecorder{}

	err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "hi"}, rec.emit)
	if !errors.Is(err, modelErr) {
		t.Fatalf("StreamChat() error = %v, want wrapped model error", err)
	}

	last := rec.events[len(rec.events)-1]
	if last.Type != model.EventError {
		t.Fatalf("last event = %v, want error", last.Type)
	}

	// The failed iteration commits nothing beyond the user message.
	convID := rec.events[0].Data.(model.StreamStartData).ConversationID
	conv, _ := st.Get(convID)
	if len(conv.Messages) != 1 {
		t.Errorf("transcript has %d messages after failure, want 1", len(conv.Messages))
	}
}

func TestStreamChatCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &fakeClient{turns: []scriptedTurn{
		{
			deltas: []string{"partial"},
			result: llm.TurnResult{Text: "partial answer", StopReason: "end_turn"},
		},
	}}
	agent, st := newTestAgent(client, 8)

	var events []model.StreamEvent
	emit := func(event model.StreamEvent) error {
		events = append(events, event)
		if event.Type == model.EventMessageStart {
			cancel()
		}
		return nil
	}

	err := agent.StreamChat(ctx, &model.ChatRequest{Message: "hi"}, emit)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("StreamChat() error = %v, want context.Canceled", err)
	}

	// No error event after cancellation, and no assistant commit.
	for _, e := range events {
		if e.Type == model.EventError || e.Type == model.EventMessageComplete {
			t.Errorf("unexpected terminal event %v after cancellation", e.Type)
		}
	}
	convID := events[0].Data.(model.StreamStartData).ConversationID
	conv, _ := st.Get(convID)
	if len(conv.Messages) != 1 {
		t.Errorf("transcript has %d messages after cancellation, want 1", len(conv.Messages))
	}
}

func TestStreamChatUnknownToolBecomesFailedResult(t *testing.T) {
	client := &fakeClient{turns: []scriptedTurn{
		{
			result: llm.TurnResult{
				ToolCalls: []model.ToolCall{
					{ID: "call_x", Name: "no_such_tool", Input: map[string]any{}},
				},
				StopReason: "tool_use",
			},
		},
		{result: llm.TurnResult{Text: "I could not use that tool.", StopReason: "end_turn"}},
	}}
	agent, _ := newTestAgent(client, 8)
	rec := &eventRecorder{}

	if err := agent.StreamChat(context.Background(), &model.ChatRequest{Message: "hi"}, rec.emit); err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}

	var toolResult *model.ToolResultData
	for _, e := range rec.events {
		if e.Type == model.EventToolResult {
			data := e.Data.(model.ToolResultData)
			toolResult = &data
		}
	}
	if toolResult == nil {
		t.Fatal("expected a tool_result event")
	}
	if toolResult.Success {
		t.Error("unknown tool should produce a failed result")
	}
	if rec.events[len(rec.events)-1].Type != model.EventMessageComplete {
		t.Errorf("loop should continue past a failed tool, last event = %v",
			rec.events[len(rec.events)-1].Type)
	}
}

func TestStreamChatToolsDisabled(t *testing.T) {
	client := &fakeClient{turns: []scriptedTurn{
		{result: llm.TurnResult{Text: "no tools here", StopReason: "end_turn"}},
	}}
	st := store.NewMemoryStore()
	registry := tool.NewRegistry()
	_ = registry.Register(tool.NewCalculator())

	var sawTools bool
	wrapped := &toolSpy{inner: client, sawTools: &sawTools}
	agent := NewAgentService(st, registry, wrapped, 8, logger.NewNop())

	include := false
	rec := &eventRecorder{}
	err := agent.StreamChat(context.Background(), &model.ChatRequest{
		Message:      "hi",
		IncludeTools: &include,
	}, rec.emit)
	if err != nil {
		t.Fatalf("StreamChat() error = %v", err)
	}
	if sawTools {
		t.Error("tool definitions should not be sent when tools are disabled")
	}
}

type toolSpy struct {
	inner    llm.Client
	sawTools *bool
}

func (s *toolSpy) StreamTurn(ctx context.Context, req *llm.TurnRequest, callback llm.StreamCallback) (*llm.TurnResult, error) {
	if len(req.Tools) > 0 {
		*s.sawTools = true
	}
	return s.inner.StreamTurn(ctx, req, callback)
}

func (s *toolSpy) Name() string { return s.inner.Name() }

func (s *toolSpy) Models() []string { return s.inner.Models() }
