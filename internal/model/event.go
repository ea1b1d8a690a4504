package model

// EventType discriminates stream events emitted during one chat turn.
type EventType string

const (
	EventStreamStart     EventType = "stream_start"
	EventMessageStart    EventType = "message_start"
	EventTextDelta       EventType = "text_delta"
	EventToolCall        EventType = "tool_call"
	EventToolResult      EventType = "tool_result"
	EventMessageComplete EventType = "message_complete"
	EventError           EventType = "error"
)

// StreamEvent is the {type, data} envelope written to the SSE transport.
// Data is one of the typed payloads below; events are serialized only at
// the transport boundary.
type StreamEvent struct {
	Type EventType `json:"type"`
	Data any       `json:"data"`
}

// StreamStartData opens a turn and hands the client its conversation ID.
type StreamStartData struct {
	ConversationID    string `json:"conversation_id"`
	MessageCount      int    `json:"message_count"`
	IsNewConversation bool   `json:"is_new_conversation"`
}

// MessageStartData marks the start of one model iteration.
type MessageStartData struct {
	ConversationID string `json:"conversation_id"`
	Iteration      int    `json:"iteration"`
}

// TextDeltaData carries one incremental text fragment.
type TextDeltaData struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
}

// ToolCallData announces a tool invocation.
type ToolCallData struct {
	ToolName       string `json:"tool_name"`
	ToolID         string `json:"tool_id"`
	ConversationID string `json:"conversation_id"`
}

// ToolResultData carries the outcome of a tool invocation.
type ToolResultData struct {
	ToolName       string `json:"tool_name"`
	ToolID         string `json:"tool_id"`
	Success        bool   `json:"success"`
	Result         any    `json:"result"`
	ConversationID string `json:"conversation_id"`
}

// MessageCompleteData closes a successful turn.
type MessageCompleteData struct {
	ConversationID string `json:"conversation_id"`
	IterationsUsed int    `json:"iterations_used"`
	TotalMessages  int    `json:"total_messages"`
	Note           string `json:"note,omitempty"`
}

// ErrorData closes a failed turn.
type ErrorData struct {
	Error          string `json:"error"`
	ConversationID string `json:"conversation_id"`
	Iteration      int    `json:"iteration,omitempty"`
}
