// Package model defines data structures for the agent platform.
package model

import (
	"time"
)

// Role represents the role of a message sender.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ContentBlock is one element of an assistant message's content. Assistant
// turns are an ordered mix of text blocks and tool_use blocks.
type ContentBlock struct {
	Type  string         `json:"type"`
	Text  string         `json:"text,omitempty"`
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
}

const (
	BlockTypeText    = "text"
	BlockTypeToolUse = "tool_use"
)

// ToolCall is a model-issued request to invoke a named tool.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult is the outcome of executing a single tool call.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Result     any    `json:"result"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// Message represents one entry in a conversation transcript.
type Message struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`

	// Content holds plain text for user and tool messages. Assistant
	// messages carry Blocks instead; Content then holds the concatenated
	// text for convenience.
	Content string         `json:"content"`
	Blocks  []ContentBlock `json:"blocks,omitempty"`

	// ToolCalls is set on assistant messages that requested tool use.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message back to the call that produced it.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// LLM metadata, set on assistant messages only.
	Model      *string `json:"model,omitempty"`
	TokensIn   *int    `json:"tokens_in,omitempty"`
	TokensOut  *int    `json:"tokens_out,omitempty"`
	StopReason *string `json:"stop_reason,omitempty"`
	LatencyMs  *int64  `json:"latency_ms,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	Message        string  `json:"message"`
	ConversationID string  `json:"conversation_id,omitempty"`
	MaxTokens      int     `json:"max_tokens,omitempty"`
	Temperature    float64 `json:"temperature,omitempty"`
	SystemPrompt   string  `json:"system_prompt,omitempty"`
	IncludeTools   *bool   `json:"include_tools,omitempty"`
}

// Tools reports whether tool calling is enabled for the request. Defaults
// to true when the field is omitted.
func (r *ChatRequest) Tools() bool {
	return r.IncludeTools == nil || *r.IncludeTools
}
