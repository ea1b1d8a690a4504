package model

import (
	"time"
)

// Conversation represents a conversation transcript.
type Conversation struct {
	ID        string         `json:"conversation_id"`
	Messages  []Message      `json:"messages"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Statistics aggregates per-conversation message counts by role.
type Statistics struct {
	TotalMessages     int `json:"total_messages"`
	UserMessages      int `json:"user_messages"`
	AssistantMessages int `json:"assistant_messages"`
	ToolMessages      int `json:"tool_messages"`
	TotalToolCalls    int `json:"total_tool_calls"`
}

// Stats computes role and tool-call counts over the transcript.
func (c *Conversation) Stats() Statistics {
	var s Statistics
	s.TotalMessages = len(c.Messages)
	for _, msg := range c.Messages {
		switch msg.Role {
		case RoleUser:
			s.UserMessages++
		case RoleAssistant:
			s.AssistantMessages++
		case RoleTool:
			s.ToolMessages++
		}
		s.TotalToolCalls += len(msg.ToolCalls)
	}
	return s
}

// GetConversationResponse is the response for transcript retrieval.
type GetConversationResponse struct {
	Success      bool          `json:"success"`
	Conversation *Conversation `json:"conversation"`
	Message      string        `json:"message"`
}

// ListConversationsResponse is the response for listing conversation IDs.
type ListConversationsResponse struct {
	Success       bool     `json:"success"`
	Conversations []string `json:"conversations"`
	Count         int      `json:"count"`
}

// DeleteConversationResponse is the response for conversation removal.
type DeleteConversationResponse struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

// ConversationSummaryResponse is the response for the summary endpoint.
type ConversationSummaryResponse struct {
	Success        bool           `json:"success"`
	ConversationID string         `json:"conversation_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	Statistics     Statistics     `json:"statistics"`
	Metadata       map[string]any `json:"metadata"`
}
