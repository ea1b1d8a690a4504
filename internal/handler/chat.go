package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/internal/middleware"
	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/service"
	"github.com/finbot-ai/agent-platform/internal/store"
	"github.com/finbot-ai/agent-platform/pkg/logger"
	"github.com/finbot-ai/agent-platform/pkg/metrics"
)

// ChatHandler handles the streaming chat endpoint.
type ChatHandler struct {
	agent  *service.AgentService
	store  store.Store
	logger *logger.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(agent *service.AgentService, st store.Store, log *logger.Logger) *ChatHandler {
	return &ChatHandler{
		agent:  agent,
		store:  st,
		logger: log,
	}
}

// StreamChat handles POST /api/v1/chat/stream. It runs one agent turn and
// streams {type, data} JSON events over SSE. Every started stream ends
// with exactly one message_complete or error event.
func (h *ChatHandler) StreamChat(w http.ResponseWriter, r *http.Request) {
	var req model.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateMessageContent(req.Message); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An unknown supplied conversation ID is rejected before the stream
	// opens; only the omitted-id path creates conversations.
	if req.ConversationID != "" {
		if err := middleware.ValidateConversationID(req.ConversationID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if _, err := h.store.Get(req.ConversationID); err != nil {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.IncrementSSEConnections()
	defer metrics.DecrementSSEConnections()

	if err := h.agent.StreamChat(r.Context(), &req, sse.WriteEvent); err != nil {
		if errors.Is(err, context.Canceled) {
			h.logger.Info("chat stream canceled by client",
				zap.String("conversation_id", req.ConversationID),
			)
			return
		}
		// The loop has already emitted its terminal error event; nothing
		// more can be written to the stream.
		h.logger.Error("chat stream failed",
			zap.String("conversation_id", req.ConversationID),
			zap.Error(err),
		)
	}
}
