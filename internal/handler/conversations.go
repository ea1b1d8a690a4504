// Package handler provides HTTP handlers for the API.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/finbot-ai/agent-platform/internal/middleware"
	"github.com/finbot-ai/agent-platform/internal/model"
	"github.com/finbot-ai/agent-platform/internal/store"
	"github.com/finbot-ai/agent-platform/pkg/logger"
)

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	store  store.Store
	logger *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(st store.Store, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:  st,
		logger: log,
	}
}

// Get handles GET /api/v1/chat/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.Get(conversationID)
	if err != nil {
		h.notFound(w, conversationID, err)
		return
	}

	writeJSON(w, http.StatusOK, model.GetConversationResponse{
		Success:      true,
		Conversation: conv,
		Message:      "Conversation retrieved successfully",
	})
}

// List handles GET /api/v1/chat/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	ids := h.store.ListIDs()
	writeJSON(w, http.StatusOK, model.ListConversationsResponse{
		Success:       true,
		Conversations: ids,
		Count:         len(ids),
	})
}

// Delete handles DELETE /api/v1/chat/conversations/{id}
func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.store.Delete(conversationID); err != nil {
		h.notFound(w, conversationID, err)
		return
	}

	h.logger.Info("conversation deleted", zap.String("conversation_id", conversationID))
	writeJSON(w, http.StatusOK, model.DeleteConversationResponse{
		Success:        true,
		Message:        fmt.Sprintf("Conversation %s cleared successfully", conversationID),
		ConversationID: conversationID,
	})
}

// Summary handles GET /api/v1/chat/conversations/{id}/summary
func (h *ConversationHandler) Summary(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	conv, err := h.store.Get(conversationID)
	if err != nil {
		h.notFound(w, conversationID, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ConversationSummaryResponse{
		Success:        true,
		ConversationID: conversationID,
		CreatedAt:      conv.CreatedAt,
		UpdatedAt:      conv.UpdatedAt,
		Statistics:     conv.Stats(),
		Metadata:       conv.Metadata,
	})
}

func (h *ConversationHandler) notFound(w http.ResponseWriter, conversationID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("conversation %s not found", conversationID))
		return
	}
	h.logger.Error("conversation lookup failed",
		zap.String("conversation_id", conversationID),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "failed to access conversation")
}
