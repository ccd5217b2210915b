package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/agentchat/internal/api"
	"github.com/cloo-solutions/agentchat/internal/service"
	"github.com/go-chi/chi/v5"
)

type ChatService interface {
	HandleTurn(ctx context.Context, input service.ChatInput) (*service.ChatOutput, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
	SessionID      string `json:"session_id"`
}

type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
}

func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agentID is required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	out, err := h.svc.HandleTurn(r.Context(), service.ChatInput{
		AgentID:        agentID,
		ConversationID: req.ConversationID,
		SessionID:      req.SessionID,
		Message:        req.Message,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, ChatResponse{
		Response:       out.Response,
		ConversationID: out.ConversationID,
		MessageID:      out.MessageID,
	})
}
