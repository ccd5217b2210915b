package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/cloo-solutions/agentchat/internal/api"
	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/pagination"
	"github.com/go-chi/chi/v5"
)

type ConversationStore interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	ListByAgentWithCursor(ctx context.Context, agentID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Conversation], error)
}

type MessageStore interface {
	ListByConversationWithCursor(ctx context.Context, conversationID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Message], error)
}

type ConversationHandler struct {
	conversations ConversationStore
	messages      MessageStore
}

func NewConversationHandler(conversations ConversationStore, messages MessageStore) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, messages: messages}
}

type ConversationResponse struct {
	ID            string `json:"id"`
	AgentID       string `json:"agent_id"`
	SessionID     string `json:"session_id,omitempty"`
	Status        string `json:"status"`
	MessageCount  int    `json:"message_count"`
	LastMessageAt string `json:"last_message_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

type MessageResponse struct {
	ID          string  `json:"id"`
	Role        string  `json:"role"`
	Content     string  `json:"content"`
	Model       string  `json:"model,omitempty"`
	TotalTokens int     `json:"total_tokens"`
	Cost        float64 `json:"cost"`
	UsedContext bool    `json:"used_context"`
	CreatedAt   string  `json:"created_at"`
}

type ConversationListResponse struct {
	Items   []*ConversationResponse `json:"items"`
	Cursor  string                  `json:"cursor,omitempty"`
	HasMore bool                    `json:"has_more"`
}

type MessageListResponse struct {
	Items   []*MessageResponse `json:"items"`
	Cursor  string             `json:"cursor,omitempty"`
	HasMore bool               `json:"has_more"`
}

func conversationToResponse(c *domain.Conversation) *ConversationResponse {
	resp := &ConversationResponse{
		ID:           c.ID,
		AgentID:      c.AgentID,
		SessionID:    c.SessionID,
		Status:       string(c.Status),
		MessageCount: c.MessageCount,
		CreatedAt:    c.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if c.LastMessageAt != nil {
		resp.LastMessageAt = c.LastMessageAt.Format("2006-01-02T15:04:05Z")
	}
	return resp
}

func messageToResponse(m *domain.Message) *MessageResponse {
	return &MessageResponse{
		ID:          m.ID,
		Role:        string(m.Role),
		Content:     m.Content,
		Model:       m.Model,
		TotalTokens: m.TotalTokens,
		Cost:        m.Cost,
		UsedContext: m.UsedContext,
		CreatedAt:   m.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func parsePageParams(r *http.Request) (*pagination.Cursor, int, error) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursor, err := pagination.DecodeCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		return nil, 0, err
	}
	return cursor, limit, nil
}

func (h *ConversationHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agentID is required")
		return
	}

	cursor, limit, err := parsePageParams(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.conversations.ListByAgentWithCursor(r.Context(), agentID, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*ConversationResponse, len(page.Items))
	for i, c := range page.Items {
		responses[i] = conversationToResponse(c)
	}

	api.Success(w, http.StatusOK, ConversationListResponse{
		Items:   responses,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	conv, err := h.conversations.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, conversationToResponse(conv))
}

func (h *ConversationHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if _, err := h.conversations.GetByID(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	cursor, limit, err := parsePageParams(r)
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid cursor")
		return
	}

	page, err := h.messages.ListByConversationWithCursor(r.Context(), id, cursor, limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*MessageResponse, len(page.Items))
	for i, m := range page.Items {
		responses[i] = messageToResponse(m)
	}

	api.Success(w, http.StatusOK, MessageListResponse{
		Items:   responses,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}
