package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cloo-solutions/agentchat/internal/api"
	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type AgentStore interface {
	Create(ctx context.Context, a *domain.Agent) error
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
	List(ctx context.Context) ([]*domain.Agent, error)
	Update(ctx context.Context, a *domain.Agent) error
	Delete(ctx context.Context, id string) error
}

type AgentHandler struct {
	store        AgentStore
	defaultModel string
}

func NewAgentHandler(store AgentStore, defaultModel string) *AgentHandler {
	return &AgentHandler{store: store, defaultModel: defaultModel}
}

type CreateAgentRequest struct {
	Name               string   `json:"name"`
	Tone               string   `json:"tone"`
	CustomInstructions string   `json:"custom_instructions"`
	Model              string   `json:"model"`
	Temperature        *float32 `json:"temperature"`
	MaxTokens          *int     `json:"max_tokens"`
}

type UpdateAgentRequest struct {
	Name               string   `json:"name"`
	Tone               string   `json:"tone"`
	CustomInstructions string   `json:"custom_instructions"`
	Model              string   `json:"model"`
	Temperature        *float32 `json:"temperature"`
	MaxTokens          *int     `json:"max_tokens"`
}

type AgentResponse struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Tone               string  `json:"tone"`
	CustomInstructions string  `json:"custom_instructions,omitempty"`
	Model              string  `json:"model"`
	Temperature        float32 `json:"temperature"`
	MaxTokens          int     `json:"max_tokens"`
	CreatedAt          string  `json:"created_at"`
	UpdatedAt          string  `json:"updated_at"`
}

func agentToResponse(a *domain.Agent) *AgentResponse {
	return &AgentResponse{
		ID:                 a.ID,
		Name:               a.Name,
		Tone:               string(a.Tone),
		CustomInstructions: a.CustomInstructions,
		Model:              a.Model,
		Temperature:        a.Temperature,
		MaxTokens:          a.MaxTokens,
		CreatedAt:          a.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:          a.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *AgentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now().UTC()
	agent := &domain.Agent{
		ID:                 uuid.NewString(),
		Name:               req.Name,
		Tone:               domain.AgentTone(req.Tone),
		CustomInstructions: req.CustomInstructions,
		Model:              req.Model,
		Temperature:        0.7,
		MaxTokens:          500,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if agent.Model == "" {
		agent.Model = h.defaultModel
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = *req.MaxTokens
	}

	if err := domain.ValidateAgent(agent); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.store.Create(r.Context(), agent); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, agentToResponse(agent))
}

func (h *AgentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	agent, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, agentToResponse(agent))
}

func (h *AgentHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.List(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*AgentResponse, 0, len(agents))
	for _, a := range agents {
		responses = append(responses, agentToResponse(a))
	}

	api.Success(w, http.StatusOK, responses)
}

func (h *AgentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	var req UpdateAgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.Tone != "" {
		agent.Tone = domain.AgentTone(req.Tone)
	}
	if req.CustomInstructions != "" {
		agent.CustomInstructions = req.CustomInstructions
	}
	if req.Model != "" {
		agent.Model = req.Model
	}
	if req.Temperature != nil {
		agent.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		agent.MaxTokens = *req.MaxTokens
	}

	if err := domain.ValidateAgent(agent); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.store.Update(r.Context(), agent); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, agentToResponse(agent))
}

func (h *AgentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusNoContent, nil)
}
