package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/cloo-solutions/agentchat/internal/api"
	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type SourceStore interface {
	Create(ctx context.Context, s *domain.KnowledgeSource) error
	GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error)
	ListByAgent(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error)
	Delete(ctx context.Context, id string) error
}

type Ingestor interface {
	Ingest(ctx context.Context, sourceID string) error
}

// ArchiveRemover cleans up a source's archived raw document on deletion.
type ArchiveRemover interface {
	DeleteArchive(ctx context.Context, agentID, sourceID string) error
}

type KnowledgeSourceHandler struct {
	sources  SourceStore
	agents   AgentStore
	ingestor Ingestor
	archiver ArchiveRemover
}

func NewKnowledgeSourceHandler(sources SourceStore, agents AgentStore, ingestor Ingestor) *KnowledgeSourceHandler {
	return &KnowledgeSourceHandler{sources: sources, agents: agents, ingestor: ingestor}
}

// WithArchiver enables archive cleanup when sources are deleted.
func (h *KnowledgeSourceHandler) WithArchiver(archiver ArchiveRemover) *KnowledgeSourceHandler {
	h.archiver = archiver
	return h
}

type CreateSourceRequest struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

type SourceResponse struct {
	ID         string `json:"id"`
	AgentID    string `json:"agent_id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	URL        string `json:"url,omitempty"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func sourceToResponse(s *domain.KnowledgeSource) *SourceResponse {
	return &SourceResponse{
		ID:         s.ID,
		AgentID:    s.AgentID,
		Name:       s.Name,
		Type:       string(s.Type),
		URL:        s.URL,
		Status:     string(s.Status),
		Error:      s.Error,
		ChunkCount: s.ChunkCount,
		CreatedAt:  s.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  s.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *KnowledgeSourceHandler) Create(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agentID is required")
		return
	}

	if _, err := h.agents.GetByID(r.Context(), agentID); err != nil {
		api.HandleError(w, err)
		return
	}

	var req CreateSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" {
		api.Error(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Type == "" {
		api.Error(w, http.StatusBadRequest, "type is required")
		return
	}

	now := time.Now().UTC()
	source := &domain.KnowledgeSource{
		ID:        uuid.NewString(),
		AgentID:   agentID,
		Name:      req.Name,
		Type:      domain.SourceType(req.Type),
		URL:       req.URL,
		Content:   req.Content,
		Status:    domain.SourceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := domain.ValidateKnowledgeSource(source); err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.sources.Create(r.Context(), source); err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, sourceToResponse(source))
}

func (h *KnowledgeSourceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	source, err := h.sources.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(source))
}

func (h *KnowledgeSourceHandler) ListByAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if agentID == "" {
		api.Error(w, http.StatusBadRequest, "agentID is required")
		return
	}

	sources, err := h.sources.ListByAgent(r.Context(), agentID)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	responses := make([]*SourceResponse, 0, len(sources))
	for _, s := range sources {
		responses = append(responses, sourceToResponse(s))
	}

	api.Success(w, http.StatusOK, responses)
}

// Ingest runs the ingestion pipeline for a source and returns its final state.
func (h *KnowledgeSourceHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.ingestor.Ingest(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	source, err := h.sources.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, sourceToResponse(source))
}

func (h *KnowledgeSourceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	source, err := h.sources.GetByID(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	if err := h.sources.Delete(r.Context(), id); err != nil {
		api.HandleError(w, err)
		return
	}

	// Archive cleanup is best effort; the source row is already gone.
	if h.archiver != nil {
		if err := h.archiver.DeleteArchive(r.Context(), source.AgentID, source.ID); err != nil {
			log.Printf("knowledge: archive cleanup for source %s failed: %v", source.ID, err)
		}
	}

	api.JSON(w, http.StatusNoContent, nil)
}
