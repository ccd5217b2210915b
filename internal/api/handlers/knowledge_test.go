package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSourceStore struct {
	mock.Mock
}

func (m *MockSourceStore) Create(ctx context.Context, s *domain.KnowledgeSource) error {
	args := m.Called(ctx, s)
	return args.Error(0)
}

func (m *MockSourceStore) GetByID(ctx context.Context, id string) (*domain.KnowledgeSource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.KnowledgeSource), args.Error(1)
}

func (m *MockSourceStore) ListByAgent(ctx context.Context, agentID string) ([]*domain.KnowledgeSource, error) {
	args := m.Called(ctx, agentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.KnowledgeSource), args.Error(1)
}

func (m *MockSourceStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context, sourceID string) error {
	args := m.Called(ctx, sourceID)
	return args.Error(0)
}

func newTestSource() *domain.KnowledgeSource {
	now := time.Now().UTC()
	return &domain.KnowledgeSource{
		ID:        "src-123",
		AgentID:   "agent-123",
		Name:      "FAQ",
		Type:      domain.SourceTypeText,
		Content:   "Shipping takes 3-5 business days.",
		Status:    domain.SourceStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestKnowledgeSourceHandler_Create_Success(t *testing.T) {
	sources := new(MockSourceStore)
	agents := new(MockAgentStore)
	ingestor := new(MockIngestor)
	handler := NewKnowledgeSourceHandler(sources, agents, ingestor)

	agents.On("GetByID", mock.Anything, "agent-123").Return(newTestAgent(), nil)
	sources.On("Create", mock.Anything, mock.MatchedBy(func(s *domain.KnowledgeSource) bool {
		return s.AgentID == "agent-123" &&
			s.Name == "FAQ" &&
			s.Type == domain.SourceTypeText &&
			s.Status == domain.SourceStatusPending
	})).Return(nil)

	body := `{"name":"FAQ","type":"text","content":"Shipping takes 3-5 business days."}`
	req := requestWithURLParam(http.MethodPost, "/agents/agent-123/sources", []byte(body), "agentID", "agent-123")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "pending", data["status"])
	sources.AssertExpectations(t)
}

func TestKnowledgeSourceHandler_Create_AgentNotFound(t *testing.T) {
	sources := new(MockSourceStore)
	agents := new(MockAgentStore)
	handler := NewKnowledgeSourceHandler(sources, agents, new(MockIngestor))

	agents.On("GetByID", mock.Anything, "agent-999").Return(nil, domain.ErrAgentNotFound)

	body := `{"name":"FAQ","type":"text","content":"x"}`
	req := requestWithURLParam(http.MethodPost, "/agents/agent-999/sources", []byte(body), "agentID", "agent-999")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	sources.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestKnowledgeSourceHandler_Create_InvalidType(t *testing.T) {
	sources := new(MockSourceStore)
	agents := new(MockAgentStore)
	handler := NewKnowledgeSourceHandler(sources, agents, new(MockIngestor))

	agents.On("GetByID", mock.Anything, "agent-123").Return(newTestAgent(), nil)

	body := `{"name":"FAQ","type":"carrier-pigeon","content":"x"}`
	req := requestWithURLParam(http.MethodPost, "/agents/agent-123/sources", []byte(body), "agentID", "agent-123")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKnowledgeSourceHandler_Create_EmptyContent(t *testing.T) {
	sources := new(MockSourceStore)
	agents := new(MockAgentStore)
	handler := NewKnowledgeSourceHandler(sources, agents, new(MockIngestor))

	agents.On("GetByID", mock.Anything, "agent-123").Return(newTestAgent(), nil)

	// A text source with no content could never be ingested; reject it
	// instead of queueing it as pending.
	body := `{"name":"FAQ","type":"text","content":""}`
	req := requestWithURLParam(http.MethodPost, "/agents/agent-123/sources", []byte(body), "agentID", "agent-123")
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	sources.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestKnowledgeSourceHandler_Ingest_Success(t *testing.T) {
	sources := new(MockSourceStore)
	ingestor := new(MockIngestor)
	handler := NewKnowledgeSourceHandler(sources, new(MockAgentStore), ingestor)

	ingested := newTestSource()
	ingested.Status = domain.SourceStatusCompleted
	ingested.ChunkCount = 2

	ingestor.On("Ingest", mock.Anything, "src-123").Return(nil)
	sources.On("GetByID", mock.Anything, "src-123").Return(ingested, nil)

	req := requestWithURLParam(http.MethodPost, "/sources/src-123/ingest", nil, "id", "src-123")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "completed", data["status"])
	assert.Equal(t, float64(2), data["chunk_count"])
	ingestor.AssertExpectations(t)
}

func TestKnowledgeSourceHandler_Ingest_EmptyContent(t *testing.T) {
	sources := new(MockSourceStore)
	ingestor := new(MockIngestor)
	handler := NewKnowledgeSourceHandler(sources, new(MockAgentStore), ingestor)

	ingestor.On("Ingest", mock.Anything, "src-123").Return(domain.ErrEmptySourceContent)

	req := requestWithURLParam(http.MethodPost, "/sources/src-123/ingest", nil, "id", "src-123")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	sources.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestKnowledgeSourceHandler_ListByAgent(t *testing.T) {
	sources := new(MockSourceStore)
	handler := NewKnowledgeSourceHandler(sources, new(MockAgentStore), new(MockIngestor))

	sources.On("ListByAgent", mock.Anything, "agent-123").
		Return([]*domain.KnowledgeSource{newTestSource()}, nil)

	req := requestWithURLParam(http.MethodGet, "/agents/agent-123/sources", nil, "agentID", "agent-123")
	w := httptest.NewRecorder()

	handler.ListByAgent(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].([]interface{})
	assert.Len(t, data, 1)
}

type MockArchiveRemover struct {
	mock.Mock
}

func (m *MockArchiveRemover) DeleteArchive(ctx context.Context, agentID, sourceID string) error {
	args := m.Called(ctx, agentID, sourceID)
	return args.Error(0)
}

func TestKnowledgeSourceHandler_Delete_RemovesArchive(t *testing.T) {
	sources := new(MockSourceStore)
	archiver := new(MockArchiveRemover)
	handler := NewKnowledgeSourceHandler(sources, new(MockAgentStore), new(MockIngestor)).
		WithArchiver(archiver)

	sources.On("GetByID", mock.Anything, "src-123").Return(newTestSource(), nil)
	sources.On("Delete", mock.Anything, "src-123").Return(nil)
	archiver.On("DeleteArchive", mock.Anything, "agent-123", "src-123").Return(nil)

	req := requestWithURLParam(http.MethodDelete, "/sources/src-123", nil, "id", "src-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	archiver.AssertExpectations(t)
}

func TestKnowledgeSourceHandler_Delete_NotFound(t *testing.T) {
	sources := new(MockSourceStore)
	handler := NewKnowledgeSourceHandler(sources, new(MockAgentStore), new(MockIngestor))

	sources.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrSourceNotFound)

	req := requestWithURLParam(http.MethodDelete, "/sources/missing", nil, "id", "missing")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	sources.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
