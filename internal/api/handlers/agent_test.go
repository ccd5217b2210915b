package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAgentStore struct {
	mock.Mock
}

func (m *MockAgentStore) Create(ctx context.Context, a *domain.Agent) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgentStore) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

func (m *MockAgentStore) List(ctx context.Context) ([]*domain.Agent, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Agent), args.Error(1)
}

func (m *MockAgentStore) Update(ctx context.Context, a *domain.Agent) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockAgentStore) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newTestAgent() *domain.Agent {
	now := time.Now().UTC()
	return &domain.Agent{
		ID:          "agent-123",
		Name:        "Support Bot",
		Tone:        domain.AgentToneFriendly,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   500,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func requestWithURLParam(method, url string, body []byte, key, value string) *http.Request {
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestAgentHandler_Create_Success(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	store.On("Create", mock.Anything, mock.MatchedBy(func(a *domain.Agent) bool {
		return a.Name == "Support Bot" &&
			a.Tone == domain.AgentToneFriendly &&
			a.Model == "gpt-4o-mini" &&
			a.ID != ""
	})).Return(nil)

	body := `{"name":"Support Bot","tone":"friendly"}`
	req := httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "Support Bot", data["name"])
	assert.Equal(t, "gpt-4o-mini", data["model"])
	store.AssertExpectations(t)
}

func TestAgentHandler_Create_MissingName(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	body := `{"tone":"friendly"}`
	req := httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAgentHandler_Create_InvalidTone(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	body := `{"name":"Support Bot","tone":"sarcastic"}`
	req := httptest.NewRequest(http.MethodPost, "/agents", bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestAgentHandler_Get_Success(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	store.On("GetByID", mock.Anything, "agent-123").Return(newTestAgent(), nil)

	req := requestWithURLParam(http.MethodGet, "/agents/agent-123", nil, "id", "agent-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "agent-123", data["id"])
}

func TestAgentHandler_Get_NotFound(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	store.On("GetByID", mock.Anything, "agent-999").Return(nil, domain.ErrAgentNotFound)

	req := requestWithURLParam(http.MethodGet, "/agents/agent-999", nil, "id", "agent-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentHandler_Update_Success(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	store.On("GetByID", mock.Anything, "agent-123").Return(newTestAgent(), nil)
	store.On("Update", mock.Anything, mock.MatchedBy(func(a *domain.Agent) bool {
		return a.Name == "Billing Bot" && a.Tone == domain.AgentToneProfessional
	})).Return(nil)

	body := `{"name":"Billing Bot","tone":"professional"}`
	req := requestWithURLParam(http.MethodPut, "/agents/agent-123", []byte(body), "id", "agent-123")
	w := httptest.NewRecorder()

	handler.Update(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	store.AssertExpectations(t)
}

func TestAgentHandler_Delete_Success(t *testing.T) {
	store := new(MockAgentStore)
	handler := NewAgentHandler(store, "gpt-4o-mini")

	store.On("Delete", mock.Anything, "agent-123").Return(nil)

	req := requestWithURLParam(http.MethodDelete, "/agents/agent-123", nil, "id", "agent-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	store.AssertExpectations(t)
}
