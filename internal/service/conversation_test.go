package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockAgentRepo mocks agent lookups
type MockAgentRepo struct {
	mock.Mock
}

func (m *MockAgentRepo) GetByID(ctx context.Context, id string) (*domain.Agent, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Agent), args.Error(1)
}

// MockConversationRepo mocks conversation persistence
type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) RecordMessages(ctx context.Context, id string, count int, lastMessageAt time.Time) error {
	args := m.Called(ctx, id, count, lastMessageAt)
	return args.Error(0)
}

// MockMessageRepo mocks message persistence
type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) ListRecent(ctx context.Context, conversationID string, limit int, excludeMessageID string) ([]*domain.Message, error) {
	args := m.Called(ctx, conversationID, limit, excludeMessageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Message), args.Error(1)
}

// MockContextRetriever mocks the retrieval pipeline
type MockContextRetriever struct {
	mock.Mock
}

func (m *MockContextRetriever) Retrieve(ctx context.Context, agentID, query string) []domain.RetrievalResult {
	args := m.Called(ctx, agentID, query)
	return args.Get(0).([]domain.RetrievalResult)
}

// MockCompletionClient mocks the completion provider
type MockCompletionClient struct {
	mock.Mock
}

func (m *MockCompletionClient) CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CompletionResult), args.Error(1)
}

func testAgent() *domain.Agent {
	return &domain.Agent{
		ID:          "agent-1",
		Name:        "Ava",
		Tone:        domain.AgentToneFriendly,
		Model:       "gpt-4o-mini",
		Temperature: 0.7,
		MaxTokens:   500,
	}
}

func newConversationFixture() (*MockAgentRepo, *MockConversationRepo, *MockMessageRepo, *MockContextRetriever, *MockCompletionClient, *ConversationService) {
	agents := new(MockAgentRepo)
	conversations := new(MockConversationRepo)
	messages := new(MockMessageRepo)
	retriever := new(MockContextRetriever)
	completions := new(MockCompletionClient)
	svc := NewConversationService(agents, conversations, messages, retriever, completions).
		WithUUIDGenerator(&seqUUIDGenerator{})
	return agents, conversations, messages, retriever, completions, svc
}

func TestConversationService_HandleTurn_NewConversation(t *testing.T) {
	agents, conversations, messages, retriever, completions, svc := newConversationFixture()
	ctx := context.Background()

	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	conversations.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
		return c.AgentID == "agent-1" && c.SessionID == "sess-9" && c.Status == domain.ConversationStatusActive
	})).Return(nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Role == domain.MessageRoleUser && m.Content == "What are your shipping times?"
	})).Return(nil).Once()

	results := []domain.RetrievalResult{{Content: "Shipping takes 3-5 days.", SourceLabel: "FAQ"}}
	retriever.On("Retrieve", mock.Anything, "agent-1", "What are your shipping times?").Return(results)

	history := []*domain.Message{
		{Role: domain.MessageRoleUser, Content: "Hi"},
		{Role: domain.MessageRoleAssistant, Content: "Hello! How can I help?"},
	}
	messages.On("ListRecent", mock.Anything, mock.Anything, 10, mock.Anything).Return(history, nil)

	completions.On("CreateCompletion", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		if len(req.Messages) != 4 {
			return false
		}
		return req.Messages[0].Role == "system" &&
			req.Messages[1].Content == "Hi" &&
			req.Messages[2].Content == "Hello! How can I help?" &&
			req.Messages[3].Role == "user" &&
			req.Messages[3].Content == "What are your shipping times?" &&
			req.Model == "gpt-4o-mini" &&
			req.Temperature == 0.7 &&
			req.MaxTokens == 500
	})).Return(&CompletionResult{
		Content:          "Shipping usually takes 3-5 business days.",
		Model:            "gpt-4o-mini",
		PromptTokens:     200,
		CompletionTokens: 30,
		TotalTokens:      230,
	}, nil)

	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Role == domain.MessageRoleAssistant &&
			m.UsedContext &&
			m.TotalTokens == 230 &&
			m.Cost > 0
	})).Return(nil).Once()
	conversations.On("RecordMessages", mock.Anything, mock.Anything, 2, mock.Anything).Return(nil)

	out, err := svc.HandleTurn(ctx, ChatInput{
		AgentID:   "agent-1",
		SessionID: "sess-9",
		Message:   "What are your shipping times?",
	})

	require.NoError(t, err)
	assert.Equal(t, "Shipping usually takes 3-5 business days.", out.Response)
	assert.NotEmpty(t, out.ConversationID)
	assert.NotEmpty(t, out.MessageID)
	agents.AssertExpectations(t)
	conversations.AssertExpectations(t)
	messages.AssertExpectations(t)
	completions.AssertExpectations(t)
}

func TestConversationService_HandleTurn_ExcludesCurrentMessageFromHistory(t *testing.T) {
	agents, conversations, messages, retriever, completions, svc := newConversationFixture()

	ctx := context.Background()
	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	existing := &domain.Conversation{ID: "conv-7", AgentID: "agent-1", Status: domain.ConversationStatusActive}
	conversations.On("GetByID", mock.Anything, "conv-7").Return(existing, nil)

	var userMsgID string
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		if m.Role == domain.MessageRoleUser {
			userMsgID = m.ID
		}
		return true
	})).Return(nil)

	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return([]domain.RetrievalResult{})
	messages.On("ListRecent", mock.Anything, "conv-7", 10, mock.MatchedBy(func(excludeID string) bool {
		return excludeID == userMsgID && excludeID != ""
	})).Return([]*domain.Message{}, nil)
	completions.On("CreateCompletion", mock.Anything, mock.Anything).
		Return(&CompletionResult{Content: "ok", Model: "gpt-4o-mini"}, nil)
	conversations.On("RecordMessages", mock.Anything, "conv-7", 2, mock.Anything).Return(nil)

	out, err := svc.HandleTurn(ctx, ChatInput{
		AgentID:        "agent-1",
		ConversationID: "conv-7",
		Message:        "Hello?",
	})

	require.NoError(t, err)
	assert.Equal(t, "conv-7", out.ConversationID)
	messages.AssertExpectations(t)
}

func TestConversationService_HandleTurn_CompletionFailureNotPersisted(t *testing.T) {
	agents, conversations, messages, retriever, completions, svc := newConversationFixture()

	ctx := context.Background()
	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	conversations.On("Create", mock.Anything, mock.Anything).Return(nil)
	messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
		return m.Role == domain.MessageRoleUser
	})).Return(nil).Once()
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return([]domain.RetrievalResult{})
	messages.On("ListRecent", mock.Anything, mock.Anything, 10, mock.Anything).Return([]*domain.Message{}, nil)
	completions.On("CreateCompletion", mock.Anything, mock.Anything).
		Return(nil, domain.NewProviderStatusError(500, "internal error", nil))

	_, err := svc.HandleTurn(ctx, ChatInput{AgentID: "agent-1", Message: "Hello"})

	var provErr *domain.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 500, provErr.StatusCode)
	// Only the user message was persisted.
	messages.AssertNumberOfCalls(t, "Create", 1)
	conversations.AssertNotCalled(t, "RecordMessages", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_HandleTurn_EmptyMessage(t *testing.T) {
	_, _, _, _, _, svc := newConversationFixture()

	_, err := svc.HandleTurn(context.Background(), ChatInput{AgentID: "agent-1", Message: "  "})

	assert.ErrorIs(t, err, domain.ErrEmptyMessage)
}

func TestConversationService_HandleTurn_UnknownConversation(t *testing.T) {
	agents, conversations, _, _, _, svc := newConversationFixture()

	ctx := context.Background()
	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	conversations.On("GetByID", mock.Anything, "conv-missing").Return(nil, domain.ErrConversationNotFound)

	_, err := svc.HandleTurn(ctx, ChatInput{
		AgentID:        "agent-1",
		ConversationID: "conv-missing",
		Message:        "Hello",
	})

	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
}

func TestConversationService_HandleTurn_ConversationOwnedByOtherAgent(t *testing.T) {
	agents, conversations, messages, _, completions, svc := newConversationFixture()

	ctx := context.Background()
	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	conversations.On("GetByID", mock.Anything, "conv-other").Return(&domain.Conversation{
		ID:      "conv-other",
		AgentID: "agent-2",
		Status:  domain.ConversationStatusActive,
	}, nil)

	_, err := svc.HandleTurn(ctx, ChatInput{
		AgentID:        "agent-1",
		ConversationID: "conv-other",
		Message:        "Hello",
	})

	assert.ErrorIs(t, err, domain.ErrConversationNotFound)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	completions.AssertNotCalled(t, "CreateCompletion", mock.Anything, mock.Anything)
}

func TestConversationService_HandleTurn_RefusalPromptWhenNoContext(t *testing.T) {
	agents, conversations, messages, retriever, completions, svc := newConversationFixture()

	ctx := context.Background()
	agents.On("GetByID", mock.Anything, "agent-1").Return(testAgent(), nil)
	conversations.On("Create", mock.Anything, mock.Anything).Return(nil)
	messages.On("Create", mock.Anything, mock.Anything).Return(nil)
	retriever.On("Retrieve", mock.Anything, mock.Anything, mock.Anything).Return([]domain.RetrievalResult{})
	messages.On("ListRecent", mock.Anything, mock.Anything, 10, mock.Anything).Return([]*domain.Message{}, nil)

	completions.On("CreateCompletion", mock.Anything, mock.MatchedBy(func(req CompletionRequest) bool {
		system := req.Messages[0].Content
		return req.Messages[0].Role == "system" &&
			strings.Contains(system, "no knowledge base content available") &&
			strings.Contains(system, RefusalSentence)
	})).Return(&CompletionResult{Content: RefusalSentence, Model: "gpt-4o-mini"}, nil)
	conversations.On("RecordMessages", mock.Anything, mock.Anything, 2, mock.Anything).Return(nil)

	_, err := svc.HandleTurn(ctx, ChatInput{AgentID: "agent-1", Message: "Who won the world cup?"})

	require.NoError(t, err)
	// The persisted assistant message records that no context was used.
	for _, call := range messages.Calls {
		if call.Method != "Create" {
			continue
		}
		if m, ok := call.Arguments.Get(1).(*domain.Message); ok && m.Role == domain.MessageRoleAssistant {
			assert.False(t, m.UsedContext)
		}
	}
}
