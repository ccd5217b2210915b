package service

import (
	"context"
	"strings"
	"time"

	"github.com/cloo-solutions/agentchat/internal/domain"
	"github.com/cloo-solutions/agentchat/internal/telemetry"
)

// gpt-4o-mini list pricing, USD per token
const (
	promptTokenCost     = 0.15 / 1e6
	completionTokenCost = 0.60 / 1e6
)

// DefaultHistoryWindow is the number of prior messages passed back to the model
const DefaultHistoryWindow = 10

// ChatTurnMessage is one entry in a completion request
type ChatTurnMessage struct {
	Role    string
	Content string
}

// CompletionRequest holds parameters for one completion call
type CompletionRequest struct {
	Messages    []ChatTurnMessage
	Model       string
	Temperature float32
	MaxTokens   int
}

// CompletionResult is the assistant reply plus usage metadata
type CompletionResult struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionClient defines the interface for the completion provider
type CompletionClient interface {
	CreateCompletion(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
}

// ContextRetriever finds grounded context snippets for a query
type ContextRetriever interface {
	Retrieve(ctx context.Context, agentID, query string) []domain.RetrievalResult
}

// ConversationAgentRepository loads agents for chat turns
type ConversationAgentRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Agent, error)
}

// ConversationRepository defines the repository interface for conversations
type ConversationRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Conversation, error)
	Create(ctx context.Context, c *domain.Conversation) error
	RecordMessages(ctx context.Context, id string, count int, lastMessageAt time.Time) error
}

// ConversationMessageRepository defines the repository interface for messages
type ConversationMessageRepository interface {
	Create(ctx context.Context, m *domain.Message) error
	ListRecent(ctx context.Context, conversationID string, limit int, excludeMessageID string) ([]*domain.Message, error)
}

// ConversationService processes one chat turn: resolve the conversation,
// persist the user message, retrieve context, build the prompt, invoke the
// model, and persist the grounded reply.
type ConversationService struct {
	agents        ConversationAgentRepository
	conversations ConversationRepository
	messages      ConversationMessageRepository
	retriever     ContextRetriever
	prompts       *PromptBuilder
	completions   CompletionClient
	historyWindow int
	uuidGen       UUIDGenerator
}

// NewConversationService creates a new ConversationService instance
func NewConversationService(
	agents ConversationAgentRepository,
	conversations ConversationRepository,
	messages ConversationMessageRepository,
	retriever ContextRetriever,
	completions CompletionClient,
) *ConversationService {
	return &ConversationService{
		agents:        agents,
		conversations: conversations,
		messages:      messages,
		retriever:     retriever,
		prompts:       NewPromptBuilder(),
		completions:   completions,
		historyWindow: DefaultHistoryWindow,
		uuidGen:       &DefaultUUIDGenerator{},
	}
}

// WithHistoryWindow overrides the number of prior messages sent to the model.
func (s *ConversationService) WithHistoryWindow(n int) *ConversationService {
	if n > 0 {
		s.historyWindow = n
	}
	return s
}

// WithUUIDGenerator overrides UUID generation (for testing).
func (s *ConversationService) WithUUIDGenerator(gen UUIDGenerator) *ConversationService {
	s.uuidGen = gen
	return s
}

// ChatInput represents one user turn
type ChatInput struct {
	AgentID        string
	ConversationID string
	SessionID      string
	Message        string
}

// ChatOutput is the agent's reply plus conversation bookkeeping
type ChatOutput struct {
	Response       string
	ConversationID string
	MessageID      string
}

// HandleTurn processes a user message end to end. Completion provider errors
// propagate to the caller; no assistant message is persisted in that case.
func (s *ConversationService) HandleTurn(ctx context.Context, input ChatInput) (*ChatOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "ConversationService.HandleTurn", telemetry.SpanAttributes{
		AgentID:        input.AgentID,
		ConversationID: input.ConversationID,
		Operation:      "chat_turn",
	})
	defer span.End()

	if strings.TrimSpace(input.Message) == "" {
		return nil, domain.ErrEmptyMessage
	}

	agent, err := s.agents.GetByID(ctx, input.AgentID)
	if err != nil {
		return nil, err
	}

	conversation, err := s.resolveConversation(ctx, agent.ID, input)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	userMsg := &domain.Message{
		ID:             s.uuidGen.NewString(),
		ConversationID: conversation.ID,
		Role:           domain.MessageRoleUser,
		Content:        input.Message,
		CreatedAt:      now,
	}
	if err := s.messages.Create(ctx, userMsg); err != nil {
		return nil, domain.NewStorageError("failed to persist user message", err)
	}

	results := s.retriever.Retrieve(ctx, agent.ID, input.Message)

	history, err := s.messages.ListRecent(ctx, conversation.ID, s.historyWindow, userMsg.ID)
	if err != nil {
		return nil, domain.NewStorageError("failed to load conversation history", err)
	}

	systemPrompt := s.prompts.Build(agent, results)

	turn := make([]ChatTurnMessage, 0, len(history)+2)
	turn = append(turn, ChatTurnMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		turn = append(turn, ChatTurnMessage{Role: string(m.Role), Content: m.Content})
	}
	turn = append(turn, ChatTurnMessage{Role: "user", Content: input.Message})

	completion, err := s.completions.CreateCompletion(ctx, CompletionRequest{
		Messages:    turn,
		Model:       agent.Model,
		Temperature: agent.Temperature,
		MaxTokens:   agent.MaxTokens,
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	assistantMsg := &domain.Message{
		ID:               s.uuidGen.NewString(),
		ConversationID:   conversation.ID,
		Role:             domain.MessageRoleAssistant,
		Content:          completion.Content,
		Model:            completion.Model,
		PromptTokens:     completion.PromptTokens,
		CompletionTokens: completion.CompletionTokens,
		TotalTokens:      completion.TotalTokens,
		Cost:             estimateCost(completion),
		UsedContext:      len(results) > 0,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, assistantMsg); err != nil {
		return nil, domain.NewStorageError("failed to persist assistant message", err)
	}

	if err := s.conversations.RecordMessages(ctx, conversation.ID, 2, assistantMsg.CreatedAt); err != nil {
		return nil, domain.NewStorageError("failed to update conversation", err)
	}

	return &ChatOutput{
		Response:       completion.Content,
		ConversationID: conversation.ID,
		MessageID:      assistantMsg.ID,
	}, nil
}

func (s *ConversationService) resolveConversation(ctx context.Context, agentID string, input ChatInput) (*domain.Conversation, error) {
	if input.ConversationID != "" {
		conversation, err := s.conversations.GetByID(ctx, input.ConversationID)
		if err != nil {
			return nil, err
		}
		// A conversation belongs to exactly one agent; a turn addressed to a
		// different agent must not graft onto it.
		if conversation.AgentID != agentID {
			return nil, domain.ErrConversationNotFound
		}
		return conversation, nil
	}

	conversation := &domain.Conversation{
		ID:        s.uuidGen.NewString(),
		AgentID:   agentID,
		SessionID: input.SessionID,
		Status:    domain.ConversationStatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, domain.NewStorageError("failed to create conversation", err)
	}
	return conversation, nil
}

func estimateCost(c *CompletionResult) float64 {
	return float64(c.PromptTokens)*promptTokenCost + float64(c.CompletionTokens)*completionTokenCost
}
