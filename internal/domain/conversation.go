package domain

import "time"

// ConversationStatus represents the lifecycle state of a conversation
type ConversationStatus string

const (
	ConversationStatusActive ConversationStatus = "active"
	ConversationStatusEnded  ConversationStatus = "ended"
)

// Conversation represents a chat session between an end user and an agent
type Conversation struct {
	ID            string
	AgentID       string
	SessionID     string
	Status        ConversationStatus
	MessageCount  int
	LastMessageAt *time.Time
	CreatedAt     time.Time
}

// MessageRole represents who authored a message
type MessageRole string

const (
	MessageRoleUser      MessageRole = "user"
	MessageRoleAssistant MessageRole = "assistant"
)

// Message represents a single turn in a conversation, ordered by creation time
type Message struct {
	ID               string
	ConversationID   string
	Role             MessageRole
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Cost             float64
	UsedContext      bool
	CreatedAt        time.Time
}

// ValidateMessage validates a Message instance
func ValidateMessage(m *Message) error {
	if m == nil {
		return NewDomainError(ErrCodeValidation, "message cannot be nil")
	}
	if m.ConversationID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "message conversation ID is required", ErrMissingRequiredField)
	}
	if m.Role != MessageRoleUser && m.Role != MessageRoleAssistant {
		return ErrInvalidMessageRole
	}
	if m.Content == "" {
		return ErrEmptyMessage
	}
	return nil
}
