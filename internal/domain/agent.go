package domain

import (
	"fmt"
	"strings"
	"time"
)

// AgentTone represents the conversational tone of an agent
type AgentTone string

const (
	AgentToneProfessional AgentTone = "professional"
	AgentToneFriendly     AgentTone = "friendly"
	AgentToneCasual       AgentTone = "casual"
	AgentToneHelpful      AgentTone = "helpful"
	AgentToneFormal       AgentTone = "formal"
	AgentToneEnthusiastic AgentTone = "enthusiastic"
)

// Agent represents a chat agent whose replies are grounded in its knowledge sources
type Agent struct {
	ID                 string
	Name               string
	Tone               AgentTone
	CustomInstructions string
	Model              string
	Temperature        float32
	MaxTokens          int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ValidateAgent validates an Agent instance
func ValidateAgent(a *Agent) error {
	if a == nil {
		return fmt.Errorf("agent cannot be nil")
	}
	if a.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "agent ID is required", ErrMissingRequiredField)
	}
	if strings.TrimSpace(a.Name) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "agent name is required", ErrMissingRequiredField)
	}
	if a.Tone != "" && !IsValidAgentTone(a.Tone) {
		return ErrInvalidAgentTone
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		return NewDomainError(ErrCodeValidation, "agent temperature must be between 0 and 2")
	}
	if a.MaxTokens < 0 {
		return NewDomainError(ErrCodeValidation, "agent max tokens cannot be negative")
	}
	return nil
}

// IsValidAgentTone checks if an AgentTone is one of the known values
func IsValidAgentTone(t AgentTone) bool {
	switch t {
	case AgentToneProfessional, AgentToneFriendly, AgentToneCasual,
		AgentToneHelpful, AgentToneFormal, AgentToneEnthusiastic:
		return true
	}
	return false
}
