package domain

import (
	"fmt"
	"strings"
	"time"
)

// SourceType represents how a knowledge source was supplied
type SourceType string

const (
	SourceTypeText   SourceType = "text"
	SourceTypeUpload SourceType = "upload"
	SourceTypeURL    SourceType = "url"
)

// SourceStatus represents the ingestion status of a knowledge source
type SourceStatus string

const (
	SourceStatusPending    SourceStatus = "pending"
	SourceStatusProcessing SourceStatus = "processing"
	SourceStatusCompleted  SourceStatus = "completed"
	SourceStatusFailed     SourceStatus = "failed"
)

// KnowledgeSource represents an operator-supplied document attached to an agent
type KnowledgeSource struct {
	ID         string
	AgentID    string
	Name       string
	Type       SourceType
	URL        string
	Content    string
	Status     SourceStatus
	Error      string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ValidateKnowledgeSource validates a KnowledgeSource instance
func ValidateKnowledgeSource(s *KnowledgeSource) error {
	if s == nil {
		return fmt.Errorf("knowledge source cannot be nil")
	}
	if s.ID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "source ID is required", ErrMissingRequiredField)
	}
	if s.AgentID == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "source agent ID is required", ErrMissingRequiredField)
	}
	if s.Name == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "source name is required", ErrMissingRequiredField)
	}
	if !isValidSourceType(s.Type) {
		return ErrInvalidSourceType
	}
	if !isValidSourceStatus(s.Status) {
		return ErrInvalidSourceStatus
	}
	// URL sources fetch their content during ingestion; every other type
	// must carry it up front or it can never be ingested.
	if s.Type != SourceTypeURL && strings.TrimSpace(s.Content) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, "source content is required", ErrMissingRequiredField)
	}
	return nil
}

func isValidSourceType(t SourceType) bool {
	switch t {
	case SourceTypeText, SourceTypeUpload, SourceTypeURL:
		return true
	}
	return false
}

func isValidSourceStatus(s SourceStatus) bool {
	switch s {
	case SourceStatusPending, SourceStatusProcessing, SourceStatusCompleted, SourceStatusFailed:
		return true
	}
	return false
}
