package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeStorage       = "STORAGE_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
)

// Validation errors
var (
	ErrInvalidAgentTone     = NewDomainError(ErrCodeValidation, "invalid agent tone")
	ErrInvalidSourceType    = NewDomainError(ErrCodeValidation, "invalid knowledge source type")
	ErrInvalidSourceStatus  = NewDomainError(ErrCodeValidation, "invalid knowledge source status")
	ErrInvalidMessageRole   = NewDomainError(ErrCodeValidation, "invalid message role")
	ErrEmptySourceContent   = NewDomainError(ErrCodeValidation, "knowledge source has no content to ingest")
	ErrEmptyMessage         = NewDomainError(ErrCodeValidation, "message content is empty")
	ErrMissingRequiredField = NewDomainError(ErrCodeValidation, "missing required field")
)

// Not found errors
var (
	ErrAgentNotFound        = NewDomainError(ErrCodeNotFound, "agent not found")
	ErrSourceNotFound       = NewDomainError(ErrCodeNotFound, "knowledge source not found")
	ErrConversationNotFound = NewDomainError(ErrCodeNotFound, "conversation not found")
)

// ProviderError reports a failed embedding or completion provider call,
// carrying the provider's HTTP status and message when available.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("[%s] provider returned status %d: %s", ErrCodeProvider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("[%s] %s", ErrCodeProvider, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a ProviderError without an HTTP status
func NewProviderError(message string, err error) *ProviderError {
	return &ProviderError{Message: message, Err: err}
}

// NewProviderStatusError creates a ProviderError carrying the provider's HTTP status
func NewProviderStatusError(statusCode int, message string, err error) *ProviderError {
	return &ProviderError{StatusCode: statusCode, Message: message, Err: err}
}

// NewStorageError wraps a persistence failure
func NewStorageError(message string, err error) *DomainError {
	return NewDomainErrorWithCause(ErrCodeStorage, message, err)
}
