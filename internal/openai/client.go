package openai

import (
	"context"
	"errors"
	"os"

	"github.com/cloo-solutions/agentchat/internal/domain"
	openai "github.com/sashabaranov/go-openai"
)

const (
	// DefaultEmbeddingModel is the OpenAI model used for generating embeddings
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// DefaultEmbeddingDimensions is the expected dimension of embeddings from ada-002
	DefaultEmbeddingDimensions = 1536
	// DefaultChatModel is the model used for chat completions
	DefaultChatModel = openai.GPT4oMini

	// MaxEmbeddingChars is the provider-safe input limit; longer text is truncated
	MaxEmbeddingChars = 32000
)

var (
	// ErrEmptyText is returned when text is empty
	ErrEmptyText = errors.New("text cannot be empty")
	// ErrNoAPIKey is returned when OpenAI API key is not set
	ErrNoAPIKey = errors.New("OPENAI_API_KEY environment variable not set")
)

// API defines the subset of the OpenAI API the client depends on
type API interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config holds OpenAI client configuration
type Config struct {
	APIKey              string
	EmbeddingModel      openai.EmbeddingModel
	EmbeddingDimensions int
	ChatModel           string
}

// Client wraps the OpenAI API for embeddings and chat completions.
// All failures surface as *domain.ProviderError; retry policy belongs to callers.
type Client struct {
	api        API
	embedModel openai.EmbeddingModel
	chatModel  string
	dimensions int
}

// NewClient creates a new OpenAI client using defaults.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

// NewClientWithConfig creates a new OpenAI client with explicit configuration.
func NewClientWithConfig(cfg Config) *Client {
	embedModel := cfg.EmbeddingModel
	if embedModel == "" {
		embedModel = DefaultEmbeddingModel
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		chatModel = DefaultChatModel
	}
	dimensions := cfg.EmbeddingDimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	return &Client{
		api:        openai.NewClient(cfg.APIKey),
		embedModel: embedModel,
		chatModel:  chatModel,
		dimensions: dimensions,
	}
}

// NewClientFromEnv creates a new OpenAI client using OPENAI_API_KEY environment variable
func NewClientFromEnv() (*Client, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	return NewClient(apiKey), nil
}

// NewClientWithAPI creates a client backed by a custom API implementation (for testing)
func NewClientWithAPI(api API) *Client {
	return &Client{
		api:        api,
		embedModel: DefaultEmbeddingModel,
		chatModel:  DefaultChatModel,
		dimensions: DefaultEmbeddingDimensions,
	}
}

// GenerateEmbedding generates an embedding for the given text, truncating
// oversized input to the provider-safe maximum.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	if len(text) > MaxEmbeddingChars {
		text = text[:MaxEmbeddingChars]
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: c.embedModel,
	})
	if err != nil {
		return nil, providerError("embedding request failed", err)
	}

	if len(resp.Data) == 0 {
		return nil, domain.NewProviderError("embedding response contained no data", nil)
	}

	embedding := resp.Data[0].Embedding
	if len(embedding) != c.dimensions {
		return nil, domain.NewProviderError("embedding has unexpected dimensions", nil)
	}

	return embedding, nil
}

// ChatMessage is one entry in a completion request
type ChatMessage struct {
	Role    string
	Content string
}

// Usage reports token consumption for a completion
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionInput holds parameters for a chat completion call
type CompletionInput struct {
	Messages    []ChatMessage
	Model       string
	Temperature float32
	MaxTokens   int
}

// CompletionOutput is the assistant reply plus usage metadata
type CompletionOutput struct {
	Content string
	Model   string
	Usage   Usage
}

// CreateCompletion invokes the chat completion endpoint once, with no retries.
func (c *Client) CreateCompletion(ctx context.Context, input CompletionInput) (*CompletionOutput, error) {
	model := input.Model
	if model == "" {
		model = c.chatModel
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(input.Messages))
	for _, m := range input.Messages {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: input.Temperature,
		MaxTokens:   input.MaxTokens,
	})
	if err != nil {
		return nil, providerError("chat completion request failed", err)
	}

	if len(resp.Choices) == 0 {
		return nil, domain.NewProviderError("chat completion response contained no choices", nil)
	}

	return &CompletionOutput{
		Content: resp.Choices[0].Message.Content,
		Model:   resp.Model,
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// providerError maps go-openai errors to domain.ProviderError, preserving the
// provider's HTTP status and message when present.
func providerError(message string, err error) *domain.ProviderError {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = message
		}
		return domain.NewProviderStatusError(apiErr.HTTPStatusCode, msg, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewProviderStatusError(reqErr.HTTPStatusCode, message, err)
	}
	return domain.NewProviderError(message, err)
}
