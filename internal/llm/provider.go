package llm

import "context"

// Chat roles as the completion backends expect them on the wire
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn in a chat-completion request
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request contains chat-completion parameters
type Request struct {
	Messages  []Message
	MaxTokens int
}

// Response contains the completion result
type Response struct {
	Content    string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Complete runs a chat completion over the given messages
	Complete(ctx context.Context, req Request, model string) (*Response, error)
}
