// Package llm defines the provider abstraction for chat completion backends.
package llm

import "context"

// Role identifies the author of a chat message.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    string
	Content string
}

// Provider generates chat completions. Implementations wrap a specific
// vendor SDK behind a uniform request shape.
type Provider interface {
	// Name returns the provider's model identifier.
	Name() string

	// GenerateResponse produces the assistant reply for the given
	// conversation. The system prompt may be empty.
	GenerateResponse(ctx context.Context, messages []Message, systemPrompt string) (string, error)
}
