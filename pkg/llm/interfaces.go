// Package llm provides the text-generation clients used to translate
// questions into statements and to narrate results.
package llm

import (
	"context"
)

// GenerateOptions bounds a single generation call.
type GenerateOptions struct {
	Temperature float32
	MaxTokens   int
}

// GenerateResponseResult contains the response content and token usage.
type GenerateResponseResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// LLMClient defines the interface for LLM operations.
// Use this interface for dependency injection to enable mocking in tests.
type LLMClient interface {
	// GenerateResponse sends systemMessage as the system role and prompt as
	// the user role, and returns the generated text.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

// Ensure clients implement LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*GuardedClient)(nil)
	_ LLMClient = (*MockLLMClient)(nil)
)
