package llm

import (
	"context"
	"sync"
)

// MockCall records one GenerateResponse invocation.
type MockCall struct {
	Prompt        string
	SystemMessage string
	Options       GenerateOptions
}

// MockLLMClient is a configurable mock for testing LLM functionality.
// Set the function fields to control behavior in tests. Safe for concurrent use.
type MockLLMClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, returns empty result and nil error.
	GenerateResponseFunc func(ctx context.Context, prompt string, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error)

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	mu    sync.Mutex
	calls []MockCall
}

// NewMockLLMClient creates a new mock with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// NewMockLLMClientWithResponses returns a mock that answers calls with the
// given contents in order, repeating the last one.
func NewMockLLMClientWithResponses(contents ...string) *MockLLMClient {
	m := NewMockLLMClient()
	m.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error) {
		n := m.GenerateResponseCalls() - 1
		if n >= len(contents) {
			n = len(contents) - 1
		}
		if n < 0 {
			return &GenerateResponseResult{}, nil
		}
		return &GenerateResponseResult{Content: contents[n]}, nil
	}
	return m
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Prompt: prompt, SystemMessage: systemMessage, Options: opts})
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, opts)
	}
	return &GenerateResponseResult{}, nil
}

// GenerateResponseCalls returns how many times GenerateResponse was called.
func (m *MockLLMClient) GenerateResponseCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls.
func (m *MockLLMClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	if m.Model == "" {
		return "mock-model"
	}
	return m.Model
}

// GetEndpoint implements LLMClient.
func (m *MockLLMClient) GetEndpoint() string {
	if m.Endpoint == "" {
		return "http://mock-endpoint"
	}
	return m.Endpoint
}
