package llm

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGuardedClient_TimesOut(t *testing.T) {
	slow := NewMockLLMClient()
	slow.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	g := NewGuardedClient(slow, 20*time.Millisecond, nil, nil)

	start := time.Now()
	_, err := g.GenerateResponse(context.Background(), "q", "sys", GenerateOptions{})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if GetErrorType(err) != ErrorTypeTimeout {
		t.Errorf("error type = %s, want timeout", GetErrorType(err))
	}
	if time.Since(start) > time.Second {
		t.Error("timeout was not enforced")
	}
	if g.Breaker().ConsecutiveFailures() != 1 {
		t.Errorf("expected one recorded failure, got %d", g.Breaker().ConsecutiveFailures())
	}
}

func TestGuardedClient_OpenBreakerSkipsProvider(t *testing.T) {
	failing := NewMockLLMClient()
	failing.GenerateResponseFunc = func(ctx context.Context, prompt, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error) {
		return nil, errors.New("status code: 503")
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{Threshold: 2, ResetAfter: time.Hour})
	g := NewGuardedClient(failing, time.Second, breaker, nil)

	for i := 0; i < 2; i++ {
		if _, err := g.GenerateResponse(context.Background(), "q", "sys", GenerateOptions{}); err == nil {
			t.Fatal("expected failure")
		}
	}

	_, err := g.GenerateResponse(context.Background(), "q", "sys", GenerateOptions{})
	if GetErrorType(err) != ErrorTypeUnavailable {
		t.Errorf("expected unavailable, got %v", err)
	}
	if failing.GenerateResponseCalls() != 2 {
		t.Errorf("provider called %d times, want 2", failing.GenerateResponseCalls())
	}
}

func TestGuardedClient_PassesThrough(t *testing.T) {
	mock := NewMockLLMClientWithResponses("hello")
	g := NewGuardedClient(mock, time.Second, nil, nil)

	res, err := g.GenerateResponse(context.Background(), "user", "system", GenerateOptions{Temperature: 0.1, MaxTokens: 1500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Content != "hello" {
		t.Errorf("Content = %q", res.Content)
	}

	calls := mock.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Prompt != "user" || calls[0].SystemMessage != "system" || calls[0].Options.MaxTokens != 1500 {
		t.Errorf("unexpected call: %+v", calls[0])
	}
	if g.GetModel() != "mock-model" || g.GetEndpoint() != "http://mock-endpoint" {
		t.Error("model and endpoint should come from the wrapped client")
	}
}
