package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// GuardedClient bounds every call with a timeout and a circuit breaker.
// The external service's latency is outside our control, so no caller ever
// waits longer than the timeout.
type GuardedClient struct {
	inner   LLMClient
	timeout time.Duration
	breaker *CircuitBreaker
	logger  *zap.Logger
}

// NewGuardedClient wraps inner. A zero timeout disables the deadline.
func NewGuardedClient(inner LLMClient, timeout time.Duration, breaker *CircuitBreaker, logger *zap.Logger) *GuardedClient {
	if breaker == nil {
		breaker = NewCircuitBreaker(DefaultCircuitBreakerConfig())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GuardedClient{
		inner:   inner,
		timeout: timeout,
		breaker: breaker,
		logger:  logger.Named("llm_guard"),
	}
}

// GenerateResponse implements LLMClient.
func (g *GuardedClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, opts GenerateOptions) (*GenerateResponseResult, error) {
	if err := g.breaker.Allow(); err != nil {
		g.logger.Warn("LLM call refused", zap.String("circuit", g.breaker.State().String()))
		return nil, err
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	result, err := g.inner.GenerateResponse(ctx, prompt, systemMessage, opts)
	if err != nil {
		// A caller that went away says nothing about the provider's health.
		if ctx.Err() == context.Canceled {
			return nil, ClassifyError(err)
		}
		g.breaker.RecordFailure()
		classified := ClassifyError(err)
		if ctx.Err() == context.DeadlineExceeded {
			classified = NewError(ErrorTypeTimeout, "request timeout", true, err)
		}
		g.logger.Warn("LLM call failed",
			zap.String("error_type", string(classified.Type)),
			zap.Int("consecutive_failures", g.breaker.ConsecutiveFailures()),
			zap.Error(err))
		return nil, classified
	}

	g.breaker.RecordSuccess()
	return result, nil
}

// GetModel implements LLMClient.
func (g *GuardedClient) GetModel() string {
	return g.inner.GetModel()
}

// GetEndpoint implements LLMClient.
func (g *GuardedClient) GetEndpoint() string {
	return g.inner.GetEndpoint()
}

// Breaker exposes the circuit breaker for status reporting.
func (g *GuardedClient) Breaker() *CircuitBreaker {
	return g.breaker
}
