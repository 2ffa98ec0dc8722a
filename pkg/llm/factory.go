package llm

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/config"
)

// ErrNotConfigured is returned when no provider can be built from config.
var ErrNotConfigured = errors.New("text-generation service is not configured")

// NewClientFromConfig builds the provider client named by cfg and wraps it in
// a GuardedClient.
func NewClientFromConfig(cfg *config.LLMConfig, logger *zap.Logger) (*GuardedClient, error) {
	if !cfg.IsConfigured() {
		return nil, ErrNotConfigured
	}

	clientCfg := &Config{
		Endpoint: cfg.Endpoint,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey,
	}

	var (
		inner LLMClient
		err   error
	)
	switch cfg.Provider {
	case "anthropic":
		inner, err = NewAnthropicClient(clientCfg, logger)
	case "openai", "":
		inner, err = NewClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.CircuitBreakerThreshold,
		ResetAfter: cfg.CircuitBreakerReset,
	})
	return NewGuardedClient(inner, cfg.RequestTimeout, breaker, logger), nil
}
