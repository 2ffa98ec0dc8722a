// Package retry runs operations with exponential backoff.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Config defines retry behavior with exponential backoff
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64 // 0.0-1.0, fraction of each delay randomized in both directions
}

// DefaultConfig returns defaults for store connection setup:
// 3 retries with 100ms initial delay, capped at 5s, doubling each time, with 10% jitter.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:   3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

func applyJitter(delay time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 {
		return delay
	}
	jitter := float64(delay) * jitterFactor * (rand.Float64()*2 - 1)
	return time.Duration(float64(delay) + jitter)
}

// Do executes fn with exponential backoff retry logic.
// Returns nil on success, or the last error after all retries are exhausted.
func Do(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := run(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, nil)
	return err
}

// DoWithResult executes fn and returns both result and error.
// Useful for constructors such as pgxpool.NewWithConfig.
func DoWithResult[T any](ctx context.Context, cfg *Config, fn func() (T, error)) (T, error) {
	return run(ctx, cfg, fn, nil)
}

// DoIfRetryable retries only while IsRetryable reports the error as
// transient. Permanent errors (bad credentials, unknown database) return at once.
func DoIfRetryable(ctx context.Context, cfg *Config, fn func() error) error {
	_, err := run(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	}, IsRetryable)
	return err
}

// run is the shared backoff loop. A nil shouldRetry retries every error.
// Context cancellation during a wait returns ctx.Err().
func run[T any](ctx context.Context, cfg *Config, fn func() (T, error), shouldRetry func(error) bool) (T, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var (
		result  T
		lastErr error
	)
	delay := cfg.InitialDelay

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		r, err := fn()
		if err == nil {
			return r, nil
		}
		result, lastErr = r, err

		if shouldRetry != nil && !shouldRetry(err) {
			return result, err
		}
		if attempt == cfg.MaxRetries {
			break
		}

		select {
		case <-time.After(applyJitter(delay, cfg.JitterFactor)):
			delay = time.Duration(float64(delay) * cfg.Multiplier)
			if delay > cfg.MaxDelay {
				delay = cfg.MaxDelay
			}
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, lastErr
}

// RetryableError is implemented by errors that declare their own retryability.
type RetryableError interface {
	error
	IsRetryable() bool
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"no such host",
	"timeout",
	"timed out",
	"temporary failure",
	"too many connections",
	"database is locked",
	"database table is locked",
	"deadlock",
	"network is unreachable",
	"429",
	"502",
	"503",
	"504",
	"rate limit",
	"service unavailable",
}

// IsRetryable determines if an error is transient and worth retrying.
// Errors implementing RetryableError decide for themselves; anything else is
// matched against known transient messages.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if r, ok := err.(RetryableError); ok {
		return r.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
