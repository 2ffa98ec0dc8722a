package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantType      ErrorType
		wantRetryable bool
		wantStatus    int
	}{
		{name: "unauthorized", err: errors.New("error, status code: 401, message: Incorrect API key"), wantType: ErrorTypeAuth, wantStatus: 401},
		{name: "invalid api key text", err: errors.New("invalid api key provided"), wantType: ErrorTypeAuth},
		{name: "model missing", err: errors.New("The model `gpt-9` does not exist"), wantType: ErrorTypeModel},
		{name: "endpoint 404", err: errors.New("status code: 404, page missing"), wantType: ErrorTypeEndpoint, wantStatus: 404},
		{name: "connection refused", err: errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), wantType: ErrorTypeEndpoint, wantRetryable: true},
		{name: "deadline", err: fmt.Errorf("post: %w", context.DeadlineExceeded), wantType: ErrorTypeTimeout, wantRetryable: true},
		{name: "canceled", err: fmt.Errorf("post: %w", context.Canceled), wantType: ErrorTypeTimeout},
		{name: "rate limit", err: errors.New("status code: 429, rate limit reached"), wantType: ErrorTypeRateLimit, wantRetryable: true, wantStatus: 429},
		{name: "overloaded", err: errors.New("anthropic api error type: overloaded_error"), wantType: ErrorTypeEndpoint, wantRetryable: true},
		{name: "server error", err: errors.New("status code: 503"), wantType: ErrorTypeEndpoint, wantRetryable: true, wantStatus: 503},
		{name: "unknown", err: errors.New("something odd"), wantType: ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			if got.Type != tt.wantType {
				t.Errorf("Type = %s, want %s", got.Type, tt.wantType)
			}
			if got.Retryable != tt.wantRetryable {
				t.Errorf("Retryable = %v, want %v", got.Retryable, tt.wantRetryable)
			}
			if got.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", got.StatusCode, tt.wantStatus)
			}
			if !errors.Is(got, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	original := NewError(ErrorTypeUnavailable, "circuit breaker open", false, nil)
	wrapped := fmt.Errorf("translate: %w", original)

	if got := ClassifyError(wrapped); got != original {
		t.Errorf("expected the original *Error, got %v", got)
	}
	if ClassifyError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestErrorHelpers(t *testing.T) {
	err := fmt.Errorf("narrate: %w", NewError(ErrorTypeTimeout, "request timeout", true, context.DeadlineExceeded))

	if !IsRetryable(err) {
		t.Error("expected retryable")
	}
	if GetErrorType(err) != ErrorTypeTimeout {
		t.Errorf("GetErrorType = %s", GetErrorType(err))
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors are not retryable")
	}
	if GetErrorType(errors.New("plain")) != ErrorTypeUnknown {
		t.Error("plain errors classify as unknown")
	}
}
