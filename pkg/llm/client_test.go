package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GenerateResponse(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1,
			"model": "gpt-4o-mini",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": "SQL_QUERY: SELECT 1;"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 5, "total_tokens": 17}
		}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL + "/v1/", Model: "gpt-4o-mini", APIKey: "sk-test"}, nil)
	require.NoError(t, err)
	assert.Equal(t, server.URL+"/v1", client.GetEndpoint())

	res, err := client.GenerateResponse(context.Background(), "total units", "schema payload", GenerateOptions{Temperature: 0.1, MaxTokens: 1500})
	require.NoError(t, err)

	assert.Equal(t, "SQL_QUERY: SELECT 1;", res.Content)
	assert.Equal(t, 17, res.TotalTokens)

	assert.Equal(t, "gpt-4o-mini", received["model"])
	assert.EqualValues(t, 1500, received["max_tokens"])
	messages := received["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "schema payload", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])
	assert.Equal(t, "total units", messages[1].(map[string]any)["content"])
}

func TestClient_GenerateResponse_ClassifiesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided", "type": "invalid_request_error"}}`))
	}))
	defer server.Close()

	client, err := NewClient(&Config{Endpoint: server.URL, Model: "gpt-4o-mini", APIKey: "bad"}, nil)
	require.NoError(t, err)

	_, err = client.GenerateResponse(context.Background(), "q", "s", GenerateOptions{})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeAuth, GetErrorType(err))
	assert.False(t, IsRetryable(err))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(&Config{Endpoint: "http://localhost:8000"}, nil)
	assert.Error(t, err, "model is required")

	_, err = NewClient(&Config{Model: "gpt-4o-mini"}, nil)
	assert.Error(t, err, "hosted endpoint needs a key")

	_, err = NewClient(&Config{Model: "local", Endpoint: "http://localhost:8000/v1"}, nil)
	assert.NoError(t, err, "local endpoints may omit the key")
}

func TestAnthropicClient_GenerateResponse(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "sk-ant", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_1",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "Widgets sold 15 units."}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 40, "output_tokens": 6}
		}`))
	}))
	defer server.Close()

	client, err := NewAnthropicClient(&Config{Endpoint: server.URL + "/v1", Model: "claude-test", APIKey: "sk-ant"}, nil)
	require.NoError(t, err)

	res, err := client.GenerateResponse(context.Background(), "Provide the final answer based on the results.", "results prompt", GenerateOptions{Temperature: 0.1, MaxTokens: 1000})
	require.NoError(t, err)

	assert.Equal(t, "Widgets sold 15 units.", res.Content)
	assert.Equal(t, 46, res.TotalTokens)
	assert.Equal(t, "results prompt", received["system"])
	assert.EqualValues(t, 1000, received["max_tokens"])
}
