package mcp

import (
	"context"
	"encoding/json"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewServer(t *testing.T) {
	logger := zap.NewNop()
	s := NewServer("test-server", "1.0.0", logger)

	if s == nil {
		t.Fatal("expected non-nil server")
	}
	if s.MCP() != s.mcp {
		t.Error("expected MCP() to return the internal mcp server")
	}
	if s.logger != logger {
		t.Error("expected logger to be set")
	}
	if s.NewStreamableHTTPServer() == nil {
		t.Fatal("expected non-nil HTTP server")
	}
}

func TestServer_RegisterTool(t *testing.T) {
	s := NewServer("test-server", "1.0.0", zap.NewNop())

	called := false
	s.RegisterTool(mcplib.NewTool("echo", mcplib.WithDescription("Echoes")),
		func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			called = true
			return mcplib.NewToolResultText("pong"), nil
		})
	assert.False(t, called, "handler should not be called during registration")

	result := s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo"},"id":1}`))
	raw, err := json.Marshal(result)
	require.NoError(t, err)

	assert.True(t, called)
	assert.Contains(t, string(raw), "pong")
}
