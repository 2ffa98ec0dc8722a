package mcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newObservedAuditLogger() (*AuditLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewAuditLogger(zap.New(core)), logs
}

func TestAuditLogger_ToolCallThroughHooks(t *testing.T) {
	auditLogger, logs := newObservedAuditLogger()
	s := NewServer("test-server", "1.0.0", zap.NewNop(), server.WithHooks(auditLogger.Hooks()))
	s.RegisterTool(mcplib.NewTool("health"),
		func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
			return mcplib.NewToolResultText(`{"status":"ok"}`), nil
		})

	s.MCP().HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"health"},"id":7}`))

	entries := logs.FilterMessage("MCP tool call").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "health", fields["tool"])
	assert.Equal(t, false, fields["is_error"])
	assert.Equal(t, `{"status":"ok"}`, fields["result_preview"])
}

func TestAuditLogger_AfterCallTool_TruncatesPreview(t *testing.T) {
	auditLogger, logs := newObservedAuditLogger()

	req := &mcplib.CallToolRequest{}
	req.Params.Name = "ask_data"
	result := mcplib.NewToolResultText(strings.Repeat("a", 500))
	result.IsError = true

	auditLogger.beforeCallTool(context.Background(), 1, req)
	auditLogger.afterCallTool(context.Background(), 1, req, result)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, true, fields["is_error"])
	assert.Len(t, fields["result_preview"], previewLength+len("..."))

	_, pending := auditLogger.startTimes.Load(1)
	assert.False(t, pending, "start time should be released after the call")
}

func TestAuditLogger_OnError(t *testing.T) {
	auditLogger, logs := newObservedAuditLogger()

	req := &mcplib.CallToolRequest{}
	req.Params.Name = "ask_data"

	auditLogger.onError(context.Background(), 2, mcplib.MethodToolsList, req, errors.New("ignored"))
	assert.Equal(t, 0, logs.Len(), "only tool calls are audited")

	auditLogger.onError(context.Background(), 2, mcplib.MethodToolsCall, req,
		errors.New("dial postgres://app:hunter2@db:5432/sales failed"))

	entries := logs.FilterMessage("MCP tool call error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.NotContains(t, entries[0].ContextMap()["error"], "hunter2")
}
