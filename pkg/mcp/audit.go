package mcp

import (
	"context"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
)

// previewLength caps the result text copied into audit lines.
const previewLength = 200

// AuditLogger records every tool call with its duration and result shape.
type AuditLogger struct {
	logger *zap.Logger

	// startTimes tracks when tool calls begin, keyed by request ID.
	startTimes sync.Map
}

// NewAuditLogger creates an AuditLogger under the mcp-audit logger name.
func NewAuditLogger(logger *zap.Logger) *AuditLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditLogger{logger: logger.Named("mcp-audit")}
}

// Hooks returns mcp-go Hooks configured to capture tool call events.
func (a *AuditLogger) Hooks() *server.Hooks {
	hooks := &server.Hooks{}
	hooks.AddBeforeCallTool(a.beforeCallTool)
	hooks.AddAfterCallTool(a.afterCallTool)
	hooks.AddOnError(a.onError)
	return hooks
}

func (a *AuditLogger) beforeCallTool(_ context.Context, id any, _ *mcplib.CallToolRequest) {
	a.startTimes.Store(id, time.Now())
}

func (a *AuditLogger) afterCallTool(_ context.Context, id any, req *mcplib.CallToolRequest, result *mcplib.CallToolResult) {
	fields := []zap.Field{
		zap.String("tool", req.Params.Name),
		zap.Int64("duration_ms", a.elapsed(id).Milliseconds()),
	}
	if result != nil {
		fields = append(fields,
			zap.Bool("is_error", result.IsError),
			zap.String("result_preview", resultPreview(result)))
	}
	a.logger.Info("MCP tool call", fields...)
}

func (a *AuditLogger) onError(_ context.Context, id any, method mcplib.MCPMethod, message any, err error) {
	if method != mcplib.MethodToolsCall {
		return
	}
	req, ok := message.(*mcplib.CallToolRequest)
	if !ok {
		return
	}
	a.logger.Warn("MCP tool call error",
		zap.String("tool", req.Params.Name),
		zap.Int64("duration_ms", a.elapsed(id).Milliseconds()),
		zap.String("error", logging.SanitizeError(err)))
}

func (a *AuditLogger) elapsed(id any) time.Duration {
	if v, ok := a.startTimes.LoadAndDelete(id); ok {
		return time.Since(v.(time.Time))
	}
	return 0
}

// resultPreview returns the start of the first text content.
func resultPreview(result *mcplib.CallToolResult) string {
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return logging.TruncateString(tc.Text, previewLength)
		}
	}
	return ""
}
