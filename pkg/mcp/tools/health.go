package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

type healthResult struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Ready         bool   `json:"ready"`
	Message       string `json:"message"`
	LLMConfigured bool   `json:"llm_configured"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the server version and whether questions can be answered.
func RegisterHealthTool(s *server.MCPServer, version string, askService services.AskService) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns server health, version and whether the data store is ready for questions"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		status := askService.Status(ctx)
		return jsonResult(healthResult{
			Status:        "ok",
			Version:       version,
			Ready:         status.Ready,
			Message:       status.Message,
			LLMConfigured: status.LLMConfigured,
		})
	})
}
