package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

// maxQuestionLength matches the limit on the HTTP ask endpoint.
const maxQuestionLength = 4000

// AskToolDeps contains dependencies for the question tools.
type AskToolDeps struct {
	AskService services.AskService
	Provider   *services.SnapshotProvider
	// Debug attaches pipeline diagnostics to ask_data results.
	Debug  bool
	Logger *zap.Logger
}

// RegisterAskTools adds ask_data and list_datasets to the MCP server.
func RegisterAskTools(s *server.MCPServer, deps *AskToolDeps) {
	registerAskDataTool(s, deps)
	registerListDatasetsTool(s, deps)
}

func registerAskDataTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_data",
		mcp.WithDescription(
			"Answer a question about the business data in plain language. "+
				"The question is translated into a read-only query, run against the ingested tables and "+
				"summarized. Use list_datasets first to see which tables and columns exist. "+
				"Example: ask_data(question='How many units did we sell in week 25?')",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question, in plain language"),
		),
		mcp.WithString(
			"session_id",
			mcp.Description("Optional conversation id; turns with the same id are kept together"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		question = trimString(question)
		if question == "" {
			return NewErrorResult("invalid_parameters", "parameter 'question' cannot be empty"), nil
		}
		if len(question) > maxQuestionLength {
			return NewErrorResultWithDetails("invalid_parameters", "question is too long",
				map[string]int{"max_length": maxQuestionLength}), nil
		}

		sessionID := trimString(req.GetString("session_id", ""))
		answer := deps.AskService.Ask(ctx, sessionID, question)

		deps.Logger.Debug("ask_data answered",
			zap.String("outcome", string(answer.Outcome)),
			zap.Bool("has_session", sessionID != ""))

		if !deps.Debug {
			answer = answer.Public()
		}
		return jsonResult(answer)
	})
}

// datasetColumn is one column in the list_datasets result.
type datasetColumn struct {
	Name         string `json:"name"`
	OriginalName string `json:"original_name,omitempty"`
	DataType     string `json:"data_type"`
}

// dataset is one table in the list_datasets result.
type dataset struct {
	Name        string                `json:"name"`
	DisplayName string                `json:"display_name"`
	RowCount    int64                 `json:"row_count"`
	Columns     []datasetColumn       `json:"columns"`
	Entities    []models.EntityColumn `json:"entity_columns,omitempty"`
}

type listDatasetsResult struct {
	Datasets  []dataset `json:"datasets"`
	TotalRows int64     `json:"total_rows"`
}

func registerListDatasetsTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"list_datasets",
		mcp.WithDescription(
			"List the tables that questions can be asked about, with their columns, row counts and "+
				"known values of label columns such as product names.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := deps.Provider.Get(ctx)
		if err != nil {
			deps.Logger.Debug("list_datasets without a usable snapshot", zap.Error(err))
			return NewErrorResult("store_not_ready", deps.AskService.Status(ctx).Message), nil
		}

		result := listDatasetsResult{
			Datasets:  make([]dataset, 0, snapshot.TableCount()),
			TotalRows: snapshot.TotalRows(),
		}
		for _, table := range snapshot.Tables() {
			ds := dataset{
				Name:        table.Name,
				DisplayName: table.DisplayName,
				RowCount:    table.RowCount,
				Columns:     make([]datasetColumn, len(table.Columns)),
				Entities:    table.EntityColumns,
			}
			for i, col := range table.Columns {
				ds.Columns[i] = datasetColumn{Name: col.Name, DataType: col.DataType}
				if col.OriginalName != col.Name {
					ds.Columns[i].OriginalName = col.OriginalName
				}
			}
			result.Datasets = append(result.Datasets, ds)
		}
		return jsonResult(result)
	})
}
