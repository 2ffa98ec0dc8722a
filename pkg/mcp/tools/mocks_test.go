package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-ask/pkg/models"
	"github.com/ekaya-inc/ekaya-ask/pkg/services"
)

type mockAskService struct {
	answer     *models.Answer
	status     *services.StoreStatus
	questions  []string
	sessionIDs []string
}

func (m *mockAskService) Ask(ctx context.Context, sessionID, question string) *models.Answer {
	m.questions = append(m.questions, question)
	m.sessionIDs = append(m.sessionIDs, sessionID)
	return m.answer
}

func (m *mockAskService) Status(ctx context.Context) *services.StoreStatus {
	return m.status
}

func (m *mockAskService) History(ctx context.Context, sessionID string) ([]models.ConversationTurn, error) {
	return nil, nil
}

func (m *mockAskService) ClearHistory(ctx context.Context, sessionID string) error {
	return nil
}

// stubCatalog builds a snapshot from fixed descriptors, or fails with err.
type stubCatalog struct {
	tables []models.TableDescriptor
	err    error
}

func (c *stubCatalog) Build(ctx context.Context, generation uint64) (*models.SchemaSnapshot, error) {
	if c.err != nil {
		return nil, c.err
	}
	return models.NewSchemaSnapshot(c.tables, generation, time.Now())
}

func (c *stubCatalog) Digest(ctx context.Context) (map[string][]string, error) {
	return nil, c.err
}

func salesTables() []models.TableDescriptor {
	return []models.TableDescriptor{{
		Name:        "Weekly_Sales",
		DisplayName: "Weekly Sales",
		Columns: []models.ColumnDescriptor{
			{Name: "Product_Name", OriginalName: "Product Name", DataType: "TEXT"},
			{Name: "week", OriginalName: "week", DataType: "INTEGER"},
			{Name: "units", OriginalName: "units", DataType: "INTEGER"},
		},
		RowCount:      2,
		EntityColumns: []models.EntityColumn{{Column: "Product_Name", Values: []string{"gadget", "widget"}}},
	}}
}

// callTool sends a tools/call through the server and returns the text
// content and the isError flag.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()

	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params":  map[string]any{"name": name, "arguments": args},
	}
	raw, err := json.Marshal(request)
	require.NoError(t, err)

	result := s.HandleMessage(context.Background(), raw)
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	require.Nil(t, response.Error, "unexpected JSON-RPC error")
	require.NotEmpty(t, response.Result.Content)
	return response.Result.Content[0].Text, response.Result.IsError
}

// toolNames lists the registered tools via tools/list.
func toolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()

	result := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	resultBytes, err := json.Marshal(result)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, len(response.Result.Tools))
	for i, tool := range response.Result.Tools {
		names[i] = tool.Name
	}
	return names
}
