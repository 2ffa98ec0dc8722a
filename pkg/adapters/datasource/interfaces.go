package datasource

import (
	"context"
)

// MaxQueryLimit is the hard cap on rows read back from one statement.
const MaxQueryLimit = 10000

// ConnectionTester checks that a store is reachable.
type ConnectionTester interface {
	// TestConnection verifies the store can be reached and answers a trivial query.
	TestConnection(ctx context.Context) error

	// Close releases the connection held by the tester.
	Close() error
}

// SchemaDiscoverer introspects a store. Each discoverer holds one checked-out
// connection for its lifetime; Close returns it to the pool.
type SchemaDiscoverer interface {
	// DiscoverTables lists user tables with exact row counts. Internal
	// bookkeeping tables are excluded.
	DiscoverTables(ctx context.Context) ([]TableMetadata, error)

	// DiscoverColumns lists a table's columns in ordinal order.
	DiscoverColumns(ctx context.Context, tableName string) ([]ColumnMetadata, error)

	// GetSampleRows returns up to limit rows of a table in storage order.
	GetSampleRows(ctx context.Context, tableName string, limit int) (*QueryExecutionResult, error)

	// GetDistinctValues returns up to limit distinct non-null values of a
	// column rendered as text, sorted.
	GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error)

	// Close returns the connection to the pool.
	Close() error
}

// QueryExecutor runs statements. Each executor holds one checked-out
// connection for its lifetime; Close returns it to the pool.
type QueryExecutor interface {
	// Query runs a read statement and reads back at most limit rows.
	// A limit <= 0 means MaxQueryLimit.
	Query(ctx context.Context, sqlQuery string, limit int) (*QueryExecutionResult, error)

	// QuoteIdentifier quotes a table or column name for this dialect.
	QuoteIdentifier(name string) string

	// Close returns the connection to the pool.
	Close() error
}

// TableWriter replaces whole tables. Only stores that accept ingestion
// register one.
type TableWriter interface {
	// ReplaceTable drops any table of the same name and recreates it with
	// data, in one transaction, recording the source names alongside.
	ReplaceTable(ctx context.Context, data *TableData) error

	// Close returns the connection to the pool.
	Close() error
}

// ColumnInfo describes one result column.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryExecutionResult holds rows read back from a statement, as ordered tuples.
type QueryExecutionResult struct {
	Columns   []ColumnInfo `json:"columns"`
	Rows      [][]any      `json:"rows"`
	RowCount  int          `json:"row_count"`
	Truncated bool         `json:"truncated,omitempty"`
}

// ColumnNames returns the result's column names in order.
func (r *QueryExecutionResult) ColumnNames() []string {
	names := make([]string, len(r.Columns))
	for i, c := range r.Columns {
		names[i] = c.Name
	}
	return names
}

// TableData is a complete table ready to be written.
type TableData struct {
	Name       string           // Normalized table name
	SourceName string           // Sheet name it came from
	Columns    []ColumnMetadata // Normalized names, original names and storage types
	Rows       [][]any
}
