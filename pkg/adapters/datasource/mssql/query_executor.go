package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// QueryExecutor provides SQL Server query execution. Statements run in a
// transaction that is always rolled back.
type QueryExecutor struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewQueryExecutor creates a SQL Server query executor.
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*QueryExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := checkout(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &QueryExecutor{conn: conn, logger: logger}, nil
}

// Query runs sqlQuery and reads back at most limit rows.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	return e.conn.QueryRolledBack(ctx, nil, sqlQuery, limit)
}

// QuoteIdentifier wraps a name in square brackets.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return quoteName(name)
}

// Close returns the connection to the pool.
func (e *QueryExecutor) Close() error {
	return e.conn.Close()
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
