package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// QueryExecutor runs statements on a read-only SQLite connection.
type QueryExecutor struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewQueryExecutor creates a SQLite query executor using the connection manager.
// If connMgr is nil, creates an unmanaged pool (for tests or direct instantiation).
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*QueryExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := checkout(ctx, cfg, connMgr, true)
	if err != nil {
		return nil, err
	}
	return &QueryExecutor{conn: conn, logger: logger}, nil
}

// Query runs sqlQuery and reads back at most limit rows. The driver error is
// returned unwrapped so callers can classify it.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	rows, err := e.conn.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return datasource.ScanRows(rows, limit)
}

// QuoteIdentifier wraps a name in double quotes.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}

// Close returns the connection to the pool.
func (e *QueryExecutor) Close() error {
	return e.conn.Close()
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
