package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// QueryExecutor provides PostgreSQL query execution. Every statement runs
// inside a READ ONLY transaction that is always rolled back.
type QueryExecutor struct {
	conn    *pgxpool.Conn
	release func()
	logger  *zap.Logger
}

// NewQueryExecutor creates a PostgreSQL query executor using the connection manager.
// If connMgr is nil, creates an unmanaged pool (for tests or direct instantiation).
func NewQueryExecutor(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*QueryExecutor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, release, err := acquire(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &QueryExecutor{conn: conn, release: release, logger: logger}, nil
}

// Query runs sqlQuery and reads back at most limit rows.
func (e *QueryExecutor) Query(ctx context.Context, sqlQuery string, limit int) (*datasource.QueryExecutionResult, error) {
	tx, err := e.conn.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin read-only transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(context.WithoutCancel(ctx)); err != nil && err != pgx.ErrTxClosed {
			e.logger.Warn("Failed to roll back read-only transaction", zap.Error(err))
		}
	}()

	rows, err := tx.Query(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	return collectResult(e.conn.Conn().TypeMap(), rows, limit)
}

// QuoteIdentifier wraps a name in double quotes.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// Close returns the connection to the pool.
func (e *QueryExecutor) Close() error {
	if e.release != nil {
		e.release()
		e.release = nil
	}
	return nil
}

// collectResult reads rows into ordered tuples, stopping after limit rows.
// It closes rows.
func collectResult(typeMap *pgtype.Map, rows pgx.Rows, limit int) (*datasource.QueryExecutionResult, error) {
	defer rows.Close()

	if limit <= 0 || limit > datasource.MaxQueryLimit {
		limit = datasource.MaxQueryLimit
	}

	fields := rows.FieldDescriptions()
	columns := make([]datasource.ColumnInfo, len(fields))
	for i, fd := range fields {
		columns[i] = datasource.ColumnInfo{Name: fd.Name, Type: typeName(typeMap, fd.DataTypeOID)}
	}

	result := &datasource.QueryExecutionResult{Columns: columns, Rows: make([][]any, 0)}
	for rows.Next() {
		if result.RowCount == limit {
			result.Truncated = true
			break
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read row values: %w", err)
		}
		for i, v := range values {
			values[i] = normalizeValue(v)
		}
		result.Rows = append(result.Rows, values)
		result.RowCount++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func typeName(typeMap *pgtype.Map, oid uint32) string {
	if t, ok := typeMap.TypeForOID(oid); ok {
		return strings.ToUpper(t.Name)
	}
	return "UNKNOWN"
}

// normalizeValue flattens pgx-specific values into plain Go values.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case pgtype.Numeric:
		f, err := val.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte: // uuid
		return fmt.Sprintf("%x-%x-%x-%x-%x", val[0:4], val[4:6], val[6:8], val[8:10], val[10:16])
	default:
		return datasource.NormalizeValue(v)
	}
}

var _ datasource.QueryExecutor = (*QueryExecutor)(nil)
