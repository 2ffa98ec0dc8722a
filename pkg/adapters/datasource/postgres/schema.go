package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// SchemaDiscoverer provides PostgreSQL schema discovery within one schema.
type SchemaDiscoverer struct {
	schema  string
	conn    *pgxpool.Conn
	release func()
	logger  *zap.Logger
}

// NewSchemaDiscoverer creates a PostgreSQL schema discoverer using the connection manager.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, release, err := acquire(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &SchemaDiscoverer{schema: cfg.Schema, conn: conn, release: release, logger: logger}, nil
}

// Close returns the connection to the pool.
func (d *SchemaDiscoverer) Close() error {
	if d.release != nil {
		d.release()
		d.release = nil
	}
	return nil
}

func (d *SchemaDiscoverer) tableRef(tableName string) string {
	return pgx.Identifier{d.schema, tableName}.Sanitize()
}

// DiscoverTables returns base tables in the configured schema with exact row
// counts. Tables whose names start with an underscore are bookkeeping and skipped.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema = $1
		  AND left(table_name, 1) <> '_'
		ORDER BY table_name
	`

	rows, err := d.conn.Query(ctx, query, d.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	names, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan tables: %w", err)
	}

	tables := make([]datasource.TableMetadata, 0, len(names))
	for _, name := range names {
		t := datasource.TableMetadata{TableName: name}
		if err := d.conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+d.tableRef(name)).Scan(&t.RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", name, err)
		}
		tables = append(tables, t)
	}

	return tables, nil
}

// DiscoverColumns returns columns for a specific table in ordinal order.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, tableName string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT
			column_name,
			data_type,
			is_nullable = 'YES' AS is_nullable,
			ordinal_position
		FROM information_schema.columns
		WHERE table_schema = $1 AND table_name = $2
		ORDER BY ordinal_position
	`

	rows, err := d.conn.Query(ctx, query, d.schema, tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var c datasource.ColumnMetadata
		if err := rows.Scan(&c.ColumnName, &c.DataType, &c.IsNullable, &c.OrdinalPosition); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s.%s not found", d.schema, tableName)
	}

	return columns, nil
}

// GetSampleRows returns up to limit rows of a table.
func (d *SchemaDiscoverer) GetSampleRows(ctx context.Context, tableName string, limit int) (*datasource.QueryExecutionResult, error) {
	rows, err := d.conn.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT $1", d.tableRef(tableName)), limit)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", tableName, err)
	}
	return collectResult(d.conn.Conn().TypeMap(), rows, limit)
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (d *SchemaDiscoverer) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	quotedCol := pgx.Identifier{columnName}.Sanitize()

	query := fmt.Sprintf(`
		SELECT DISTINCT %s::text
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY 1
		LIMIT $1
	`, quotedCol, d.tableRef(tableName), quotedCol)

	rows, err := d.conn.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s: %w", tableName, columnName, err)
	}
	values, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan distinct values: %w", err)
	}
	return values, nil
}

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
