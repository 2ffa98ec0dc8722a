package mssql

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// SchemaDiscoverer provides SQL Server schema discovery within one schema.
type SchemaDiscoverer struct {
	schema string
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a SQL Server schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := checkout(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &SchemaDiscoverer{schema: cfg.Schema, conn: conn, logger: logger}, nil
}

// Close returns the connection to the pool.
func (d *SchemaDiscoverer) Close() error {
	return d.conn.Close()
}

// DiscoverTables returns base tables in the configured schema with exact row counts.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT TABLE_NAME
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		  AND TABLE_SCHEMA = @p1
		  AND LEFT(TABLE_NAME, 1) <> '_'
		ORDER BY TABLE_NAME
	`

	rows, err := d.conn.QueryContext(ctx, query, d.schema)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}

	var tables []datasource.TableMetadata
	for rows.Next() {
		var t datasource.TableMetadata
		if err := rows.Scan(&t.TableName); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate tables: %w", err)
	}
	rows.Close()

	for i := range tables {
		count := "SELECT COUNT_BIG(*) FROM " + buildFullyQualifiedName(d.schema, tables[i].TableName)
		if err := d.conn.QueryRowContext(ctx, count).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", tables[i].TableName, err)
		}
	}

	return tables, nil
}

// DiscoverColumns returns columns for a specific table in ordinal order.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, tableName string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT COLUMN_NAME, DATA_TYPE, CASE WHEN IS_NULLABLE = 'YES' THEN 1 ELSE 0 END, ORDINAL_POSITION
		FROM INFORMATION_SCHEMA.COLUMNS
		WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2
		ORDER BY ORDINAL_POSITION
	`

	rows, err := d.conn.QueryContext(ctx, query, d.schema, tableName)
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
	query := fmt.Sprintf("SELECT TOP (%d) * FROM %s", limit, buildFullyQualifiedName(d.schema, tableName))
	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", tableName, err)
	}
	defer rows.Close()
	return datasource.ScanRows(rows, limit)
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (d *SchemaDiscoverer) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	col := quoteName(columnName)
	query := fmt.Sprintf(`
		SELECT DISTINCT TOP (%d) CAST(%s AS NVARCHAR(4000)) AS val
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY val
	`, limit, col, buildFullyQualifiedName(d.schema, tableName), col)

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get distinct values for %s.%s: %w", tableName, columnName, err)
	}
	defer rows.Close()

	var values []string
	for rows.Next() {
		var val string
		if err := rows.Scan(&val); err != nil {
			return nil, fmt.Errorf("scan distinct value: %w", err)
		}
		values = append(values, val)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate distinct values: %w", err)
	}
	return values, nil
}

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
