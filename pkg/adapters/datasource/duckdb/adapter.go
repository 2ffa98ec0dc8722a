//go:build duckdb || all_adapters

// Package duckdb registers a read-only DuckDB store. It needs cgo, so it is
// only compiled with the duckdb or all_adapters build tag.
package duckdb

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// Config contains DuckDB connection options.
type Config struct {
	Path   string
	Schema string // default "main"
}

// FromMap creates a Config from a generic config map.
func FromMap(config map[string]any) (*Config, error) {
	path, ok := config["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cfg := &Config{Path: path, Schema: "main"}
	if schema, ok := config["schema"].(string); ok && schema != "" {
		cfg.Schema = schema
	}
	return cfg, nil
}

func (c *Config) dsn() string {
	return c.Path + "?access_mode=READ_ONLY"
}

func (c *Config) poolKey() string {
	abs, err := filepath.Abs(c.Path)
	if err != nil {
		abs = c.Path
	}
	return "duckdb:" + abs
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func checkout(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*datasource.SQLConn, error) {
	return datasource.CheckoutSQLConn(ctx, connMgr, cfg.poolKey(), "duckdb", cfg.dsn(), "duckdb")
}

// Adapter tests DuckDB connectivity.
type Adapter struct {
	conn *datasource.SQLConn
}

// TestConnection runs a trivial query.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var one int
	if err := a.conn.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Close returns the connection to the pool.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

// SchemaDiscoverer provides DuckDB schema discovery within one schema.
type SchemaDiscoverer struct {
	schema string
	conn   *datasource.SQLConn
	logger *zap.Logger
}

func (d *SchemaDiscoverer) tableRef(name string) string {
	return quoteIdentifier(d.schema) + "." + quoteIdentifier(name)
}

// DiscoverTables returns base tables with exact row counts.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema = ?
		  AND NOT starts_with(table_name, '_')
		ORDER BY table_name`, d.schema)
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
		if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+d.tableRef(tables[i].TableName)).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", tables[i].TableName, err)
		}
	}
	return tables, nil
}

// DiscoverColumns returns columns for a specific table in ordinal order.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, tableName string) ([]datasource.ColumnMetadata, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES', ordinal_position
		FROM information_schema.columns
		WHERE table_schema = ? AND table_name = ?
		ORDER BY ordinal_position`, d.schema, tableName)
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
		return nil, fmt.Errorf("table %s not found", tableName)
	}
	return columns, nil
}

// GetSampleRows returns up to limit rows of a table.
func (d *SchemaDiscoverer) GetSampleRows(ctx context.Context, tableName string, limit int) (*datasource.QueryExecutionResult, error) {
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", d.tableRef(tableName), limit))
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", tableName, err)
	}
	defer rows.Close()
	return datasource.ScanRows(rows, limit)
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (d *SchemaDiscoverer) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	col := quoteIdentifier(columnName)
	rows, err := d.conn.QueryContext(ctx, fmt.Sprintf(
		"SELECT DISTINCT CAST(%s AS VARCHAR) FROM %s WHERE %s IS NOT NULL ORDER BY 1 LIMIT %d",
		col, d.tableRef(tableName), col, limit))
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

// Close returns the connection to the pool.
func (d *SchemaDiscoverer) Close() error {
	return d.conn.Close()
}

// QueryExecutor runs statements against a database opened in READ_ONLY mode.
type QueryExecutor struct {
	conn *datasource.SQLConn
}

// Query runs sqlQuery and reads back at most limit rows.
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

func init() {
	datasource.Register(datasource.DatasourceAdapterRegistration{
		Info: datasource.DatasourceAdapterInfo{
			Type:        "duckdb",
			DisplayName: "DuckDB",
			Description: "Local DuckDB file, opened read-only",
		},
		Factory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.ConnectionTester, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			conn, err := checkout(ctx, cfg, connMgr)
			if err != nil {
				return nil, err
			}
			return &Adapter{conn: conn}, nil
		},
		SchemaDiscovererFactory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.SchemaDiscoverer, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			conn, err := checkout(ctx, cfg, connMgr)
			if err != nil {
				return nil, err
			}
			return &SchemaDiscoverer{schema: cfg.Schema, conn: conn, logger: logger}, nil
		},
		QueryExecutorFactory: func(ctx context.Context, config map[string]any, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.QueryExecutor, error) {
			cfg, err := FromMap(config)
			if err != nil {
				return nil, err
			}
			conn, err := checkout(ctx, cfg, connMgr)
			if err != nil {
				return nil, err
			}
			return &QueryExecutor{conn: conn}, nil
		},
	})
}

var (
	_ datasource.ConnectionTester = (*Adapter)(nil)
	_ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
	_ datasource.QueryExecutor    = (*QueryExecutor)(nil)
)
