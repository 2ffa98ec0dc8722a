package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

const driverName = "mysql"

func checkout(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*datasource.SQLConn, error) {
	return datasource.CheckoutSQLConn(ctx, connMgr, cfg.poolKey(), driverName, cfg.dsn(), "mysql")
}

// Adapter provides MySQL connectivity checks.
type Adapter struct {
	config *Config
	conn   *datasource.SQLConn
}

// NewAdapter creates a MySQL adapter.
func NewAdapter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*Adapter, error) {
	conn, err := checkout(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, conn: conn}, nil
}

// TestConnection verifies we can query and landed in the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var currentDB sql.NullString
	if err := a.conn.QueryRowContext(ctx, "SELECT DATABASE()").Scan(&currentDB); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if !strings.EqualFold(currentDB.String, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB.String)
	}
	return nil
}

// Close returns the connection to the pool.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

// SchemaDiscoverer provides MySQL schema discovery in the connected database.
type SchemaDiscoverer struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a MySQL schema discoverer.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := checkout(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &SchemaDiscoverer{conn: conn, logger: logger}, nil
}

// Close returns the connection to the pool.
func (d *SchemaDiscoverer) Close() error {
	return d.conn.Close()
}

// DiscoverTables returns base tables with exact row counts.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
		  AND TABLE_SCHEMA = DATABASE()
		  AND LEFT(TABLE_NAME, 1) <> '_'
		ORDER BY TABLE_NAME
	`

	rows, err := d.conn.QueryContext(ctx, query)
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
		if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+quoteIdentifier(tables[i].TableName)).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", tables[i].TableName, err)
		}
	}
	return tables, nil
}

// DiscoverColumns returns columns for a specific table in ordinal order.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, tableName string) ([]datasource.ColumnMetadata, error) {
	const query = `
		SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE = 'YES', ORDINAL_POSITION
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?
		ORDER BY ORDINAL_POSITION
	`

	rows, err := d.conn.QueryContext(ctx, query, tableName)
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
	rows, err := d.conn.QueryContext(ctx, "SELECT * FROM "+quoteIdentifier(tableName)+" LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", tableName, err)
	}
	defer rows.Close()
	return datasource.ScanRows(rows, limit)
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (d *SchemaDiscoverer) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	col := quoteIdentifier(columnName)
	query := fmt.Sprintf(`
		SELECT DISTINCT CAST(%s AS CHAR)
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY 1
		LIMIT ?
	`, col, quoteIdentifier(tableName), col)

	rows, err := d.conn.QueryContext(ctx, query, limit)
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

// QueryExecutor runs statements inside READ ONLY transactions.
type QueryExecutor struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewQueryExecutor creates a MySQL query executor.
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
	return e.conn.QueryRolledBack(ctx, &sql.TxOptions{ReadOnly: true}, sqlQuery, limit)
}

// QuoteIdentifier wraps a name in backticks.
func (e *QueryExecutor) QuoteIdentifier(name string) string {
	return quoteIdentifier(name)
}

// Close returns the connection to the pool.
func (e *QueryExecutor) Close() error {
	return e.conn.Close()
}

var (
	_ datasource.ConnectionTester = (*Adapter)(nil)
	_ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
	_ datasource.QueryExecutor    = (*QueryExecutor)(nil)
)
