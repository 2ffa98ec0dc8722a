package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// SchemaDiscoverer provides SQLite schema discovery.
type SchemaDiscoverer struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewSchemaDiscoverer creates a SQLite schema discoverer on a read-only connection.
// If logger is nil, a no-op logger is used.
func NewSchemaDiscoverer(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*SchemaDiscoverer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := checkout(ctx, cfg, connMgr, true)
	if err != nil {
		return nil, err
	}
	return &SchemaDiscoverer{conn: conn, logger: logger}, nil
}

// Close returns the connection to the pool.
func (d *SchemaDiscoverer) Close() error {
	return d.conn.Close()
}

func (d *SchemaDiscoverer) hasTable(ctx context.Context, name string) (bool, error) {
	var found string
	err := d.conn.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&found)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("look up %s: %w", name, err)
	}
	return true, nil
}

// DiscoverTables returns user tables with exact row counts. SQLite internals
// and underscore-prefixed bookkeeping tables are excluded. Source names come
// from the ingestion catalog when one exists.
func (d *SchemaDiscoverer) DiscoverTables(ctx context.Context) ([]datasource.TableMetadata, error) {
	const query = `
		SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite\_%' ESCAPE '\'
		  AND name NOT LIKE '\_%' ESCAPE '\'
		ORDER BY name
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

	sourceNames, err := d.sourceNames(ctx)
	if err != nil {
		return nil, err
	}

	for i := range tables {
		count := fmt.Sprintf("SELECT COUNT(*) FROM %s", quoteIdentifier(tables[i].TableName))
		if err := d.conn.QueryRowContext(ctx, count).Scan(&tables[i].RowCount); err != nil {
			return nil, fmt.Errorf("count rows in %s: %w", tables[i].TableName, err)
		}
		tables[i].SourceName = sourceNames[tables[i].TableName]
	}

	return tables, nil
}

func (d *SchemaDiscoverer) sourceNames(ctx context.Context) (map[string]string, error) {
	names := make(map[string]string)
	ok, err := d.hasTable(ctx, "_ingested_tables")
	if err != nil || !ok {
		return names, err
	}

	rows, err := d.conn.QueryContext(ctx, `SELECT table_name, source_name FROM _ingested_tables`)
	if err != nil {
		return nil, fmt.Errorf("query ingested tables: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var table, source string
		if err := rows.Scan(&table, &source); err != nil {
			return nil, fmt.Errorf("scan ingested table: %w", err)
		}
		names[table] = source
	}
	return names, rows.Err()
}

// DiscoverColumns returns a table's columns in ordinal order, with original
// header text from the ingestion catalog when one exists.
func (d *SchemaDiscoverer) DiscoverColumns(ctx context.Context, tableName string) ([]datasource.ColumnMetadata, error) {
	query := fmt.Sprintf("PRAGMA table_info(%s)", quoteIdentifier(tableName))

	rows, err := d.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}

	var columns []datasource.ColumnMetadata
	for rows.Next() {
		var (
			cid       int
			c         datasource.ColumnMetadata
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &c.ColumnName, &c.DataType, &notNull, &dfltValue, &pk); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan column: %w", err)
		}
		c.IsNullable = notNull == 0
		c.OrdinalPosition = cid + 1
		columns = append(columns, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate columns: %w", err)
	}
	rows.Close()

	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", tableName)
	}

	originals, err := d.originalNames(ctx, tableName)
	if err != nil {
		return nil, err
	}
	for i := range columns {
		columns[i].OriginalName = originals[columns[i].ColumnName]
	}

	return columns, nil
}

func (d *SchemaDiscoverer) originalNames(ctx context.Context, tableName string) (map[string]string, error) {
	names := make(map[string]string)
	ok, err := d.hasTable(ctx, "_ingested_columns")
	if err != nil || !ok {
		return names, err
	}

	rows, err := d.conn.QueryContext(ctx,
		`SELECT column_name, original_name FROM _ingested_columns WHERE table_name = ?`, tableName)
	if err != nil {
		return nil, fmt.Errorf("query ingested columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var column, original string
		if err := rows.Scan(&column, &original); err != nil {
			return nil, fmt.Errorf("scan ingested column: %w", err)
		}
		names[column] = original
	}
	return names, rows.Err()
}

// GetSampleRows returns the first limit rows of a table in storage order.
func (d *SchemaDiscoverer) GetSampleRows(ctx context.Context, tableName string, limit int) (*datasource.QueryExecutionResult, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT ?", quoteIdentifier(tableName))

	rows, err := d.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("sample rows from %s: %w", tableName, err)
	}
	defer rows.Close()

	return datasource.ScanRows(rows, limit)
}

// GetDistinctValues returns up to limit distinct non-null values from a column.
func (d *SchemaDiscoverer) GetDistinctValues(ctx context.Context, tableName, columnName string, limit int) ([]string, error) {
	quotedCol := quoteIdentifier(columnName)
	query := fmt.Sprintf(`
		SELECT DISTINCT CAST(%s AS TEXT)
		FROM %s
		WHERE %s IS NOT NULL
		ORDER BY 1
		LIMIT ?
	`, quotedCol, quoteIdentifier(tableName), quotedCol)

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

var _ datasource.SchemaDiscoverer = (*SchemaDiscoverer)(nil)
