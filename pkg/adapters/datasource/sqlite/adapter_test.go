package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

func salesTable() *datasource.TableData {
	return &datasource.TableData{
		Name:       "sales",
		SourceName: "Sales Data",
		Columns: []datasource.ColumnMetadata{
			{ColumnName: "product", OriginalName: "Product", DataType: "TEXT", OrdinalPosition: 1},
			{ColumnName: "week", OriginalName: "Week #", DataType: "INTEGER", OrdinalPosition: 2},
			{ColumnName: "units", OriginalName: "Units", DataType: "INTEGER", OrdinalPosition: 3},
		},
		Rows: [][]any{
			{"widget", int64(25), int64(10)},
			{"gadget", int64(25), int64(4)},
			{"widget", int64(26), int64(7)},
		},
	}
}

func seedStore(t *testing.T) *Config {
	t.Helper()
	cfg := &Config{Path: filepath.Join(t.TempDir(), "store.db")}

	w, err := NewTableWriter(context.Background(), cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.ReplaceTable(context.Background(), salesTable()))
	return cfg
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{"path": "data/x.db"})
	require.NoError(t, err)
	assert.Equal(t, "data/x.db", cfg.Path)

	_, err = FromMap(map[string]any{})
	assert.Error(t, err)
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{Path: "data/x.db"}

	ro := cfg.dsn(true)
	assert.Contains(t, ro, "file:data/x.db?")
	assert.Contains(t, ro, "_query_only=true")
	assert.Contains(t, ro, "mode=ro")

	rw := cfg.dsn(false)
	assert.NotContains(t, rw, "_query_only")
	assert.NotEqual(t, cfg.poolKey(true), cfg.poolKey(false))
}

func TestQuoteIdentifier(t *testing.T) {
	assert.Equal(t, `"sales"`, quoteIdentifier("sales"))
	assert.Equal(t, `"a""b"`, quoteIdentifier(`a"b`))
}

func TestSchemaDiscoverer_DiscoversIngestedTable(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	d, err := NewSchemaDiscoverer(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer d.Close()

	tables, err := d.DiscoverTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1, "bookkeeping tables must be excluded")
	assert.Equal(t, "sales", tables[0].TableName)
	assert.Equal(t, "Sales Data", tables[0].SourceName)
	assert.Equal(t, int64(3), tables[0].RowCount)

	columns, err := d.DiscoverColumns(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "week", columns[1].ColumnName)
	assert.Equal(t, "Week #", columns[1].OriginalName)
	assert.Equal(t, "INTEGER", columns[1].DataType)
	assert.Equal(t, 2, columns[1].OrdinalPosition)

	sample, err := d.GetSampleRows(ctx, "sales", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"product", "week", "units"}, sample.ColumnNames())
	require.Len(t, sample.Rows, 2)
	assert.Equal(t, []any{"widget", int64(25), int64(10)}, sample.Rows[0])

	values, err := d.GetDistinctValues(ctx, "sales", "product", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget", "widget"}, values)
}

func TestSchemaDiscoverer_UnknownTable(t *testing.T) {
	cfg := seedStore(t)

	d, err := NewSchemaDiscoverer(context.Background(), cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer d.Close()

	_, err = d.DiscoverColumns(context.Background(), "missing")
	assert.Error(t, err)
}

func TestSchemaDiscoverer_MissingFile(t *testing.T) {
	cfg := &Config{Path: filepath.Join(t.TempDir(), "absent.db")}

	_, err := NewSchemaDiscoverer(context.Background(), cfg, nil, zaptest.NewLogger(t))
	assert.Error(t, err, "read-only handles must not create the store")
}

func TestQueryExecutor_Query(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	e, err := NewQueryExecutor(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	result, err := e.Query(ctx, `SELECT SUM(units) AS total FROM sales WHERE week = 25 AND product = 'widget'`, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"total"}, result.ColumnNames())
	assert.Equal(t, [][]any{{int64(10)}}, result.Rows)
	assert.False(t, result.Truncated)
}

func TestQueryExecutor_TruncatesAtLimit(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	e, err := NewQueryExecutor(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	result, err := e.Query(ctx, `SELECT * FROM sales`, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.RowCount)
	assert.True(t, result.Truncated)
}

func TestQueryExecutor_RefusesWrites(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	e, err := NewQueryExecutor(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Query(ctx, `DELETE FROM sales`, 10)
	require.Error(t, err)

	result, err := e.Query(ctx, `SELECT COUNT(*) FROM sales`, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Rows[0][0])
}

func TestQueryExecutor_UnknownColumnError(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	e, err := NewQueryExecutor(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Query(ctx, `SELECT revenue FROM sales`, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such column")
}

func TestTableWriter_ReplaceTableTwice(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	w, err := NewTableWriter(ctx, cfg, nil, logger)
	require.NoError(t, err)
	data := salesTable()
	data.Rows = data.Rows[:1]
	require.NoError(t, w.ReplaceTable(ctx, data))
	require.NoError(t, w.Close())

	d, err := NewSchemaDiscoverer(ctx, cfg, nil, logger)
	require.NoError(t, err)
	defer d.Close()

	tables, err := d.DiscoverTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, int64(1), tables[0].RowCount)
}

func TestTableWriter_RowWidthMismatch(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()

	w, err := NewTableWriter(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer w.Close()

	data := salesTable()
	data.Rows = append(data.Rows, []any{"orphan"})
	require.Error(t, w.ReplaceTable(ctx, data))

	// The failed replace must leave the previous table intact.
	e, err := NewQueryExecutor(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()
	result, err := e.Query(ctx, `SELECT COUNT(*) FROM sales`, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.Rows[0][0])
}

func TestManagedConnections_ReturnedToPool(t *testing.T) {
	cfg := seedStore(t)
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, logger)
	defer connMgr.Close()

	for i := 0; i < 3; i++ {
		d, err := NewSchemaDiscoverer(ctx, cfg, connMgr, logger)
		require.NoError(t, err)
		_, err = d.DiscoverTables(ctx)
		require.NoError(t, err)
		require.NoError(t, d.Close())

		e, err := NewQueryExecutor(ctx, cfg, connMgr, logger)
		require.NoError(t, err)
		_, err = e.Query(ctx, `SELECT * FROM sales`, 10)
		require.NoError(t, err)
		stats := e.conn.Stats()
		require.NoError(t, e.Close())
		assert.Equal(t, 1, stats.InUse, "executor holds exactly one connection while open")
	}

	connector, err := connMgr.GetOrCreateConnection(ctx, cfg.poolKey(true), nil)
	require.NoError(t, err)
	db, err := datasource.GetSQLDB(connector)
	require.NoError(t, err)
	assert.Equal(t, 0, db.Stats().InUse)
	assert.Equal(t, 1, connMgr.GetStats().TotalConnections)
}
