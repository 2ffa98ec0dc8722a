//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/testhelpers"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := FromMap(testhelpers.GetTestDB(t).AdapterConfig())
	require.NoError(t, err)
	return cfg
}

func TestAdapter_TestConnection(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	a, err := NewAdapter(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NoError(t, a.TestConnection(ctx))
}

func TestSchemaDiscoverer_Sales(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	d, err := NewSchemaDiscoverer(ctx, cfg, nil, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer d.Close()

	tables, err := d.DiscoverTables(ctx)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "sales", tables[0].TableName)
	assert.Equal(t, int64(len(testhelpers.SalesRows)), tables[0].RowCount)

	columns, err := d.DiscoverColumns(ctx, "sales")
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, "product", columns[0].ColumnName)

	values, err := d.GetDistinctValues(ctx, "sales", "product", 50)
	require.NoError(t, err)
	assert.Equal(t, []string{"gadget", "gizmo", "widget"}, values)
}

func TestQueryExecutor_ReadOnly(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	connMgr := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{}, zaptest.NewLogger(t))
	defer connMgr.Close()

	e, err := NewQueryExecutor(ctx, cfg, connMgr, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer e.Close()

	result, err := e.Query(ctx, `SELECT SUM(units) AS total FROM sales WHERE product = 'widget' AND week = 25`, 10)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.EqualValues(t, 10, result.Rows[0][0])

	_, err = e.Query(ctx, `DELETE FROM sales`, 10)
	require.Error(t, err, "read-only transaction must refuse writes")

	_, err = e.Query(ctx, `SELECT revenue FROM sales`, 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
