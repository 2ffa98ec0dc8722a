package mssql

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"         // SQL Server driver
	_ "github.com/microsoft/go-mssqldb/azuread" // Azure AD support

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

func checkout(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*datasource.SQLConn, error) {
	driver, dsn := cfg.driverAndDSN()
	return datasource.CheckoutSQLConn(ctx, connMgr, cfg.poolKey(), driver, dsn, "mssql")
}

// Adapter provides SQL Server connectivity checks.
type Adapter struct {
	config *Config
	conn   *datasource.SQLConn
}

// NewAdapter creates a SQL Server adapter.
// Uses connection manager for connection pooling when provided.
func NewAdapter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*Adapter, error) {
	conn, err := checkout(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, conn: conn}, nil
}

// TestConnection verifies we can query and landed in the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var currentDB string
	if err := a.conn.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}
	return nil
}

// Close returns the connection to the pool.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
