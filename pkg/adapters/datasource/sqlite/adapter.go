package sqlite

import (
	"context"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

const driverName = "sqlite3"

// Adapter tests SQLite connectivity.
type Adapter struct {
	config *Config
	conn   *datasource.SQLConn
}

func checkout(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, readOnly bool) (*datasource.SQLConn, error) {
	return datasource.CheckoutSQLConn(ctx, connMgr, cfg.poolKey(readOnly), driverName, cfg.dsn(readOnly), "sqlite")
}

// NewAdapter creates a SQLite adapter on a read-only connection.
// If connMgr is nil, creates an unmanaged pool (for tests or TestConnection).
func NewAdapter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*Adapter, error) {
	conn, err := checkout(ctx, cfg, connMgr, true)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, conn: conn}, nil
}

// TestConnection verifies the store file opens and answers a query.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var result int
	if err := a.conn.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}
	return nil
}

// Close returns the connection to the pool.
func (a *Adapter) Close() error {
	return a.conn.Close()
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
