package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
)

// acquire checks one connection out of the managed pool for cfg. With a nil
// connMgr the pool is created just for this connection and release closes it.
func acquire(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*pgxpool.Conn, func(), error) {
	if connMgr == nil {
		pool, err := pgxpool.New(ctx, cfg.connectionString())
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		conn, err := pool.Acquire(ctx)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("acquire postgres connection: %w", err)
		}
		return conn, func() { conn.Release(); pool.Close() }, nil
	}

	connector, err := connMgr.GetOrCreateConnection(ctx, cfg.poolKey(), func(ctx context.Context, mc datasource.ConnectionManagerConfig) (datasource.PoolConnector, error) {
		return datasource.CreatePostgresPool(ctx, cfg.connectionString(), mc)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get pooled connection: %w", err)
	}

	pool, err := datasource.GetPostgresPool(connector)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to extract postgres pool: %w", err)
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("acquire postgres connection: %w", err)
	}
	return conn, conn.Release, nil
}

// Adapter provides PostgreSQL connectivity checks.
type Adapter struct {
	config  *Config
	conn    *pgxpool.Conn
	release func()
}

// NewAdapter creates a PostgreSQL adapter using the connection manager.
// If connMgr is nil, creates an unmanaged pool (for tests or TestConnection).
func NewAdapter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager) (*Adapter, error) {
	conn, release, err := acquire(ctx, cfg, connMgr)
	if err != nil {
		return nil, err
	}
	return &Adapter{config: cfg, conn: conn, release: release}, nil
}

// TestConnection verifies the database is reachable and that we landed in
// the configured database rather than a server default.
func (a *Adapter) TestConnection(ctx context.Context) error {
	var currentDB string
	if err := a.conn.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// Close returns the connection to the pool.
func (a *Adapter) Close() error {
	if a.release != nil {
		a.release()
		a.release = nil
	}
	return nil
}

var _ datasource.ConnectionTester = (*Adapter)(nil)
