package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// SQLConn is one connection checked out of a database/sql pool. Close
// returns it to the pool, and also closes the pool when the pool was opened
// just for this connection (no connection manager).
type SQLConn struct {
	*sql.Conn
	db    *sql.DB
	owned bool
}

// CheckoutSQLConn gets the pool for key from connMgr, opening it with
// driverName/dsn on first use, and checks a single connection out of it.
// A nil connMgr opens an unmanaged pool owned by the returned connection.
func CheckoutSQLConn(ctx context.Context, connMgr *ConnectionManager, key, driverName, dsn, dbType string) (*SQLConn, error) {
	var (
		db    *sql.DB
		owned bool
	)

	create := func(ctx context.Context, cfg ConnectionManagerConfig) (PoolConnector, error) {
		return OpenSQLDB(ctx, driverName, dsn, dbType, cfg)
	}

	if connMgr == nil {
		connector, err := create(ctx, ConnectionManagerConfig{
			TTLMinutes:   DefaultConnectionTTLMinutes,
			PoolMaxConns: DefaultPoolMaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", dbType, err)
		}
		db, _ = GetSQLDB(connector)
		owned = true
	} else {
		connector, err := connMgr.GetOrCreateConnection(ctx, key, create)
		if err != nil {
			return nil, fmt.Errorf("failed to get pooled connection: %w", err)
		}
		db, err = GetSQLDB(connector)
		if err != nil {
			return nil, fmt.Errorf("failed to extract %s pool: %w", dbType, err)
		}
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		if owned {
			db.Close()
		}
		return nil, fmt.Errorf("check out %s connection: %w", dbType, err)
	}

	return &SQLConn{Conn: conn, db: db, owned: owned}, nil
}

// Close returns the connection to its pool.
func (c *SQLConn) Close() error {
	if c == nil || c.Conn == nil {
		return nil
	}
	err := c.Conn.Close()
	if c.owned {
		err = errors.Join(err, c.db.Close())
	}
	return err
}

// QueryRolledBack runs sqlQuery inside a transaction that is always rolled
// back and reads at most limit rows. Driver errors are returned unwrapped.
func (c *SQLConn) QueryRolledBack(ctx context.Context, opts *sql.TxOptions, sqlQuery string, limit int) (*QueryExecutionResult, error) {
	tx, err := c.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // nothing was written

	rows, err := tx.QueryContext(ctx, sqlQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows, limit)
}

// Stats reports the underlying pool's statistics.
func (c *SQLConn) Stats() sql.DBStats {
	return c.db.Stats()
}
