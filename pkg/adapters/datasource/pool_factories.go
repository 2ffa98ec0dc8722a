package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreatePostgresPool creates a PostgreSQL connection pool
func CreatePostgresPool(ctx context.Context, connString string, config ConnectionManagerConfig) (PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	poolConfig.MaxConns = config.PoolMaxConns
	poolConfig.MinConns = config.PoolMinConns
	poolConfig.MaxConnIdleTime = time.Duration(config.TTLMinutes) * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	return NewPostgresPoolWrapper(pool), nil
}

// OpenSQLDB opens a database/sql pool for driverName, applies the manager's
// pool limits, and pings it once.
func OpenSQLDB(ctx context.Context, driverName, dsn, dbType string, config ConnectionManagerConfig) (PoolConnector, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(int(config.PoolMaxConns))
	db.SetMaxIdleConns(int(config.PoolMaxConns))
	db.SetConnMaxIdleTime(time.Duration(config.TTLMinutes) * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return NewSQLDBPoolWrapper(db, dbType), nil
}

// GetPostgresPool extracts the underlying *pgxpool.Pool from a PoolConnector.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool wrapper")
	}
	return wrapper.GetPool(), nil
}

// GetSQLDB extracts the underlying *sql.DB from a PoolConnector.
func GetSQLDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*SQLDBPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a database/sql pool wrapper")
	}
	return wrapper.GetDB(), nil
}
