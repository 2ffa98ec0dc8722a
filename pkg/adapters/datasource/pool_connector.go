package datasource

import "context"

// PoolConnector abstracts a connection pool across store types
// (pgxpool for PostgreSQL, database/sql for everything else).
type PoolConnector interface {
	// Ping verifies the pool can reach the store
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// GetType returns the store type for logging/stats
	GetType() string
}
