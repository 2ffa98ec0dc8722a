package datasource

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/logging"
	"github.com/ekaya-inc/ekaya-ask/pkg/retry"
)

const (
	DefaultConnectionTTLMinutes = 5
	DefaultCleanupInterval      = 1 * time.Minute
	DefaultPoolMaxConns         = 10
	DefaultPoolMinConns         = 1
)

// ConnectionManagerConfig holds configuration for the connection manager
type ConnectionManagerConfig struct {
	TTLMinutes   int
	PoolMaxConns int32
	PoolMinConns int32
}

// PoolCreator opens a new pool. It is called with retries on transient failure.
type PoolCreator func(ctx context.Context, config ConnectionManagerConfig) (PoolConnector, error)

// ConnectionManager caches one pool per store key, health-checks pools before
// handing them out, and closes pools left idle past the TTL. Pools are
// long-lived; callers check a single connection out of a pool per operation.
type ConnectionManager struct {
	mu          sync.RWMutex
	connections map[string]*ManagedConnection
	config      ConnectionManagerConfig
	ttl         time.Duration
	stopped     bool
	stopChan    chan struct{}
	logger      *zap.Logger
}

// ManagedConnection is a cached pool and when it was last handed out.
type ManagedConnection struct {
	conn     PoolConnector
	lastUsed time.Time
	mu       sync.Mutex
}

// NewConnectionManager creates a connection manager with the given configuration.
// Starts a background cleanup goroutine that runs until Close() is called.
func NewConnectionManager(cfg ConnectionManagerConfig, logger *zap.Logger) *ConnectionManager {
	if cfg.TTLMinutes <= 0 {
		cfg.TTLMinutes = DefaultConnectionTTLMinutes
	}
	if cfg.PoolMaxConns <= 0 {
		cfg.PoolMaxConns = DefaultPoolMaxConns
	}
	if cfg.PoolMinConns <= 0 {
		cfg.PoolMinConns = DefaultPoolMinConns
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	manager := &ConnectionManager{
		connections: make(map[string]*ManagedConnection),
		config:      cfg,
		ttl:         time.Duration(cfg.TTLMinutes) * time.Minute,
		stopChan:    make(chan struct{}),
		logger:      logger.Named("connections"),
	}

	go manager.cleanupExpiredConnections()
	return manager
}

// Config returns the pool settings new pools should use.
func (m *ConnectionManager) Config() ConnectionManagerConfig {
	return m.config
}

// GetOrCreateConnection returns the cached pool for key, recreating it if a
// ping fails, or creates one with create.
func (m *ConnectionManager) GetOrCreateConnection(ctx context.Context, key string, create PoolCreator) (PoolConnector, error) {
	m.mu.RLock()
	managed, exists := m.connections[key]
	stopped := m.stopped
	m.mu.RUnlock()

	if stopped {
		return nil, fmt.Errorf("connection manager is closed")
	}

	if exists {
		managed.mu.Lock()

		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err := retry.Do(healthCtx, retry.DefaultConfig(), func() error {
			return managed.conn.Ping(healthCtx)
		})
		if err != nil {
			m.logger.Warn("connection unhealthy, recreating",
				zap.String("key", key),
				zap.String("error", logging.SanitizeError(err)),
			)
			managed.mu.Unlock()
			m.Remove(key)
			return m.createConnection(ctx, key, create)
		}

		managed.lastUsed = time.Now()
		managed.mu.Unlock()
		return managed.conn, nil
	}

	return m.createConnection(ctx, key, create)
}

// createConnection creates a pool with retry logic.
// Caller must NOT hold any locks (this method acquires write lock).
func (m *ConnectionManager) createConnection(ctx context.Context, key string, create PoolCreator) (PoolConnector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Another goroutine may have created it while we waited for the lock.
	if managed, exists := m.connections[key]; exists && managed != nil {
		managed.mu.Lock()
		defer managed.mu.Unlock()
		managed.lastUsed = time.Now()
		return managed.conn, nil
	}

	conn, err := retry.DoWithResult(ctx, retry.DefaultConfig(), func() (PoolConnector, error) {
		return create(ctx, m.config)
	})
	if err != nil {
		m.logger.Error("failed to create pool after retries",
			zap.String("key", key),
			zap.String("error", logging.SanitizeError(err)),
		)
		return nil, fmt.Errorf("failed to create pool for %s after retries: %w", key, err)
	}

	m.connections[key] = &ManagedConnection{
		conn:     conn,
		lastUsed: time.Now(),
	}

	m.logger.Info("created new connection pool",
		zap.String("key", key),
		zap.String("type", conn.GetType()),
		zap.Int("total_pools", len(m.connections)),
	)

	return conn, nil
}

// Remove closes and forgets the pool for key, if any.
func (m *ConnectionManager) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if managed, exists := m.connections[key]; exists && managed != nil {
		if err := managed.conn.Close(); err != nil {
			m.logger.Warn("failed to close pool", zap.String("key", key), zap.Error(err))
		}
		delete(m.connections, key)
		m.logger.Debug("removed connection", zap.String("key", key))
	}
}

// cleanupExpiredConnections runs periodically until stopChan is closed.
func (m *ConnectionManager) cleanupExpiredConnections() {
	ticker := time.NewTicker(DefaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.performCleanup(time.Now())
		case <-m.stopChan:
			return
		}
	}
}

// performCleanup closes pools idle longer than the TTL.
// Lock ordering: manager lock, then connection lock.
func (m *ConnectionManager) performCleanup(now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}

	expired := 0
	for key, managed := range m.connections {
		managed.mu.Lock()
		idle := now.Sub(managed.lastUsed)
		managed.mu.Unlock()

		if idle <= m.ttl {
			continue
		}
		if err := managed.conn.Close(); err != nil {
			m.logger.Warn("failed to close idle pool", zap.String("key", key), zap.Error(err))
		}
		delete(m.connections, key)
		expired++
		m.logger.Debug("closed idle pool",
			zap.String("key", key),
			zap.Duration("idle", idle),
		)
	}

	if expired > 0 {
		m.logger.Info("cleaned up expired connections",
			zap.Int("count", expired),
			zap.Int("remaining", len(m.connections)),
		)
	}
}

// Close closes all pools and stops the cleanup goroutine. Idempotent.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return nil
	}

	m.stopped = true
	close(m.stopChan)

	for key, managed := range m.connections {
		if err := managed.conn.Close(); err != nil {
			m.logger.Warn("failed to close pool", zap.String("key", key), zap.Error(err))
		}
	}

	m.connections = make(map[string]*ManagedConnection)
	m.logger.Info("connection manager closed")
	return nil
}

// GetStats returns statistics about the connection manager.
func (m *ConnectionManager) GetStats() ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	now := time.Now()
	stats := ConnectionStats{
		TotalConnections:  len(m.connections),
		TTLMinutes:        int(m.ttl.Minutes()),
		ConnectionsByType: make(map[string]int),
	}

	for _, managed := range m.connections {
		stats.ConnectionsByType[managed.conn.GetType()]++

		managed.mu.Lock()
		idleSeconds := int(now.Sub(managed.lastUsed).Seconds())
		managed.mu.Unlock()
		if idleSeconds > stats.OldestIdleSeconds {
			stats.OldestIdleSeconds = idleSeconds
		}
	}

	return stats
}

// ConnectionStats contains statistics about the connection manager state.
type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	TTLMinutes        int            `json:"ttl_minutes"`
	ConnectionsByType map[string]int `json:"connections_by_type"`
	OldestIdleSeconds int            `json:"oldest_idle_seconds"`
}
