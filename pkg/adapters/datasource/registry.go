package datasource

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// DatasourceAdapterInfo describes a registered store adapter.
type DatasourceAdapterInfo struct {
	Type        string `json:"type"`         // "sqlite", "postgres", "mssql"
	DisplayName string `json:"display_name"` // "SQLite", "PostgreSQL"
	Description string `json:"description"`
	Writable    bool   `json:"writable"` // accepts workbook ingestion
}

// ConnectionTesterFactory builds a ConnectionTester for one store config.
type ConnectionTesterFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, logger *zap.Logger) (ConnectionTester, error)

// SchemaDiscovererFactory builds a SchemaDiscoverer for one store config.
type SchemaDiscovererFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, logger *zap.Logger) (SchemaDiscoverer, error)

// QueryExecutorFactory builds a read-only QueryExecutor for one store config.
type QueryExecutorFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, logger *zap.Logger) (QueryExecutor, error)

// TableWriterFactory builds a TableWriter for one store config.
type TableWriterFactory func(ctx context.Context, config map[string]any, connMgr *ConnectionManager, logger *zap.Logger) (TableWriter, error)

// DatasourceAdapterRegistration contains info + factories for creating adapters.
// TableWriterFactory is nil for stores that are queried but never ingested into.
type DatasourceAdapterRegistration struct {
	Info                    DatasourceAdapterInfo
	Factory                 ConnectionTesterFactory
	SchemaDiscovererFactory SchemaDiscovererFactory
	QueryExecutorFactory    QueryExecutorFactory
	TableWriterFactory      TableWriterFactory
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]DatasourceAdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	reg.Info.Writable = reg.TableWriterFactory != nil
	registry[reg.Info.Type] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by type.
func RegisteredAdapters() []DatasourceAdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}

func lookup(dsType string) (DatasourceAdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	reg, ok := registry[dsType]
	return reg, ok
}

// GetFactory returns the connection tester factory for a store type, or nil.
func GetFactory(dsType string) ConnectionTesterFactory {
	reg, _ := lookup(dsType)
	return reg.Factory
}

// GetSchemaDiscovererFactory returns the schema discoverer factory for a store type, or nil.
func GetSchemaDiscovererFactory(dsType string) SchemaDiscovererFactory {
	reg, _ := lookup(dsType)
	return reg.SchemaDiscovererFactory
}

// GetQueryExecutorFactory returns the query executor factory for a store type, or nil.
func GetQueryExecutorFactory(dsType string) QueryExecutorFactory {
	reg, _ := lookup(dsType)
	return reg.QueryExecutorFactory
}

// GetTableWriterFactory returns the table writer factory for a store type, or nil.
func GetTableWriterFactory(dsType string) TableWriterFactory {
	reg, _ := lookup(dsType)
	return reg.TableWriterFactory
}

// IsRegistered checks if an adapter type is available.
func IsRegistered(dsType string) bool {
	_, ok := lookup(dsType)
	return ok
}
