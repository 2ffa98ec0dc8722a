package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// DatasourceAdapterFactory creates adapters from the registry.
type DatasourceAdapterFactory interface {
	NewConnectionTester(ctx context.Context, dsType string, config map[string]any) (ConnectionTester, error)
	NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any) (SchemaDiscoverer, error)
	NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error)

	// NewTableWriter fails for store types that do not accept ingestion.
	NewTableWriter(ctx context.Context, dsType string, config map[string]any) (TableWriter, error)

	// ListTypes returns info for all registered adapter types.
	ListTypes() []DatasourceAdapterInfo
}

type registryFactory struct {
	connMgr *ConnectionManager
	logger  *zap.Logger
}

// NewDatasourceAdapterFactory returns a factory that uses the global registry.
func NewDatasourceAdapterFactory(connMgr *ConnectionManager, logger *zap.Logger) DatasourceAdapterFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		connMgr: connMgr,
		logger:  logger,
	}
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, dsType string, config map[string]any) (ConnectionTester, error) {
	factory := GetFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("unsupported store type: %s (not compiled in)", dsType)
	}
	return factory(ctx, config, f.connMgr, f.logger)
}

func (f *registryFactory) NewSchemaDiscoverer(ctx context.Context, dsType string, config map[string]any) (SchemaDiscoverer, error) {
	factory := GetSchemaDiscovererFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("schema discovery not supported for type: %s", dsType)
	}
	return factory(ctx, config, f.connMgr, f.logger)
}

func (f *registryFactory) NewQueryExecutor(ctx context.Context, dsType string, config map[string]any) (QueryExecutor, error) {
	factory := GetQueryExecutorFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("query execution not supported for type: %s", dsType)
	}
	return factory(ctx, config, f.connMgr, f.logger)
}

func (f *registryFactory) NewTableWriter(ctx context.Context, dsType string, config map[string]any) (TableWriter, error) {
	factory := GetTableWriterFactory(dsType)
	if factory == nil {
		return nil, fmt.Errorf("ingestion not supported for type: %s", dsType)
	}
	return factory(ctx, config, f.connMgr, f.logger)
}

func (f *registryFactory) ListTypes() []DatasourceAdapterInfo {
	return RegisteredAdapters()
}

var _ DatasourceAdapterFactory = (*registryFactory)(nil)
