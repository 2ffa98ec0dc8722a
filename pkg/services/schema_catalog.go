package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/models"
)

// EntityKeywords mark columns whose distinct values are worth showing the
// model, matched as case-insensitive substrings of the column name.
var EntityKeywords = []string{"product", "name", "item", "sku"}

// CatalogConfig bounds how much of each table is read into the snapshot.
type CatalogConfig struct {
	SampleRows       int // Rows sampled per table
	EntityValueLimit int // Distinct values fetched per entity column
}

// DefaultCatalogConfig returns 10 sample rows and 50 entity values.
func DefaultCatalogConfig() CatalogConfig {
	return CatalogConfig{SampleRows: 10, EntityValueLimit: 50}
}

// SchemaCatalog introspects the store.
type SchemaCatalog interface {
	// Build reads every table and returns a complete snapshot stamped with
	// generation. Fails with *models.CatalogError if the store is unreachable
	// or holds no tables.
	Build(ctx context.Context, generation uint64) (*models.SchemaSnapshot, error)

	// Digest returns a table to column-name map straight from the store,
	// without sampling. Used to diagnose failed statements.
	Digest(ctx context.Context) (map[string][]string, error)
}

type schemaCatalog struct {
	store          StoreRef
	adapterFactory datasource.DatasourceAdapterFactory
	cfg            CatalogConfig
	logger         *zap.Logger
}

// NewSchemaCatalog creates a catalog for store.
func NewSchemaCatalog(
	store StoreRef,
	adapterFactory datasource.DatasourceAdapterFactory,
	cfg CatalogConfig,
	logger *zap.Logger,
) SchemaCatalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaCatalog{
		store:          store,
		adapterFactory: adapterFactory,
		cfg:            cfg,
		logger:         logger.Named("schema_catalog"),
	}
}

func (c *schemaCatalog) Build(ctx context.Context, generation uint64) (*models.SchemaSnapshot, error) {
	start := time.Now()

	discoverer, err := c.adapterFactory.NewSchemaDiscoverer(ctx, c.store.Type, c.store.Config)
	if err != nil {
		return nil, models.NewCatalogUnavailable(fmt.Errorf("open store: %w", err))
	}
	defer discoverer.Close()

	tables, err := discoverer.DiscoverTables(ctx)
	if err != nil {
		return nil, models.NewCatalogUnavailable(fmt.Errorf("discover tables: %w", err))
	}

	descriptors := make([]models.TableDescriptor, 0, len(tables))
	var totalRows int64
	for _, table := range tables {
		if !models.IsValidIdentifier(table.TableName) {
			c.logger.Warn("Skipping table with a name that cannot be used unquoted",
				zap.String("table", table.TableName))
			continue
		}

		desc, err := c.describeTable(ctx, discoverer, table)
		if err != nil {
			return nil, models.NewCatalogUnavailable(err)
		}
		if len(desc.Columns) == 0 {
			c.logger.Warn("Skipping table with no usable columns", zap.String("table", table.TableName))
			continue
		}
		descriptors = append(descriptors, desc)
		totalRows += desc.RowCount
	}

	if len(descriptors) == 0 || totalRows == 0 {
		return nil, models.NewCatalogEmpty()
	}

	snapshot, err := models.NewSchemaSnapshot(descriptors, generation, time.Now())
	if err != nil {
		return nil, models.NewCatalogUnavailable(err)
	}

	c.logger.Info("Schema snapshot built",
		zap.Int("tables", snapshot.TableCount()),
		zap.Int64("total_rows", snapshot.TotalRows()),
		zap.Uint64("generation", generation),
		zap.Duration("elapsed", time.Since(start)))

	return snapshot, nil
}

// describeTable reads columns, samples and entity values for one table.
// Columns whose names are not word-safe are left out, along with their
// values in the sample rows.
func (c *schemaCatalog) describeTable(ctx context.Context, discoverer datasource.SchemaDiscoverer, table datasource.TableMetadata) (models.TableDescriptor, error) {
	desc := models.TableDescriptor{
		Name:        table.TableName,
		DisplayName: table.SourceName,
		RowCount:    table.RowCount,
	}

	columns, err := discoverer.DiscoverColumns(ctx, table.TableName)
	if err != nil {
		return desc, fmt.Errorf("discover columns of %s: %w", table.TableName, err)
	}

	kept := make(map[string]bool, len(columns))
	for _, col := range columns {
		if !models.IsValidIdentifier(col.ColumnName) {
			c.logger.Warn("Skipping column with a name that cannot be used unquoted",
				zap.String("table", table.TableName),
				zap.String("column", col.ColumnName))
			continue
		}
		original := col.OriginalName
		if original == "" {
			original = col.ColumnName
		}
		desc.Columns = append(desc.Columns, models.ColumnDescriptor{
			Name:         col.ColumnName,
			OriginalName: original,
			DataType:     col.DataType,
		})
		kept[col.ColumnName] = true
	}
	if len(desc.Columns) == 0 {
		return desc, nil
	}

	if c.cfg.SampleRows > 0 {
		sample, err := discoverer.GetSampleRows(ctx, table.TableName, c.cfg.SampleRows)
		if err != nil {
			return desc, fmt.Errorf("sample %s: %w", table.TableName, err)
		}
		desc.SampleRows = projectRows(sample, kept)
	}

	if c.cfg.EntityValueLimit > 0 {
		for _, col := range desc.Columns {
			if !IsEntityColumn(col.Name) {
				continue
			}
			values, err := discoverer.GetDistinctValues(ctx, table.TableName, col.Name, c.cfg.EntityValueLimit)
			if err != nil {
				return desc, fmt.Errorf("entity values of %s.%s: %w", table.TableName, col.Name, err)
			}
			if len(values) > 0 {
				desc.EntityColumns = append(desc.EntityColumns, models.EntityColumn{Column: col.Name, Values: values})
			}
		}
	}

	return desc, nil
}

// projectRows keeps only the result columns named in kept, in result order.
func projectRows(result *datasource.QueryExecutionResult, kept map[string]bool) [][]any {
	var idx []int
	for i, col := range result.Columns {
		if kept[col.Name] {
			idx = append(idx, i)
		}
	}
	if len(idx) == len(result.Columns) {
		return result.Rows
	}

	rows := make([][]any, len(result.Rows))
	for r, row := range result.Rows {
		projected := make([]any, len(idx))
		for j, i := range idx {
			projected[j] = row[i]
		}
		rows[r] = projected
	}
	return rows
}

func (c *schemaCatalog) Digest(ctx context.Context) (map[string][]string, error) {
	discoverer, err := c.adapterFactory.NewSchemaDiscoverer(ctx, c.store.Type, c.store.Config)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	defer discoverer.Close()

	tables, err := discoverer.DiscoverTables(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover tables: %w", err)
	}

	digest := make(map[string][]string, len(tables))
	for _, table := range tables {
		columns, err := discoverer.DiscoverColumns(ctx, table.TableName)
		if err != nil {
			return nil, fmt.Errorf("discover columns of %s: %w", table.TableName, err)
		}
		names := make([]string, len(columns))
		for i, col := range columns {
			names[i] = col.ColumnName
		}
		digest[table.TableName] = names
	}
	return digest, nil
}

// IsEntityColumn reports whether a column name contains an entity keyword.
func IsEntityColumn(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range EntityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
