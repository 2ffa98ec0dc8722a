package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-ask/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-ask/pkg/database"
)

// TableWriter replaces whole tables in a SQLite store and records their
// source names in the ingestion catalog.
type TableWriter struct {
	conn   *datasource.SQLConn
	logger *zap.Logger
}

// NewTableWriter migrates the store (creating it if needed) and checks out a
// writable connection.
func NewTableWriter(ctx context.Context, cfg *Config, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*TableWriter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := database.RunMigrations(cfg.Path, logger); err != nil {
		return nil, err
	}
	conn, err := checkout(ctx, cfg, connMgr, false)
	if err != nil {
		return nil, err
	}
	return &TableWriter{conn: conn, logger: logger}, nil
}

// ReplaceTable drops and recreates data.Name with data's rows in one transaction.
func (w *TableWriter) ReplaceTable(ctx context.Context, data *datasource.TableData) error {
	if len(data.Columns) == 0 {
		return fmt.Errorf("table %s has no columns", data.Name)
	}

	tx, err := w.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			w.logger.Warn("Failed to roll back table replace", zap.String("table", data.Name), zap.Error(err))
		}
	}()

	table := quoteIdentifier(data.Name)
	if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
		return fmt.Errorf("drop %s: %w", data.Name, err)
	}

	defs := make([]string, len(data.Columns))
	names := make([]string, len(data.Columns))
	marks := make([]string, len(data.Columns))
	for i, c := range data.Columns {
		defs[i] = quoteIdentifier(c.ColumnName) + " " + c.DataType
		names[i] = quoteIdentifier(c.ColumnName)
		marks[i] = "?"
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))); err != nil {
		return fmt.Errorf("create %s: %w", data.Name, err)
	}

	insert, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(names, ", "), strings.Join(marks, ", ")))
	if err != nil {
		return fmt.Errorf("prepare insert into %s: %w", data.Name, err)
	}
	defer insert.Close()

	for i, row := range data.Rows {
		if len(row) != len(data.Columns) {
			return fmt.Errorf("row %d of %s has %d values, want %d", i+1, data.Name, len(row), len(data.Columns))
		}
		if _, err := insert.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("insert row %d into %s: %w", i+1, data.Name, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM _ingested_columns WHERE table_name = ?`, data.Name); err != nil {
		return fmt.Errorf("clear column catalog for %s: %w", data.Name, err)
	}
	for _, c := range data.Columns {
		original := c.OriginalName
		if original == "" {
			original = c.ColumnName
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO _ingested_columns (table_name, column_name, original_name, data_type, ordinal) VALUES (?, ?, ?, ?, ?)`,
			data.Name, c.ColumnName, original, c.DataType, c.OrdinalPosition); err != nil {
			return fmt.Errorf("record column %s.%s: %w", data.Name, c.ColumnName, err)
		}
	}

	source := data.SourceName
	if source == "" {
		source = data.Name
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO _ingested_tables (table_name, source_name, row_count, ingested_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (table_name) DO UPDATE SET
			source_name = excluded.source_name,
			row_count = excluded.row_count,
			ingested_at = excluded.ingested_at`,
		data.Name, source, len(data.Rows), time.Now().UTC().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record table %s: %w", data.Name, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit %s: %w", data.Name, err)
	}

	w.logger.Info("Replaced table",
		zap.String("table", data.Name),
		zap.String("source", source),
		zap.Int("rows", len(data.Rows)),
		zap.Int("columns", len(data.Columns)))
	return nil
}

// Close returns the connection to the pool.
func (w *TableWriter) Close() error {
	return w.conn.Close()
}

var _ datasource.TableWriter = (*TableWriter)(nil)
