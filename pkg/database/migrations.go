package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

// MigrationsTable tracks applied versions. The leading underscore keeps it
// out of schema discovery.
const MigrationsTable = "_schema_migrations"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// RunMigrations applies pending migrations to the SQLite store at path,
// creating the file if needed. It is idempotent and safe to call multiple
// times - only pending migrations will be executed.
//
// The migrate driver closes its database on shutdown, so migrations run on
// a dedicated handle rather than a shared pool.
func RunMigrations(path string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return fmt.Errorf("failed to open store for migrations: %w", err)
	}

	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("Failed to close migration source", zap.Error(srcErr))
		}
		if dbErr != nil {
			logger.Warn("Failed to close migration database", zap.Error(dbErr))
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Debug("No migrations to apply (store up-to-date)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, _ := m.Version()
	logger.Info("Applied migrations successfully", zap.Uint("version", newVersion))
	return nil
}
