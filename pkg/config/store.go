package config

import (
	"fmt"
	"os"
	"sync"
)

// StoreConfig locates the relational store questions are answered from.
// sqlite is the default and the only type that accepts workbook ingestion.
type StoreConfig struct {
	Type     string `yaml:"type" env:"STORE_TYPE" env-default:"sqlite" validate:"oneof=sqlite postgres mssql mysql duckdb"`
	Path     string `yaml:"path" env:"STORE_PATH" env-default:"data/business_data.db"` // sqlite and duckdb
	Host     string `yaml:"host" env:"STORE_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"STORE_PORT" env-default:"0"`
	User     string `yaml:"user" env:"STORE_USER" env-default:""`
	Password string `yaml:"-" env:"STORE_PASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"STORE_DATABASE" env-default:""`
	Schema   string `yaml:"schema" env:"STORE_SCHEMA" env-default:""`
	SSLMode  string `yaml:"ssl_mode" env:"STORE_SSL_MODE" env-default:"disable"`

	// WatchFile invalidates the schema snapshot when the sqlite file changes on disk.
	WatchFile bool `yaml:"watch_file" env:"STORE_WATCH_FILE" env-default:"true"`

	// ConnectionTTLMinutes is how long idle store pools are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"STORE_CONNECTION_TTL_MINUTES" env-default:"5" validate:"gt=0"`
	// PoolMaxConns is the maximum number of connections per store pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"STORE_POOL_MAX_CONNS" env-default:"10" validate:"gt=0"`
}

func (c *StoreConfig) validate() error {
	switch c.Type {
	case "sqlite", "duckdb":
		if c.Path == "" {
			return fmt.Errorf("store.path is required for %s", c.Type)
		}
	default:
		if c.Host == "" || c.Database == "" {
			return fmt.Errorf("store.host and store.database are required for %s", c.Type)
		}
	}
	return nil
}

// IsFileBacked reports whether the store lives in a local file.
func (c *StoreConfig) IsFileBacked() bool {
	return c.Type == "sqlite" || c.Type == "duckdb"
}

// AdapterConfig renders the store settings as the map adapter factories parse.
func (c *StoreConfig) AdapterConfig() map[string]any {
	if c.IsFileBacked() {
		return map[string]any{
			"path":           c.Path,
			"pool_max_conns": int(c.PoolMaxConns),
		}
	}
	cfg := map[string]any{
		"host":           resolveHostForDocker(c.Host),
		"user":           c.User,
		"password":       c.Password,
		"database":       c.Database,
		"ssl_mode":       c.SSLMode,
		"pool_max_conns": int(c.PoolMaxConns),
	}
	if c.Port > 0 {
		cfg["port"] = c.Port
	}
	if c.Schema != "" {
		cfg["schema"] = c.Schema
	}
	return cfg
}

var (
	inDockerOnce sync.Once
	inDocker     bool
)

// resolveHostForDocker maps loopback hosts to host.docker.internal when the
// process runs inside a container, so a store on the host stays reachable.
func resolveHostForDocker(host string) string {
	inDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		inDocker = err == nil
	})
	if inDocker && (host == "localhost" || host == "127.0.0.1") {
		return "host.docker.internal"
	}
	return host
}
