package postgres

import (
	"strings"
	"testing"
)

func TestFromMap_ValidConfig(t *testing.T) {
	config := map[string]any{
		"host":     "localhost",
		"port":     float64(5432), // JSON numbers are float64
		"user":     "testuser",
		"password": "testpass",
		"database": "testdb",
		"schema":   "analytics",
		"ssl_mode": "disable",
	}

	cfg, err := FromMap(config)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Host != "localhost" {
		t.Errorf("expected host 'localhost', got '%s'", cfg.Host)
	}
	if cfg.Port != 5432 {
		t.Errorf("expected port 5432, got %d", cfg.Port)
	}
	if cfg.Database != "testdb" {
		t.Errorf("expected database 'testdb', got '%s'", cfg.Database)
	}
	if cfg.Schema != "analytics" {
		t.Errorf("expected schema 'analytics', got '%s'", cfg.Schema)
	}
	if cfg.SSLMode != "disable" {
		t.Errorf("expected ssl_mode 'disable', got '%s'", cfg.SSLMode)
	}
}

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"host":     "localhost",
		"port":     5433,
		"user":     "testuser",
		"database": "testdb",
	})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Port != 5433 {
		t.Errorf("expected port 5433, got %d", cfg.Port)
	}
	if cfg.Schema != "public" {
		t.Errorf("expected default schema 'public', got '%s'", cfg.Schema)
	}
	if cfg.SSLMode != DefaultSSLMode() {
		t.Errorf("expected default ssl_mode %q, got %q", DefaultSSLMode(), cfg.SSLMode)
	}
}

func TestFromMap_MissingRequired(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]any
	}{
		{"missing host", map[string]any{"user": "u", "database": "d"}},
		{"missing user", map[string]any{"host": "h", "database": "d"}},
		{"missing database", map[string]any{"host": "h", "user": "u"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromMap(tt.config); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestConnectionString_EscapesPassword(t *testing.T) {
	cfg := &Config{Host: "db", Port: 5432, User: "ekaya", Password: "p@ss/w#rd?", Database: "sales", SSLMode: "disable"}

	connStr := cfg.connectionString()
	if strings.Contains(connStr, "p@ss/w#rd?") {
		t.Errorf("password was not escaped: %s", connStr)
	}
	if !strings.HasSuffix(connStr, "/sales?sslmode=disable") {
		t.Errorf("unexpected connection string: %s", connStr)
	}
	if strings.Contains(cfg.poolKey(), "p@ss") {
		t.Errorf("pool key must not contain the password: %s", cfg.poolKey())
	}
}
