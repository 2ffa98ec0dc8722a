package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// chdirTemp moves the test into a fresh directory so Load finds only the
// files the test writes there.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})
	return tmpDir
}

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"LLM_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "ADMIN_PASSWORD", "SESSION_SECRET", "STORE_PASSWORD", "BASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearSecretEnv(t)

	yamlContent := `
port: "9000"
env: "test"
store:
  type: sqlite
  path: "warehouse.db"
llm:
  model: "gpt-4o"
  request_timeout: 15s
pipeline:
  sample_rows: 8
`
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != "4443" {
		t.Errorf("expected Port=4443 (from env), got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Errorf("expected Env=production (from env), got %s", cfg.Env)
	}
	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.BaseURL != "http://localhost:4443" {
		t.Errorf("expected BaseURL auto-derived from PORT, got %s", cfg.BaseURL)
	}
	if cfg.Store.Path != "warehouse.db" {
		t.Errorf("expected Store.Path from yaml, got %s", cfg.Store.Path)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected LLM.Model from yaml, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.RequestTimeout != 15*time.Second {
		t.Errorf("expected RequestTimeout=15s, got %v", cfg.LLM.RequestTimeout)
	}
	if cfg.Pipeline.SampleRows != 8 {
		t.Errorf("expected SampleRows=8, got %d", cfg.Pipeline.SampleRows)
	}
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	chdirTemp(t)
	clearSecretEnv(t)

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Store.Type != "sqlite" {
		t.Errorf("expected default store type sqlite, got %s", cfg.Store.Type)
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("expected default provider openai, got %s", cfg.LLM.Provider)
	}
	if cfg.LLM.TranslationMaxTokens != 1500 || cfg.LLM.NarrationMaxTokens != 1000 {
		t.Errorf("unexpected token budgets: %d / %d", cfg.LLM.TranslationMaxTokens, cfg.LLM.NarrationMaxTokens)
	}
	if cfg.Pipeline.SampleRows != 10 || cfg.Pipeline.PromptSampleRows != 5 || cfg.Pipeline.EntityValueLimit != 50 {
		t.Errorf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.LLM.IsConfigured() {
		t.Error("expected LLM to be unconfigured without a key or endpoint")
	}
	if cfg.Redis.IsConfigured() {
		t.Error("expected Redis to be unconfigured by default")
	}
}

func TestLoad_SecretsFile(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearSecretEnv(t)

	secrets := `
OPENAI_API_KEY = "sk-from-file"
ADMIN_PASSWORD = "letmein"
SESSION_SECRET = "cookie-secret"
`
	if err := os.WriteFile(filepath.Join(tmpDir, "secrets.toml"), []byte(secrets), 0600); err != nil {
		t.Fatalf("failed to write secrets: %v", err)
	}

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.LLM.APIKey != "sk-from-file" {
		t.Errorf("expected API key from secrets file, got %q", cfg.LLM.APIKey)
	}
	if cfg.Admin.Password != "letmein" {
		t.Errorf("expected admin password from secrets file, got %q", cfg.Admin.Password)
	}
	if cfg.Admin.SessionSecret != "cookie-secret" {
		t.Errorf("expected session secret from secrets file, got %q", cfg.Admin.SessionSecret)
	}
	if !cfg.LLM.IsConfigured() {
		t.Error("expected LLM to be configured")
	}
}

func TestLoad_EnvSecretWinsOverFile(t *testing.T) {
	tmpDir := chdirTemp(t)
	clearSecretEnv(t)

	if err := os.WriteFile(filepath.Join(tmpDir, "secrets.toml"), []byte(`OPENAI_API_KEY = "sk-file"`), 0600); err != nil {
		t.Fatalf("failed to write secrets: %v", err)
	}
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load("dev")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("expected env key to win, got %q", cfg.LLM.APIKey)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown provider", yaml: "llm:\n  provider: cohere\n"},
		{name: "unknown store", yaml: "store:\n  type: oracle\n"},
		{name: "postgres without host database", yaml: "store:\n  type: postgres\n  host: \"\"\n"},
		{name: "prompt rows exceed sampled rows", yaml: "pipeline:\n  sample_rows: 3\n  prompt_sample_rows: 5\n"},
		{name: "bad log level", yaml: "log_level: verbose\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := chdirTemp(t)
			clearSecretEnv(t)
			if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte(tt.yaml), 0644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}
			if _, err := Load("dev"); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestStoreConfig_AdapterConfig(t *testing.T) {
	sqlite := StoreConfig{Type: "sqlite", Path: "data/x.db", PoolMaxConns: 4}
	got := sqlite.AdapterConfig()
	if got["path"] != "data/x.db" {
		t.Errorf("expected path in sqlite config, got %v", got)
	}
	if _, ok := got["host"]; ok {
		t.Error("sqlite config should not carry a host")
	}

	pg := StoreConfig{Type: "postgres", Host: "db.internal", Port: 5433, Database: "sales", User: "ro", Password: "pw", SSLMode: "require", PoolMaxConns: 4}
	got = pg.AdapterConfig()
	if got["host"] != "db.internal" || got["port"] != 5433 || got["database"] != "sales" || got["password"] != "pw" {
		t.Errorf("unexpected postgres adapter config: %v", got)
	}
}
