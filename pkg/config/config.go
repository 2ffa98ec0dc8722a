package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultPath is where Load looks for the YAML config file.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-ask.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) come from the environment or the secrets file, never YAML.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8501"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info" validate:"oneof=debug info warn error"`
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// SecretsFile is an optional TOML file holding API keys and the admin password.
	SecretsFile string `yaml:"secrets_file" env:"SECRETS_FILE" env-default:"secrets.toml"`

	Store    StoreConfig    `yaml:"store"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Admin    AdminConfig    `yaml:"admin"`
	Redis    RedisConfig    `yaml:"redis"`
	MCP      MCPConfig      `yaml:"mcp"`
}

// LLMConfig selects and tunes the text-generation service.
type LLMConfig struct {
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai" validate:"oneof=openai anthropic"`
	// Endpoint is the API base URL. Empty means the provider's public endpoint.
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:""`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // Secret - not in YAML

	RequestTimeout time.Duration `yaml:"request_timeout" env:"LLM_REQUEST_TIMEOUT" env-default:"60s"`
	Temperature    float32       `yaml:"temperature" env:"LLM_TEMPERATURE" env-default:"0.1" validate:"gte=0,lte=2"`

	TranslationMaxTokens int `yaml:"translation_max_tokens" env:"LLM_TRANSLATION_MAX_TOKENS" env-default:"1500" validate:"gt=0"`
	NarrationMaxTokens   int `yaml:"narration_max_tokens" env:"LLM_NARRATION_MAX_TOKENS" env-default:"1000" validate:"gt=0"`

	// Circuit breaker opens after this many consecutive failures.
	CircuitBreakerThreshold int           `yaml:"circuit_breaker_threshold" env:"LLM_CIRCUIT_BREAKER_THRESHOLD" env-default:"5" validate:"gt=0"`
	CircuitBreakerReset     time.Duration `yaml:"circuit_breaker_reset" env:"LLM_CIRCUIT_BREAKER_RESET" env-default:"30s"`
}

// IsConfigured returns true if a client can be built from this config.
// Hosted providers need a key; a custom endpoint (a local server) may not.
func (c *LLMConfig) IsConfigured() bool {
	if c.Model == "" {
		return false
	}
	return c.APIKey != "" || c.Endpoint != ""
}

// PipelineConfig bounds how much of the store is sampled into prompts.
type PipelineConfig struct {
	// SampleRows is how many rows the catalog reads per table.
	SampleRows int `yaml:"sample_rows" env:"PIPELINE_SAMPLE_ROWS" env-default:"10" validate:"gte=0,lte=100"`
	// PromptSampleRows is how many of those rows are rendered into the instruction payload.
	PromptSampleRows int `yaml:"prompt_sample_rows" env:"PIPELINE_PROMPT_SAMPLE_ROWS" env-default:"5" validate:"gte=0,lte=100"`
	// EntityValueLimit caps distinct values fetched per entity column.
	EntityValueLimit int `yaml:"entity_value_limit" env:"PIPELINE_ENTITY_VALUE_LIMIT" env-default:"50" validate:"gte=0,lte=500"`
	// PromptEntityValues is how many entity values are rendered per column.
	PromptEntityValues int `yaml:"prompt_entity_values" env:"PIPELINE_PROMPT_ENTITY_VALUES" env-default:"10" validate:"gte=0"`
	// MaxResultRows caps rows read back from a single statement.
	MaxResultRows int `yaml:"max_result_rows" env:"PIPELINE_MAX_RESULT_ROWS" env-default:"1000" validate:"gt=0,lte=10000"`
	// QueryTimeout bounds a single statement execution.
	QueryTimeout time.Duration `yaml:"query_timeout" env:"PIPELINE_QUERY_TIMEOUT" env-default:"30s"`
	// AssistantName is used in greeting and identity answers.
	AssistantName string `yaml:"assistant_name" env:"ASSISTANT_NAME" env-default:"Business Data Assistant"`
	// HintsFile optionally replaces the built-in domain hints (YAML).
	HintsFile string `yaml:"hints_file" env:"PIPELINE_HINTS_FILE" env-default:""`
}

// AdminConfig gates the administrative screens.
type AdminConfig struct {
	Password      string `yaml:"-" env:"ADMIN_PASSWORD"` // Secret - not in YAML
	SessionSecret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
	SecureCookies bool   `yaml:"secure_cookies" env:"ADMIN_SECURE_COOKIES" env-default:"false"`
	// DebugAnswers exposes pipeline diagnostics on non-HTTP surfaces (MCP).
	DebugAnswers bool `yaml:"debug_answers" env:"DEBUG_ANSWERS" env-default:"false"`
}

// IsConfigured returns true if an admin password has been set.
func (c *AdminConfig) IsConfigured() bool {
	return c.Password != ""
}

// RedisConfig holds optional Redis settings for conversation history.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	// ConversationTTL is how long an idle conversation is kept, in Redis
	// or in memory when Redis is not configured.
	ConversationTTL time.Duration `yaml:"conversation_ttl" env:"REDIS_CONVERSATION_TTL" env-default:"24h"`
}

// IsConfigured returns true if Redis should be used.
func (c *RedisConfig) IsConfigured() bool {
	return c.Host != ""
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MCPConfig controls the MCP tool surface.
type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"MCP_ENABLED" env-default:"true"`
}

// secretsFile mirrors the keys accepted in secrets.toml.
type secretsFile struct {
	OpenAIAPIKey    string `toml:"OPENAI_API_KEY"`
	AnthropicAPIKey string `toml:"ANTHROPIC_API_KEY"`
	LLMAPIKey       string `toml:"LLM_API_KEY"`
	AdminPassword   string `toml:"ADMIN_PASSWORD"`
	SessionSecret   string `toml:"SESSION_SECRET"`
	StorePassword   string `toml:"STORE_PASSWORD"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFrom(DefaultPath, version)
}

// LoadFrom is Load with an explicit YAML path. A missing file is not an
// error; the environment and defaults are used instead.
func LoadFrom(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.applySecrets(); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if cfg.BaseURL == "" {
		cfg.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + cfg.Port,
		}).String()
	}

	return cfg, nil
}

// Validate checks field constraints and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return err
	}
	if c.Pipeline.PromptSampleRows > c.Pipeline.SampleRows {
		return fmt.Errorf("pipeline.prompt_sample_rows (%d) exceeds pipeline.sample_rows (%d)",
			c.Pipeline.PromptSampleRows, c.Pipeline.SampleRows)
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("llm.request_timeout must be positive")
	}
	if c.Pipeline.QueryTimeout <= 0 {
		return fmt.Errorf("pipeline.query_timeout must be positive")
	}
	return c.Store.validate()
}

// applySecrets fills secrets that the environment left empty, first from
// provider-specific variables and then from the secrets file.
func (c *Config) applySecrets() error {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv(providerKeyEnv(c.LLM.Provider))
	}

	if c.SecretsFile == "" {
		return nil
	}
	var secrets secretsFile
	if _, err := toml.DecodeFile(c.SecretsFile, &secrets); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s: %w", c.SecretsFile, err)
	}

	if c.LLM.APIKey == "" {
		c.LLM.APIKey = firstNonEmpty(secrets.LLMAPIKey, providerKey(c.LLM.Provider, secrets))
	}
	if c.Admin.Password == "" {
		c.Admin.Password = secrets.AdminPassword
	}
	if c.Admin.SessionSecret == "" {
		c.Admin.SessionSecret = secrets.SessionSecret
	}
	if c.Store.Password == "" {
		c.Store.Password = secrets.StorePassword
	}
	return nil
}

func providerKeyEnv(provider string) string {
	if provider == "anthropic" {
		return "ANTHROPIC_API_KEY"
	}
	return "OPENAI_API_KEY"
}

func providerKey(provider string, s secretsFile) string {
	if provider == "anthropic" {
		return s.AnthropicAPIKey
	}
	return s.OpenAIAPIKey
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
