// Package config loads engine configuration from config.yaml with
// environment variable overrides. Secrets (passwords, API keys) come
// only from environment variables.
package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for dbchat-engine.
type Config struct {
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // injected at build time

	// CredentialsKey encrypts stored target-database passwords at rest.
	// When unset, passwords are stored in plaintext.
	CredentialsKey string `yaml:"-" env:"CREDENTIALS_KEY"` // secret, env only

	// Engine store (PostgreSQL) for sessions, history and usage counters.
	Database DatabaseConfig `yaml:"database"`

	// Text-generation backend.
	LLM LLMConfig `yaml:"llm"`

	// Ask pipeline tuning.
	Ask AskConfig `yaml:"ask"`
}

// DatabaseConfig holds the engine's own PostgreSQL settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dbchat"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // secret, env only
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dbchat_engine"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// LLMConfig holds the text-generation backend settings.
type LLMConfig struct {
	// Provider selects the SDK: "openai" (any OpenAI-compatible
	// endpoint) or "anthropic".
	Provider string `yaml:"provider" env:"LLM_PROVIDER" env-default:"openai"`
	Endpoint string `yaml:"endpoint" env:"LLM_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model    string `yaml:"model" env:"LLM_MODEL" env-default:"gpt-4o-mini"`
	APIKey   string `yaml:"-" env:"LLM_API_KEY"` // secret, env only

	// SQLTemperature is used for SQL generation, AnswerTemperature for
	// prose synthesis. Generation wants determinism, prose less so.
	SQLTemperature    float64 `yaml:"sql_temperature" env:"LLM_SQL_TEMPERATURE" env-default:"0.1"`
	AnswerTemperature float64 `yaml:"answer_temperature" env:"LLM_ANSWER_TEMPERATURE" env-default:"0.4"`
	MaxTokens         int     `yaml:"max_tokens" env:"LLM_MAX_TOKENS" env-default:"1024"`

	// RequestTimeoutSeconds bounds each individual backend call.
	RequestTimeoutSeconds int `yaml:"request_timeout_seconds" env:"LLM_REQUEST_TIMEOUT_SECONDS" env-default:"60"`
}

// AskConfig tunes the question-answering pipeline.
type AskConfig struct {
	// MaxRetries is the number of regeneration attempts after the
	// first; the generator makes MaxRetries+1 attempts in total.
	MaxRetries int `yaml:"max_retries" env:"ASK_MAX_RETRIES" env-default:"2"`

	// RowDisplayLimit caps rows handed to the answer synthesizer and
	// stored with a conversation turn.
	RowDisplayLimit int `yaml:"row_display_limit" env:"ASK_ROW_DISPLAY_LIMIT" env-default:"50"`

	// SharedTier marks this deployment as using platform model
	// credentials, which subjects users to the daily quota.
	SharedTier bool `yaml:"shared_tier" env:"ASK_SHARED_TIER" env-default:"true"`

	// SharedTierDailyLimit is the per-user daily query quota on the
	// shared tier.
	SharedTierDailyLimit int `yaml:"shared_tier_daily_limit" env:"ASK_SHARED_TIER_DAILY_LIMIT" env-default:"10"`

	// QueryTimeoutSeconds bounds each target-database operation
	// (introspection or execution).
	QueryTimeoutSeconds int `yaml:"query_timeout_seconds" env:"ASK_QUERY_TIMEOUT_SECONDS" env-default:"30"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. The version parameter is injected at build time.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.LLM.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("invalid llm provider %q (must be openai or anthropic)", c.LLM.Provider)
	}
	if c.Ask.MaxRetries < 0 {
		return fmt.Errorf("ask.max_retries must be >= 0")
	}
	if c.Ask.RowDisplayLimit <= 0 {
		return fmt.Errorf("ask.row_display_limit must be > 0")
	}
	return nil
}

// ConnectionString returns the engine store's PostgreSQL DSN.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
