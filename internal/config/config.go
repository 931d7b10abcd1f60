// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.inkvoice/config.yaml)
//  3. Default values
//
// Security: secrets are never logged; the config directory uses 0750
// permissions. Validation lives in validation.go and uses sentinel
// errors checkable with errors.Is().
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Provider identifiers used in model routing.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Embedding defaults. gemini-embedding-001 outputs 3072 dimensions by
// default but supports truncation to 768 via OutputDimensionality; the
// pgvector schema uses 768.
const (
	DefaultEmbedderModel   = "gemini-embedding-001"
	DefaultVectorDimension = 768
)

// Config stores application configuration.
type Config struct {
	// Generation model routing: model identifier to provider name.
	// Adapters are selected by this lookup, never by pattern-matching
	// on the model name.
	DefaultModel string            `mapstructure:"default_model"`
	Models       map[string]string `mapstructure:"models"`

	// Embedding configuration.
	EmbedderProvider string `mapstructure:"embedder_provider"`
	EmbedderModel    string `mapstructure:"embedder_model"`
	VectorDimension  int    `mapstructure:"vector_dimension"`

	// Retrieval and chunking.
	RetrievalTopK int `mapstructure:"retrieval_top_k"`
	ChunkSize     int `mapstructure:"chunk_size"`
	ChunkOverlap  int `mapstructure:"chunk_overlap"`

	// Storage configuration.
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"` // SENSITIVE: never logged
	PostgresDBName   string `mapstructure:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode"`

	// Server configuration.
	ListenAddr      string  `mapstructure:"listen_addr"`
	DefaultOwner    string  `mapstructure:"default_owner"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"` // 0 disables
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`

	// Client configuration.
	ServerURL string `mapstructure:"server_url"`

	// Logging configuration.
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Dir returns the configuration directory, ~/.inkvoice.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting user home directory: %w", err)
	}
	return filepath.Join(home, ".inkvoice"), nil
}

// Load loads configuration.
// Priority: environment variables > configuration file > defaults.
func Load() (*Config, error) {
	configDir, err := Dir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is not an error; defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}
	return &cfg, nil
}

// DatabaseURL assembles the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPassword,
		c.PostgresHost, c.PostgresPort,
		c.PostgresDBName, c.PostgresSSLMode)
}

// ProviderFor returns the provider name routing the model identifier.
func (c *Config) ProviderFor(modelID string) (string, bool) {
	p, ok := c.Models[modelID]
	return p, ok
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_model", "gemini-2.5-flash")
	v.SetDefault("models", map[string]string{
		"gemini-2.5-flash": ProviderGemini,
		"gemini-2.5-pro":   ProviderGemini,
		"gpt-4o":           ProviderOpenAI,
		"gpt-4o-mini":      ProviderOpenAI,
	})

	v.SetDefault("embedder_provider", ProviderGemini)
	v.SetDefault("embedder_model", DefaultEmbedderModel)
	v.SetDefault("vector_dimension", DefaultVectorDimension)

	v.SetDefault("retrieval_top_k", 3)
	v.SetDefault("chunk_size", 1000)
	v.SetDefault("chunk_overlap", 200)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "inkvoice")
	v.SetDefault("postgres_password", "inkvoice_dev_password")
	v.SetDefault("postgres_db_name", "inkvoice")
	v.SetDefault("postgres_ssl_mode", "disable")

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("default_owner", "local")
	v.SetDefault("rate_limit_per_sec", 0)
	v.SetDefault("rate_limit_burst", 10)

	v.SetDefault("server_url", "http://localhost:8080")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// bindEnvVariables binds runtime overrides explicitly. API keys
// (GEMINI_API_KEY, OPENAI_API_KEY) are read directly from the
// environment by the adapters, not via viper; Validate checks their
// presence based on the configured providers.
func bindEnvVariables(v *viper.Viper) {
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("default_model", "INKVOICE_DEFAULT_MODEL")
	mustBind("embedder_provider", "INKVOICE_EMBEDDER_PROVIDER")
	mustBind("listen_addr", "INKVOICE_LISTEN_ADDR")
	mustBind("server_url", "INKVOICE_SERVER_URL")
	mustBind("default_owner", "INKVOICE_OWNER")
	mustBind("log_level", "INKVOICE_LOG_LEVEL")
	mustBind("postgres_host", "INKVOICE_POSTGRES_HOST")
	mustBind("postgres_port", "INKVOICE_POSTGRES_PORT")
	mustBind("postgres_user", "INKVOICE_POSTGRES_USER")
	mustBind("postgres_password", "INKVOICE_POSTGRES_PASSWORD")
	mustBind("postgres_db_name", "INKVOICE_POSTGRES_DB")
	mustBind("postgres_ssl_mode", "INKVOICE_POSTGRES_SSL_MODE")
}
