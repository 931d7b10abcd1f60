package config

import (
	"encoding/json"
	"fmt"
)

// Validation errors. Checkable with errors.Is().
var (
	ErrInvalidDefaultModel     = fmt.Errorf("invalid default model")
	ErrUnknownProvider         = fmt.Errorf("unknown provider")
	ErrInvalidDimension        = fmt.Errorf("invalid vector dimension")
	ErrInvalidTopK             = fmt.Errorf("invalid retrieval top-k")
	ErrInvalidChunking         = fmt.Errorf("invalid chunking parameters")
	ErrInvalidPostgresPort     = fmt.Errorf("invalid postgres port")
	ErrMissingPostgresField    = fmt.Errorf("missing postgres field")
	ErrInvalidListenAddr       = fmt.Errorf("invalid listen address")
	ErrInvalidRateLimit        = fmt.Errorf("invalid rate limit")
	ErrInvalidLogLevel         = fmt.Errorf("invalid log level")
	ErrInvalidEmbedderProvider = fmt.Errorf("invalid embedder provider")
)

// Validate checks configuration consistency. Fail-fast: the first
// violation is returned.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("%w: default_model must not be empty", ErrInvalidDefaultModel)
	}
	if _, ok := c.Models[c.DefaultModel]; !ok {
		return fmt.Errorf("%w: default_model %q has no provider mapping", ErrInvalidDefaultModel, c.DefaultModel)
	}
	for model, provider := range c.Models {
		switch provider {
		case ProviderGemini, ProviderOpenAI:
		default:
			return fmt.Errorf("%w: model %q maps to %q (want %q or %q)",
				ErrUnknownProvider, model, provider, ProviderGemini, ProviderOpenAI)
		}
	}

	switch c.EmbedderProvider {
	case ProviderGemini, ProviderOpenAI:
	default:
		return fmt.Errorf("%w: %q (want %q or %q)",
			ErrInvalidEmbedderProvider, c.EmbedderProvider, ProviderGemini, ProviderOpenAI)
	}
	if c.VectorDimension <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidDimension, c.VectorDimension)
	}

	if c.RetrievalTopK <= 0 {
		return fmt.Errorf("%w: %d (must be positive)", ErrInvalidTopK, c.RetrievalTopK)
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk_size %d (must be positive)", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d (must be in [0, chunk_size))", ErrInvalidChunking, c.ChunkOverlap)
	}

	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d (must be 1-65535)", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: postgres_host", ErrMissingPostgresField)
	}
	if c.PostgresUser == "" {
		return fmt.Errorf("%w: postgres_user", ErrMissingPostgresField)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: postgres_db_name", ErrMissingPostgresField)
	}

	if c.ListenAddr == "" {
		return fmt.Errorf("%w: listen_addr must not be empty", ErrInvalidListenAddr)
	}
	if c.RateLimitPerSec < 0 {
		return fmt.Errorf("%w: rate_limit_per_sec %g (must be >= 0)", ErrInvalidRateLimit, c.RateLimitPerSec)
	}
	if c.RateLimitPerSec > 0 && c.RateLimitBurst <= 0 {
		return fmt.Errorf("%w: rate_limit_burst %d (must be positive when limiting)", ErrInvalidRateLimit, c.RateLimitBurst)
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: %q (want debug, info, warn or error)", ErrInvalidLogLevel, c.LogLevel)
	}

	return nil
}

// maskSecret masks sensitive values for safe display.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + "****" + s[len(s)-2:]
}

// MarshalJSON masks the database password so the configuration can be
// logged or dumped without leaking credentials.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	masked := alias(c)
	masked.PostgresPassword = maskSecret(c.PostgresPassword)
	return json.Marshal(masked)
}
