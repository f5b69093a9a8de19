package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the selected provider's API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidProvider indicates the AI provider is not supported.
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrInvalidModelName indicates a tier model name is empty.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidThresholds indicates the classifier thresholds are inverted.
	ErrInvalidThresholds = errors.New("invalid classifier thresholds")

	// ErrInvalidTimeout indicates the attempt timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid attempt timeout")

	// ErrInvalidSourceCount indicates the retrieval source count is out of range.
	ErrInvalidSourceCount = errors.New("invalid source count")

	// ErrInvalidEmbedderModel indicates the embedder model is empty.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder dimension does not
	// match the vector schema.
	ErrInvalidEmbedderDimension = errors.New("incompatible embedder dimension")

	// ErrInvalidChunking indicates chunk size or overlap is out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is empty.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is empty.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is missing
	// or too short.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidServerPort indicates the HTTP server port is out of range.
	ErrInvalidServerPort = errors.New("invalid server port")
)

var validProviders = []string{ProviderGemini, ProviderOllama, ProviderOpenAI}

// Validate checks configuration values and returns sentinel errors that
// can be tested with errors.Is.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if !slices.Contains(validProviders, c.Provider) {
		return fmt.Errorf("%w: %q, must be one of %v", ErrInvalidProvider, c.Provider, validProviders)
	}
	if err := c.validateAPIKey(); err != nil {
		return err
	}

	for _, m := range []struct {
		tier string
		name string
	}{
		{"simple_model", c.SimpleModel},
		{"moderate_model", c.ModerateModel},
		{"complex_model", c.ComplexModel},
	} {
		if m.name == "" {
			return fmt.Errorf("%w: %s cannot be empty", ErrInvalidModelName, m.tier)
		}
	}

	if c.ComplexThreshold < c.SimpleThreshold {
		return fmt.Errorf("%w: complex_threshold %d must not be below simple_threshold %d",
			ErrInvalidThresholds, c.ComplexThreshold, c.SimpleThreshold)
	}

	// 1s to 5min per attempt; anything outside is a configuration mistake.
	if c.AttemptTimeoutMS < 1000 || c.AttemptTimeoutMS > 300000 {
		return fmt.Errorf("%w: attempt_timeout_ms must be between 1000 and 300000, got %d",
			ErrInvalidTimeout, c.AttemptTimeoutMS)
	}

	if c.SourceCount < 1 || c.SourceCount > 20 {
		return fmt.Errorf("%w: must be between 1 and 20, got %d", ErrInvalidSourceCount, c.SourceCount)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedderDimension != VectorDimension {
		return fmt.Errorf("%w: schema stores vector(%d), got %d",
			ErrInvalidEmbedderDimension, VectorDimension, c.EmbedderDimension)
	}

	if c.ChunkSize < 64 || c.ChunkSize > 8192 {
		return fmt.Errorf("%w: chunk_size must be between 64 and 8192, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap %d must be non-negative and smaller than chunk_size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if err := c.validatePostgres(); err != nil {
		return err
	}

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidServerPort, c.ServerPort)
	}
	return nil
}

// validateAPIKey checks the key the selected provider needs. Ollama runs
// locally and needs none.
func (c *Config) validateAPIKey() error {
	switch c.Provider {
	case ProviderGemini:
		if os.Getenv("GEMINI_API_KEY") == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	case ProviderOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY environment variable is required for provider %q",
				ErrMissingAPIKey, c.Provider)
		}
	}
	return nil
}

func (c *Config) validatePostgres() error {
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set", ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "calcrag_dev_password" {
		slog.Warn("using default development password for PostgreSQL",
			"warning", "change postgres_password for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// Deprecated allow/prefer modes are excluded, they are vulnerable to
	// MITM downgrade.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}
	return nil
}
