package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrEmbeddingUnavailable marks any failure to obtain a vector from the model.
var ErrEmbeddingUnavailable = errors.New("embedding unavailable")

// Embedder turns text into a fixed-length vector
type Embedder interface {
	// Name returns the provider name
	Name() string

	// Embed returns the embedding for text. Every call on one Embedder returns
	// vectors of the same length.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "hash", "openai", "ollama"
	Provider string `mapstructure:"provider" yaml:"provider"`

	// Model name (provider-specific)
	Model string `mapstructure:"model" yaml:"model"`

	// APIKey for OpenAI-compatible endpoints
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`

	// BaseURL for custom endpoints
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`

	// Dimensions of the produced vectors. Required for "hash"; optional for
	// "openai" (passed through to models that support it); ignored by "ollama".
	Dimensions int `mapstructure:"dimensions" yaml:"dimensions"`

	// Timeout for a single embedding request
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`

	// RequestsPerSecond limits calls to remote providers; 0 disables limiting
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`

	// CacheTTL keeps recent text→vector results in memory; 0 disables caching
	CacheTTL time.Duration `mapstructure:"cache_ttl" yaml:"cache_ttl"`
}

// DefaultConfig returns an offline configuration that needs no model server.
func DefaultConfig() Config {
	return Config{
		Provider:   "hash",
		Dimensions: 384,
		Timeout:    30 * time.Second,
		Burst:      1,
		CacheTTL:   time.Hour,
	}
}

// New creates an Embedder from configuration. Remote providers are wrapped
// with rate limiting when RequestsPerSecond is set, and every provider is
// wrapped with a cache when CacheTTL is set.
func New(cfg Config) (Embedder, error) {
	var e Embedder
	var err error

	switch strings.ToLower(cfg.Provider) {
	case "hash", "":
		e, err = NewHashEmbedder(cfg.Dimensions)
	case "openai":
		e, err = NewOpenAIEmbedder(cfg)
	case "ollama":
		e, err = NewOllamaEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: hash, openai, ollama)", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if _, local := e.(*HashEmbedder); !local && cfg.RequestsPerSecond > 0 {
		e = NewRateLimited(e, cfg.RequestsPerSecond, cfg.Burst)
	}
	if cfg.CacheTTL > 0 {
		e = NewCached(e, cfg.CacheTTL)
	}
	return e, nil
}

func unavailable(provider string, err error) error {
	return fmt.Errorf("%s: %w: %w", provider, ErrEmbeddingUnavailable, err)
}
