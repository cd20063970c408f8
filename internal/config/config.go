package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"pulsegin/trends/internal/embed"
)

// EnvPrefix is the prefix of environment overrides, e.g. TRENDS_MATCHER_THRESHOLD.
const EnvPrefix = "TRENDS"

// Config holds all settings for ingestion and reporting
type Config struct {
	Matcher   MatcherConfig `mapstructure:"matcher" yaml:"matcher"`
	Ledger    LedgerConfig  `mapstructure:"ledger" yaml:"ledger"`
	Embedding embed.Config  `mapstructure:"embedding" yaml:"embedding"`
	Input     InputConfig   `mapstructure:"input" yaml:"input"`
	Output    OutputConfig  `mapstructure:"output" yaml:"output"`
}

// MatcherConfig controls topic deduplication
type MatcherConfig struct {
	// Threshold is the minimum cosine similarity to join an existing topic
	// Default: 0.75
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// LedgerConfig controls retention and reporting windows
type LedgerConfig struct {
	// WindowDays is the trailing span kept by eviction and shown in reports
	// Default: 30, Range: 1-365
	WindowDays int `mapstructure:"window_days" yaml:"window_days"`

	// CleanupHorizonDays skips eviction after ingestion when the newest
	// review is older than this many days (historical imports)
	// Default: 60
	CleanupHorizonDays int `mapstructure:"cleanup_horizon_days" yaml:"cleanup_horizon_days"`

	// StaleDays is the age of last_seen after which a topic counts as stale
	// Default: 14
	StaleDays int `mapstructure:"stale_days" yaml:"stale_days"`
}

// InputConfig maps CSV columns onto review fields
type InputConfig struct {
	DateColumn   string `mapstructure:"date_column" yaml:"date_column"`
	TextColumn   string `mapstructure:"text_column" yaml:"text_column"`
	RatingColumn string `mapstructure:"rating_column" yaml:"rating_column"`

	// DescriptionRunes is the length of the review excerpt stored on new topics
	DescriptionRunes int `mapstructure:"description_runes" yaml:"description_runes"`

	// ProgressEvery logs progress after this many processed reviews; 0 disables
	ProgressEvery int `mapstructure:"progress_every" yaml:"progress_every"`
}

// OutputConfig controls report output
type OutputConfig struct {
	ReportPath string `mapstructure:"report_path" yaml:"report_path"`
	TopN       int    `mapstructure:"top_n" yaml:"top_n"`
}

// Default returns the default configuration
func Default() Config {
	return Config{
		Matcher: MatcherConfig{Threshold: 0.75},
		Ledger: LedgerConfig{
			WindowDays:         30,
			CleanupHorizonDays: 60,
			StaleDays:          14,
		},
		Embedding: embed.DefaultConfig(),
		Input: InputConfig{
			DateColumn:       "review_date",
			TextColumn:       "review_description",
			RatingColumn:     "rating",
			DescriptionRunes: 500,
			ProgressEvery:    1000,
		},
		Output: OutputConfig{
			ReportPath: "output/trend_report.csv",
			TopN:       10,
		},
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.Matcher.Threshold < -1 || c.Matcher.Threshold > 1 {
		return fmt.Errorf("matcher.threshold must be between -1 and 1 (got %.2f)", c.Matcher.Threshold)
	}
	if c.Ledger.WindowDays < 1 || c.Ledger.WindowDays > 365 {
		return fmt.Errorf("ledger.window_days must be between 1 and 365 (got %d)", c.Ledger.WindowDays)
	}
	if c.Ledger.CleanupHorizonDays < 0 {
		return fmt.Errorf("ledger.cleanup_horizon_days cannot be negative (got %d)", c.Ledger.CleanupHorizonDays)
	}
	if c.Ledger.StaleDays < 0 {
		return fmt.Errorf("ledger.stale_days cannot be negative (got %d)", c.Ledger.StaleDays)
	}
	if c.Input.DateColumn == "" || c.Input.TextColumn == "" {
		return fmt.Errorf("input.date_column and input.text_column are required")
	}
	if c.Input.DescriptionRunes < 0 {
		return fmt.Errorf("input.description_runes cannot be negative (got %d)", c.Input.DescriptionRunes)
	}
	if c.Input.ProgressEvery < 0 {
		return fmt.Errorf("input.progress_every cannot be negative (got %d)", c.Input.ProgressEvery)
	}
	if c.Output.TopN < 0 {
		return fmt.Errorf("output.top_n cannot be negative (got %d)", c.Output.TopN)
	}
	switch strings.ToLower(c.Embedding.Provider) {
	case "hash", "":
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions must be positive for the hash provider (got %d)", c.Embedding.Dimensions)
		}
	case "openai", "ollama":
	default:
		return fmt.Errorf("unknown embedding.provider %q (supported: hash, openai, ollama)", c.Embedding.Provider)
	}
	if c.Embedding.RequestsPerSecond < 0 {
		return fmt.Errorf("embedding.requests_per_second cannot be negative (got %.2f)", c.Embedding.RequestsPerSecond)
	}
	return nil
}

// SetDefaults registers every key with its default so environment variables
// and config files can override any of them.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("matcher.threshold", d.Matcher.Threshold)
	v.SetDefault("ledger.window_days", d.Ledger.WindowDays)
	v.SetDefault("ledger.cleanup_horizon_days", d.Ledger.CleanupHorizonDays)
	v.SetDefault("ledger.stale_days", d.Ledger.StaleDays)
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.api_key", d.Embedding.APIKey)
	v.SetDefault("embedding.base_url", d.Embedding.BaseURL)
	v.SetDefault("embedding.dimensions", d.Embedding.Dimensions)
	v.SetDefault("embedding.timeout", d.Embedding.Timeout)
	v.SetDefault("embedding.requests_per_second", d.Embedding.RequestsPerSecond)
	v.SetDefault("embedding.burst", d.Embedding.Burst)
	v.SetDefault("embedding.cache_ttl", d.Embedding.CacheTTL)
	v.SetDefault("input.date_column", d.Input.DateColumn)
	v.SetDefault("input.text_column", d.Input.TextColumn)
	v.SetDefault("input.rating_column", d.Input.RatingColumn)
	v.SetDefault("input.description_runes", d.Input.DescriptionRunes)
	v.SetDefault("input.progress_every", d.Input.ProgressEvery)
	v.SetDefault("output.report_path", d.Output.ReportPath)
	v.SetDefault("output.top_n", d.Output.TopN)
}

// BindEnv makes v read TRENDS_* environment variables, with dots in keys
// replaced by underscores.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Default()
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
