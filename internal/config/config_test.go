package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	BindEnv(v)
	return v
}

func TestDefault_Valid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 0.75, cfg.Matcher.Threshold)
	assert.Equal(t, 30, cfg.Ledger.WindowDays)
	assert.Equal(t, "hash", cfg.Embedding.Provider)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TRENDS_MATCHER_THRESHOLD", "0.9")
	t.Setenv("TRENDS_LEDGER_WINDOW_DAYS", "7")
	t.Setenv("TRENDS_EMBEDDING_TIMEOUT", "5s")

	cfg, err := Load(newViper())
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Matcher.Threshold)
	assert.Equal(t, 7, cfg.Ledger.WindowDays)
	assert.Equal(t, 5*time.Second, cfg.Embedding.Timeout)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
matcher:
  threshold: 0.8
embedding:
  provider: ollama
  model: nomic-embed-text
input:
  text_column: body
`), 0644))

	v := newViper()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 0.8, cfg.Matcher.Threshold)
	assert.Equal(t, "ollama", cfg.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, "body", cfg.Input.TextColumn)
	assert.Equal(t, "review_date", cfg.Input.DateColumn)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("TRENDS_LEDGER_WINDOW_DAYS", "0")
	_, err := Load(newViper())
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"threshold too high", func(c *Config) { c.Matcher.Threshold = 1.2 }},
		{"window too large", func(c *Config) { c.Ledger.WindowDays = 400 }},
		{"negative horizon", func(c *Config) { c.Ledger.CleanupHorizonDays = -1 }},
		{"missing text column", func(c *Config) { c.Input.TextColumn = "" }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "bert" }},
		{"hash without dimensions", func(c *Config) { c.Embedding.Dimensions = 0 }},
		{"negative top n", func(c *Config) { c.Output.TopN = -3 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}
