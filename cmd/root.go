package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsegin/trends/internal/config"
	"pulsegin/trends/internal/db"
	"pulsegin/trends/internal/embed"
	"pulsegin/trends/internal/topics"
)

// dbFileName is the database file looked for when walking up from the CWD.
const dbFileName = "trends.db"

var (
	dbPath  string
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "trends",
	Short: "Review topic trend analysis",
	Long: `trends groups customer review complaints into topics by embedding
similarity and tracks how often each topic occurs per day over a rolling
window.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	config.SetDefaults(viper.GetViper())

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&dbPath, "db", "", "Path to trends.db database")
	flags.StringVar(&cfgFile, "config", "", "config file (default: $HOME/.trends/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	flags.BoolVar(&logJSON, "log-json", false, "Log as JSON lines instead of console text")
	flags.Float64("threshold", config.Default().Matcher.Threshold, "Minimum cosine similarity to join an existing topic")
	flags.Int("window", config.Default().Ledger.WindowDays, "Rolling window in days")
	flags.String("embedding-provider", config.Default().Embedding.Provider, "Embedding provider: hash, openai, ollama")

	_ = viper.BindPFlag("matcher.threshold", flags.Lookup("threshold"))
	_ = viper.BindPFlag("ledger.window_days", flags.Lookup("window"))
	_ = viper.BindPFlag("embedding.provider", flags.Lookup("embedding-provider"))
}

// initConfig reads in the config file and TRENDS_* environment variables
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".trends"))
		}
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	config.BindEnv(viper.GetViper())

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
		}
	} else if verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// loadConfig returns the effective configuration: flags > env > file > defaults
func loadConfig() (config.Config, error) {
	return config.Load(viper.GetViper())
}

// newLogger builds the process logger. Logs go to stderr so command output on
// stdout stays machine-readable.
func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if logJSON {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// DiscoverDB finds the database path using priority: env > flag > walk-up > XDG fallback
func DiscoverDB() (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("TRENDS_DB"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
	}

	// 2. CLI flag
	if dbPath != "" {
		if _, err := os.Stat(dbPath); err == nil {
			return dbPath, nil
		}
		return "", fmt.Errorf("database not found at --db path: %s", dbPath)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, dbFileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. XDG fallback
	if xdgPath := xdgDBPath(); xdgPath != "" {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath, nil
		}
	}

	return "", fmt.Errorf("no %s found (set TRENDS_DB, use --db, or run `trends ingest` first)", dbFileName)
}

func xdgDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", "trends", dbFileName)
}

// OpenDatabase discovers and opens the database
func OpenDatabase() (*db.DB, error) {
	path, err := DiscoverDB()
	if err != nil {
		return nil, err
	}
	return db.OpenDB(path)
}

// OpenOrCreateDatabase opens the discovered database, creating one when none
// exists: at TRENDS_DB or --db when given, otherwise in the current directory.
func OpenOrCreateDatabase() (*db.DB, error) {
	if path, err := DiscoverDB(); err == nil {
		return db.OpenDB(path)
	}

	path := dbFileName
	if envPath := os.Getenv("TRENDS_DB"); envPath != "" {
		path = envPath
	} else if dbPath != "" {
		path = dbPath
	}
	return db.CreateDB(path)
}

// newMatcher builds the topic matcher for cfg's embedding provider.
func newMatcher(cfg config.Config, store *db.DB, logger zerolog.Logger) (*topics.Matcher, error) {
	embedder, err := embed.New(cfg.Embedding)
	if err != nil {
		return nil, err
	}
	logger.Debug().
		Str("provider", embedder.Name()).
		Float64("threshold", cfg.Matcher.Threshold).
		Msg("matcher ready")
	return topics.NewMatcher(store, embedder, cfg.Matcher.Threshold, topics.WithLogger(logger))
}

// ResolveTopic finds a topic by numeric ID or label search.
func ResolveTopic(ctx context.Context, d *db.DB, reference string) (*db.Topic, error) {
	// 1. Exact ID match
	if id, err := strconv.ParseInt(reference, 10, 64); err == nil {
		topic, err := d.GetTopic(ctx, id)
		if err == nil {
			return topic, nil
		}
		if !errors.Is(err, db.ErrTopicNotFound) {
			return nil, err
		}
	}

	// 2. Label search
	matches, err := d.SearchTopics(ctx, reference, 10)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("topic not found: %s", reference)
	case 1:
		return &matches[0], nil
	}

	// A label equal to the reference wins over partial matches
	for i := range matches {
		if strings.EqualFold(matches[i].Label, reference) {
			return &matches[i], nil
		}
	}

	lines := make([]string, len(matches))
	for i, m := range matches {
		lines[i] = fmt.Sprintf("  %d %s", m.ID, truncTitle(m.Label, 60))
	}
	return nil, fmt.Errorf("ambiguous reference '%s'. %d matches:\n%s\nUse a topic ID instead.",
		reference, len(matches), strings.Join(lines, "\n"))
}
