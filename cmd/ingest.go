package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsegin/trends/internal/pipeline"
	"pulsegin/trends/internal/review"
	"pulsegin/trends/internal/trends"
)

var (
	ingestInput       string
	ingestSkipCleanup bool
	ingestNoReport    bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Process a CSV of reviews into topics and daily counts",
	Long: `Reads reviews from a CSV file, summarises each one, assigns it to a topic
and records one occurrence on the review's date. Afterwards occurrences older
than the window are evicted (unless the data is historical) and the trend
report is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, err := OpenOrCreateDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		f, err := os.Open(ingestInput)
		if err != nil {
			return fmt.Errorf("opening reviews: %w", err)
		}
		defer f.Close()

		src, err := pipeline.NewCSVSource(f, pipeline.Columns{
			Date:   cfg.Input.DateColumn,
			Text:   cfg.Input.TextColumn,
			Rating: cfg.Input.RatingColumn,
		})
		if err != nil {
			return fmt.Errorf("%s: %w", ingestInput, err)
		}

		matcher, err := newMatcher(cfg, d, logger)
		if err != nil {
			return err
		}
		ledger, err := trends.NewLedger(d, nil)
		if err != nil {
			return err
		}

		driver, err := pipeline.NewDriver(d, review.NewExtractor(), matcher, ledger, pipeline.Options{
			WindowDays:         cfg.Ledger.WindowDays,
			CleanupHorizonDays: cfg.Ledger.CleanupHorizonDays,
			SkipCleanup:        ingestSkipCleanup,
			DescriptionRunes:   cfg.Input.DescriptionRunes,
			ProgressEvery:      cfg.Input.ProgressEvery,
		}, pipeline.WithLogger(logger))
		if err != nil {
			return err
		}

		started := time.Now()
		stats, err := driver.Run(ctx, filepath.Base(ingestInput), src)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		printHeading("INGESTION")
		fmt.Printf("  Run: %s (%s)\n", stats.RunID, formatDuration(time.Since(started)))
		fmt.Printf("  Reviews processed: %s  skipped: %d\n", green(stats.Processed), stats.Skipped)
		fmt.Printf("  New topics: %d  Matched: %d\n", stats.NewTopics, stats.Matched)
		switch {
		case stats.Cleanup.Ran:
			fmt.Printf("  Cleaned up %s older than %d days from %s\n",
				plural(stats.Cleanup.Evicted, "occurrence"), cfg.Ledger.WindowDays, stats.Cleanup.Reference)
		case stats.MaxDate != "" && !ingestSkipCleanup:
			fmt.Printf("  %s\n", yellow(fmt.Sprintf("Skipping cleanup (historical data from %s, %d days ago)",
				stats.MaxDate, stats.Cleanup.DaysAgo)))
		}

		if ingestNoReport {
			fmt.Println()
			return nil
		}

		report, err := ledger.BuildReport(ctx, "", cfg.Ledger.WindowDays)
		if err != nil {
			return err
		}
		if err := writeReportFile(report, cfg.Output.ReportPath); err != nil {
			return err
		}

		printHeading("TREND REPORT")
		fmt.Printf("  Saved to %s\n", cfg.Output.ReportPath)
		printReportSummary(report, cfg.Output.TopN)
		return nil
	},
}

func init() {
	flags := ingestCmd.Flags()
	flags.StringVarP(&ingestInput, "input", "i", "reviews.csv", "Path to input CSV file")
	flags.BoolVar(&ingestSkipCleanup, "skip-cleanup", false, "Do not evict occurrences outside the window")
	flags.BoolVar(&ingestNoReport, "no-report", false, "Do not write the trend report")
	flags.String("date-col", "review_date", "Name of the date column")
	flags.String("text-col", "review_description", "Name of the review text column")
	flags.String("rating-col", "rating", "Name of the rating column (optional in the data)")
	flags.Int("progress-every", 1000, "Log progress every N reviews (0 disables)")

	_ = viper.BindPFlag("input.date_column", flags.Lookup("date-col"))
	_ = viper.BindPFlag("input.text_column", flags.Lookup("text-col"))
	_ = viper.BindPFlag("input.rating_column", flags.Lookup("rating-col"))
	_ = viper.BindPFlag("input.progress_every", flags.Lookup("progress-every"))

	rootCmd.AddCommand(ingestCmd)
}
