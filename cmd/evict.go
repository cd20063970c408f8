package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pulsegin/trends/internal/trends"
)

var evictReference string

var evictCmd = &cobra.Command{
	Use:   "evict",
	Short: "Delete occurrences older than the window",
	Long: `Deletes every occurrence dated before the reference date minus the window.
Topics are never deleted. Running it again with the same arguments changes
nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		ref := evictReference
		if ref == "" {
			ref = trends.FormatDate(time.Now().UTC())
		}

		ledger, err := trends.NewLedger(d, nil)
		if err != nil {
			return err
		}
		n, err := ledger.EvictOlderThan(cmd.Context(), ref, cfg.Ledger.WindowDays)
		if err != nil {
			return err
		}

		logger.Debug().Str("reference", ref).Int("window_days", cfg.Ledger.WindowDays).Int64("evicted", n).Msg("evicted")
		fmt.Fprintf(cmd.OutOrStdout(), "Evicted %s older than %d days from %s\n", plural(n, "occurrence"), cfg.Ledger.WindowDays, ref)
		return nil
	},
}

func init() {
	evictCmd.Flags().StringVar(&evictReference, "reference", "", "Reference date (YYYY-MM-DD, default: today)")
	rootCmd.AddCommand(evictCmd)
}
