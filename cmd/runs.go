package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	runsJSON  bool
	runsLimit int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent ingestion runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		runs, err := d.RecentIngestRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		if runsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}

		if len(runs) == 0 {
			fmt.Println("No ingestion runs recorded.")
			return nil
		}
		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, r := range runs {
			fmt.Printf("  %s  %s  processed=%d skipped=%d new=%d matched=%d  %s\n",
				truncID(r.ID), r.StartedAt.Local().Format("2006-01-02 15:04"),
				r.Processed, r.Skipped, r.NewTopics, r.Matched,
				gray(fmt.Sprintf("%s, %s", r.Source, formatDuration(r.FinishedAt.Sub(r.StartedAt)))))
		}
		return nil
	},
}

func init() {
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Output as JSON")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
