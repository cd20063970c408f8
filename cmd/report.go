package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsegin/trends/internal/trends"
)

var (
	reportEnd    string
	reportJSON   bool
	reportStdout bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the topic×date trend report for the window",
	Long: `Builds a dense report with one row per topic seen in the window and one
column per calendar day, busiest topics first. Without --end the window ends on
the latest recorded date.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		ledger, err := trends.NewLedger(d, nil)
		if err != nil {
			return err
		}
		report, err := ledger.BuildReport(cmd.Context(), reportEnd, cfg.Ledger.WindowDays)
		if err != nil {
			return err
		}

		if reportJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		if reportStdout {
			return report.WriteCSV(os.Stdout)
		}

		if err := writeReportFile(report, cfg.Output.ReportPath); err != nil {
			return err
		}
		fmt.Printf("\n  Trend report saved to %s\n", cfg.Output.ReportPath)
		printReportSummary(report, cfg.Output.TopN)
		return nil
	},
}

func init() {
	flags := reportCmd.Flags()
	flags.StringVar(&reportEnd, "end", "", "Last day of the window (YYYY-MM-DD, default: latest recorded date)")
	flags.BoolVar(&reportJSON, "json", false, "Output as JSON")
	flags.BoolVar(&reportStdout, "stdout", false, "Write the CSV to stdout instead of the report file")
	flags.StringP("output", "o", "output/trend_report.csv", "Report CSV path")
	flags.Int("top-n", 10, "Number of top topics to print")

	_ = viper.BindPFlag("output.report_path", flags.Lookup("output"))
	_ = viper.BindPFlag("output.top_n", flags.Lookup("top-n"))

	rootCmd.AddCommand(reportCmd)
}
