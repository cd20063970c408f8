package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"pulsegin/trends/internal/topics"
)

var (
	topicsJSON  bool
	topicsLimit int
)

var topicsCmd = &cobra.Command{
	Use:   "topics",
	Short: "List topics, most recently seen first",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		all, err := d.RecentTopics(cmd.Context())
		if err != nil {
			return err
		}
		total := len(all)
		if topicsLimit > 0 && len(all) > topicsLimit {
			all = all[:topicsLimit]
		}

		if topicsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(all)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		for _, t := range all {
			fmt.Printf("  %5d  %-60s %s\n", t.ID, truncTitle(t.Label, 57),
				gray(fmt.Sprintf("last seen %s, created %s",
					t.LastSeen.Format("2006-01-02"), t.CreatedAt.Format("2006-01-02"))))
		}
		if len(all) < total {
			fmt.Printf("  ... and %d more\n", total-len(all))
		}
		return nil
	},
}

var topicsStaleCmd = &cobra.Command{
	Use:   "stale",
	Short: "List topics not matched for a number of days",
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

		report, err := topics.ComputeStaleness(cmd.Context(), d, time.Now(), cfg.Ledger.StaleDays)
		if err != nil {
			return err
		}

		if topicsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHeading("STALENESS")
		fmt.Printf("  %d of %d topics not seen for more than %d days\n",
			report.StaleTopicCount, report.TotalTopics, cfg.Ledger.StaleDays)
		limit := len(report.StaleTopics)
		if topicsLimit > 0 && limit > topicsLimit {
			limit = topicsLimit
		}
		for _, s := range report.StaleTopics[:limit] {
			fmt.Printf("    %d %dd idle, %d retained  %s\n",
				s.ID, s.DaysSinceSeen, s.RetainedCount, truncTitle(s.Label, 50))
		}
		if report.StaleTopicCount > limit {
			fmt.Printf("    ... and %d more\n", report.StaleTopicCount-limit)
		}
		fmt.Println()
		return nil
	},
}

var topicsShowCmd = &cobra.Command{
	Use:   "show <id|label>",
	Short: "Show one topic and its recorded occurrences",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		topic, err := ResolveTopic(cmd.Context(), d, args[0])
		if err != nil {
			return err
		}
		occurrences, err := d.TopicOccurrences(cmd.Context(), topic.ID)
		if err != nil {
			return err
		}

		if topicsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(struct {
				Topic       any `json:"topic"`
				Occurrences any `json:"occurrences"`
			}{topic, occurrences})
		}

		printHeading(fmt.Sprintf("TOPIC %d", topic.ID))
		fmt.Printf("  Label: %s\n", topic.Label)
		fmt.Printf("  Created: %s  Last seen: %s  Dimensions: %d\n",
			topic.CreatedAt.Format(time.RFC3339), topic.LastSeen.Format(time.RFC3339), len(topic.Embedding))
		if topic.Description != "" {
			fmt.Printf("  Description: %s\n", truncTitle(topic.Description, 200))
		}
		var total int64
		for _, o := range occurrences {
			fmt.Printf("    %s  %d\n", o.Date, o.Count)
			total += o.Count
		}
		fmt.Printf("  Retained occurrences: %d\n\n", total)
		return nil
	},
}

var topicsOverlapMin float64

var topicsOverlapCmd = &cobra.Command{
	Use:   "overlap",
	Short: "Group topics that are similar but were kept apart",
	Long: `Links every pair of topics whose similarity is at least --min and lists the
connected groups. Use a value a little below the matcher threshold to see
which topics would merge if the threshold were lowered. Nothing is changed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := OpenDatabase()
		if err != nil {
			return err
		}
		defer d.Close()

		groups, err := topics.FindOverlaps(cmd.Context(), d, topicsOverlapMin)
		if err != nil {
			return err
		}

		if topicsJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		}

		printHeading("OVERLAPPING TOPICS")
		if len(groups) == 0 {
			fmt.Printf("  No topic pairs at similarity >= %.2f\n\n", topicsOverlapMin)
			return nil
		}
		limit := len(groups)
		if topicsLimit > 0 && limit > topicsLimit {
			limit = topicsLimit
		}
		for _, g := range groups[:limit] {
			fmt.Printf("  %d topics, closest pair %.3f\n", len(g.TopicIDs), g.MaxSimilarity)
			for _, id := range g.TopicIDs {
				label := "?"
				if t, err := d.GetTopic(cmd.Context(), id); err == nil {
					label = t.Label
				}
				fmt.Printf("    %d %s\n", id, truncTitle(label, 60))
			}
		}
		if len(groups) > limit {
			fmt.Printf("  ... and %d more groups\n", len(groups)-limit)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	topicsCmd.PersistentFlags().BoolVar(&topicsJSON, "json", false, "Output as JSON")
	topicsCmd.PersistentFlags().IntVar(&topicsLimit, "limit", 50, "Maximum topics to list (0 for all)")
	topicsStaleCmd.Flags().Int("days", 14, "Days since last seen to consider a topic stale")
	_ = viper.BindPFlag("ledger.stale_days", topicsStaleCmd.Flags().Lookup("days"))

	topicsOverlapCmd.Flags().Float64Var(&topicsOverlapMin, "min", 0.6, "Minimum pairwise similarity to link two topics")

	topicsCmd.AddCommand(topicsStaleCmd, topicsShowCmd, topicsOverlapCmd)
	rootCmd.AddCommand(topicsCmd)
}
