package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	matchDescription string
	matchJSON        bool
)

var matchCmd = &cobra.Command{
	Use:   "match <summary>",
	Short: "Assign one summary to a topic, creating it if nothing is similar enough",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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

		matcher, err := newMatcher(cfg, d, logger)
		if err != nil {
			return err
		}
		m, err := matcher.MatchOrCreate(cmd.Context(), args[0], matchDescription)
		if err != nil {
			return err
		}

		if matchJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		}

		if m.IsNew {
			fmt.Printf("%s topic %d (no topic reached similarity %.2f)\n",
				color.GreenString("Created"), m.TopicID, matcher.Threshold())
			return nil
		}
		topic, err := d.GetTopic(cmd.Context(), m.TopicID)
		if err != nil {
			return err
		}
		fmt.Printf("%s topic %d (similarity %.3f): %s\n",
			color.CyanString("Matched"), m.TopicID, m.Similarity, truncTitle(topic.Label, 60))
		return nil
	},
}

func init() {
	matchCmd.Flags().StringVar(&matchDescription, "description", "", "Description stored if a new topic is created")
	matchCmd.Flags().BoolVar(&matchJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(matchCmd)
}
