package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fatih/color"

	"pulsegin/trends/internal/trends"
)

func truncID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Back up to a rune boundary
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

// formatDuration renders d compactly: 0.5s, 1.2s, 1m5s, 1h1m.
func formatDuration(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms < 60_000:
		return fmt.Sprintf("%d.%ds", ms/1000, (ms%1000)/100)
	case ms < 3_600_000:
		return fmt.Sprintf("%dm%ds", ms/60_000, (ms%60_000)/1000)
	default:
		return fmt.Sprintf("%dh%dm", ms/3_600_000, (ms%3_600_000)/60_000)
	}
}

func plural(n int64, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

func printHeading(title string) {
	bold := color.New(color.Bold).SprintFunc()
	fmt.Printf("\n  %s\n", bold(title))
	fmt.Println("  ────────────────────────────────────────")
}

// writeReportFile writes report as CSV to path, creating parent directories.
func writeReportFile(report *trends.Report, path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating report directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	if err := report.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// topHeading titles the top-N listing; topN of 0 lists every topic.
func topHeading(topN int) string {
	if topN <= 0 {
		return "ALL TOPICS BY TOTAL FREQUENCY"
	}
	return fmt.Sprintf("TOP %d TOPICS BY TOTAL FREQUENCY", topN)
}

// printReportSummary shows the report's date range and its topN busiest topics.
func printReportSummary(report *trends.Report, topN int) {
	cyan := color.New(color.FgCyan).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Printf("  Topics tracked: %d\n", len(report.Rows))
	if len(report.Dates) > 0 {
		fmt.Printf("  Date range: %s to %s\n", report.Dates[0], report.Dates[len(report.Dates)-1])
	} else {
		fmt.Println("  Date range: N/A")
	}

	printHeading(topHeading(topN))
	if report.Empty() {
		fmt.Println(gray("  No topics found in the trend report."))
		fmt.Println()
		return
	}

	top := report.Top(topN)
	width := 0
	for _, row := range top {
		if l := len(fmt.Sprint(row.Total)); l > width {
			width = l
		}
	}
	for _, row := range top {
		fmt.Printf("  %s  %s %s\n",
			cyan(fmt.Sprintf("%*d", width, row.Total)),
			truncTitle(row.Label, 60),
			gray(fmt.Sprintf("(#%d)", row.TopicID)))
	}

	totals := report.Totals()
	var sparkline strings.Builder
	var peak int64
	for _, t := range totals {
		if t > peak {
			peak = t
		}
	}
	levels := []rune("▁▂▃▄▅▆▇█")
	for _, t := range totals {
		i := 0
		if peak > 0 {
			i = int(t * int64(len(levels)-1) / peak)
		}
		sparkline.WriteRune(levels[i])
	}
	fmt.Printf("\n  Daily volume: %s\n\n", sparkline.String())
}
