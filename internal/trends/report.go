package trends

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// TopicColumn is the header of the label column.
const TopicColumn = "Topic"

// ReportRow is one topic's counts across the report's dates
type ReportRow struct {
	TopicID int64   `json:"topic_id"`
	Label   string  `json:"label"`
	Counts  []int64 `json:"counts"`
	Total   int64   `json:"total"`
}

// Report is a dense topic×date occurrence matrix
type Report struct {
	Dates []string    `json:"dates"`
	Rows  []ReportRow `json:"rows"`
}

// Header returns "Topic" followed by the report dates. A report without rows
// has the single column "Topic".
func (r *Report) Header() []string {
	if r.Empty() {
		return []string{TopicColumn}
	}
	return append([]string{TopicColumn}, r.Dates...)
}

// Empty reports whether no topic occurred in the window
func (r *Report) Empty() bool {
	return len(r.Rows) == 0
}

// Top returns up to n rows with the highest totals.
func (r *Report) Top(n int) []ReportRow {
	if n <= 0 || n > len(r.Rows) {
		n = len(r.Rows)
	}
	return r.Rows[:n]
}

// Totals returns the sum of all topics for each report date.
func (r *Report) Totals() []int64 {
	totals := make([]int64, len(r.Dates))
	for _, row := range r.Rows {
		for i, c := range row.Counts {
			totals[i] += c
		}
	}
	return totals
}

// WriteCSV writes the report as comma-separated text.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(r.Header()); err != nil {
		return fmt.Errorf("writing report header: %w", err)
	}

	for _, row := range r.Rows {
		record := make([]string, 0, len(row.Counts)+1)
		record = append(record, row.Label)
		for _, c := range row.Counts {
			record = append(record, strconv.FormatInt(c, 10))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing report row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
