package trends

import (
	"context"
	"fmt"
	"sort"
	"time"

	"pulsegin/trends/internal/db"
)

// Ledger tallies topic occurrences per calendar day
type Ledger struct {
	store *db.DB
	now   func() time.Time
}

// NewLedger creates a ledger over store. now supplies "today" for reports on
// an empty ledger; nil means time.Now.
func NewLedger(store *db.DB, now func() time.Time) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger: store is nil")
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{store: store, now: now}, nil
}

// RecordOccurrence adds one occurrence of topicID on date (YYYY-MM-DD).
func (l *Ledger) RecordOccurrence(ctx context.Context, topicID int64, date string) error {
	day, err := ParseDate(date)
	if err != nil {
		return err
	}
	if err := l.store.IncrementOccurrence(ctx, topicID, FormatDate(day)); err != nil {
		return fmt.Errorf("recording occurrence: %w", err)
	}
	return nil
}

// EvictOlderThan deletes every occurrence dated strictly before
// referenceDate minus windowDays and returns the number of rows removed.
// Retained rows are never modified, so repeating a call changes nothing.
func (l *Ledger) EvictOlderThan(ctx context.Context, referenceDate string, windowDays int) (int64, error) {
	ref, err := ParseDate(referenceDate)
	if err != nil {
		return 0, err
	}
	if err := validateWindow(windowDays); err != nil {
		return 0, err
	}

	cutoff := FormatDate(ref.AddDate(0, 0, -windowDays))
	n, err := l.store.DeleteOccurrencesBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("evicting occurrences before %s: %w", cutoff, err)
	}
	return n, nil
}

// BuildReport pivots the windowDays days ending at endDate into a topic×date
// matrix. An empty endDate means the latest recorded date, or today when
// nothing is recorded.
//
// Every day in the window gets a column even when nothing happened on it.
// Rows are the topics with at least one occurrence in the window, ordered by
// descending total; equal totals keep label order, then topic id.
func (l *Ledger) BuildReport(ctx context.Context, endDate string, windowDays int) (*Report, error) {
	if err := validateWindow(windowDays); err != nil {
		return nil, err
	}

	end, err := l.resolveEnd(ctx, endDate)
	if err != nil {
		return nil, err
	}
	start := end.AddDate(0, 0, -(windowDays - 1))

	dates := DateRange(start, end)
	occurrences, err := l.store.OccurrencesBetween(ctx, FormatDate(start), FormatDate(end))
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}

	column := make(map[string]int, len(dates))
	for i, d := range dates {
		column[d] = i
	}

	report := &Report{Dates: dates}
	rowIndex := make(map[int64]int)
	for _, o := range occurrences {
		idx, ok := rowIndex[o.TopicID]
		if !ok {
			idx = len(report.Rows)
			rowIndex[o.TopicID] = idx
			report.Rows = append(report.Rows, ReportRow{
				TopicID: o.TopicID,
				Label:   o.Label,
				Counts:  make([]int64, len(dates)),
			})
		}
		row := &report.Rows[idx]
		row.Counts[column[o.Date]] += o.Count
		row.Total += o.Count
	}

	sort.SliceStable(report.Rows, func(i, j int) bool {
		return report.Rows[i].Total > report.Rows[j].Total
	})
	return report, nil
}

func (l *Ledger) resolveEnd(ctx context.Context, endDate string) (time.Time, error) {
	if endDate != "" {
		return ParseDate(endDate)
	}

	latest, ok, err := l.store.MaxOccurrenceDate(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("building report: %w", err)
	}
	if !ok {
		today := l.now()
		return time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return ParseDate(latest)
}
