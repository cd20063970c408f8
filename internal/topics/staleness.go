package topics

import (
	"context"
	"fmt"
	"time"

	"pulsegin/trends/internal/db"
)

// StaleTopic is a topic that has not been matched for a while
type StaleTopic struct {
	ID            int64     `json:"id"`
	Label         string    `json:"label"`
	LastSeen      time.Time `json:"last_seen"`
	DaysSinceSeen int64     `json:"days_since_seen"`
	RetainedCount int64     `json:"retained_count"`
}

// StalenessReport contains staleness analysis results
type StalenessReport struct {
	StaleTopics     []StaleTopic `json:"stale_topics"`
	StaleTopicCount int          `json:"stale_topic_count"`
	TotalTopics     int          `json:"total_topics"`
}

// ComputeStaleness lists topics whose last_seen is more than staleDays before
// now, oldest first, with the occurrences still retained for each.
func ComputeStaleness(ctx context.Context, store *db.DB, now time.Time, staleDays int) (*StalenessReport, error) {
	if staleDays < 0 {
		return nil, fmt.Errorf("stale days cannot be negative (got %d)", staleDays)
	}

	total, err := store.CountTopics(ctx)
	if err != nil {
		return nil, err
	}

	cutoff := now.Add(-time.Duration(staleDays) * 24 * time.Hour)
	stale, err := store.TopicsSeenBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}

	occurrences, err := store.AllOccurrences(ctx)
	if err != nil {
		return nil, err
	}
	retained := make(map[int64]int64)
	for _, o := range occurrences {
		retained[o.TopicID] += o.Count
	}

	report := &StalenessReport{TotalTopics: total}
	for _, t := range stale {
		report.StaleTopics = append(report.StaleTopics, StaleTopic{
			ID:            t.ID,
			Label:         t.Label,
			LastSeen:      t.LastSeen,
			DaysSinceSeen: int64(now.Sub(t.LastSeen) / (24 * time.Hour)),
			RetainedCount: retained[t.ID],
		})
	}
	report.StaleTopicCount = len(report.StaleTopics)
	return report, nil
}
