package db

import "time"

// TimeLayout is the ISO-8601 form used for created_at and last_seen. It has a
// fixed width so stored timestamps compare correctly as text.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

// DateLayout is the calendar-day form used for occurrence dates.
const DateLayout = "2006-01-02"

// Topic represents a row in the topics table
type Topic struct {
	ID          int64     `json:"id"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Occurrence represents a row in the occurrences table
type Occurrence struct {
	TopicID int64  `json:"topic_id"`
	Date    string `json:"date"` // YYYY-MM-DD
	Count   int64  `json:"count"`
}

// LabeledOccurrence is an occurrence joined with its topic's label.
type LabeledOccurrence struct {
	Occurrence
	Label string `json:"label"`
}

// IngestRun represents a row in the ingest_runs table
type IngestRun struct {
	ID         string    `json:"id"`
	Source     string    `json:"source"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	NewTopics  int       `json:"new_topics"`
	Matched    int       `json:"matched"`
	MaxDate    string    `json:"max_date"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
