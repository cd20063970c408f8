package db

import (
	"context"
	"fmt"
)

// InsertIngestRun records the statistics of one ingestion pass.
func (d *DB) InsertIngestRun(ctx context.Context, run IngestRun) error {
	if run.ID == "" {
		return fmt.Errorf("inserting ingest run: empty id")
	}
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO ingest_runs (id, source, started_at, finished_at, processed, skipped, new_topics, matched, max_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Processed, run.Skipped, run.NewTopics, run.Matched, run.MaxDate)
	if err != nil {
		return storeErr("inserting ingest run", err)
	}
	return nil
}

// RecentIngestRuns returns up to limit runs, newest first.
func (d *DB) RecentIngestRuns(ctx context.Context, limit int) ([]IngestRun, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, processed, skipped, new_topics, matched, max_date
		FROM ingest_runs ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, storeErr("querying ingest runs", err)
	}
	defer rows.Close()

	var runs []IngestRun
	for rows.Next() {
		var r IngestRun
		var started, finished string
		if err := rows.Scan(&r.ID, &r.Source, &started, &finished,
			&r.Processed, &r.Skipped, &r.NewTopics, &r.Matched, &r.MaxDate); err != nil {
			return nil, storeErr("scanning ingest run", err)
		}
		if r.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("ingest run %s started_at: %w", r.ID, err)
		}
		if r.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("ingest run %s finished_at: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("querying ingest runs", err)
	}
	return runs, nil
}
