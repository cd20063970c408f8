package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const topicColumns = "id, label, description, embedding, created_at, last_seen"

// scanTopic scans a row into a Topic. The row must have topicColumns in order.
func scanTopic(scanner interface{ Scan(dest ...any) error }) (Topic, error) {
	var t Topic
	var data []byte
	var createdAt, lastSeen string
	if err := scanner.Scan(&t.ID, &t.Label, &t.Description, &data, &createdAt, &lastSeen); err != nil {
		return t, storeErr("scanning topic", err)
	}

	var err error
	if t.Embedding, err = DecodeEmbedding(data); err != nil {
		return t, fmt.Errorf("topic %d: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return t, fmt.Errorf("topic %d created_at: %w", t.ID, err)
	}
	if t.LastSeen, err = parseTime(lastSeen); err != nil {
		return t, fmt.Errorf("topic %d last_seen: %w", t.ID, err)
	}
	return t, nil
}

func queryTopics(ctx context.Context, q querier, query string, args ...any) ([]Topic, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("querying topics", err)
	}
	defer rows.Close()

	var topics []Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("querying topics", err)
	}
	return topics, nil
}

// AllTopics returns all topics in creation order.
func (d *DB) AllTopics(ctx context.Context) ([]Topic, error) {
	return queryTopics(ctx, d.conn, "SELECT "+topicColumns+" FROM topics ORDER BY id")
}

// RecentTopics returns all topics, most recently seen first.
func (d *DB) RecentTopics(ctx context.Context) ([]Topic, error) {
	return queryTopics(ctx, d.conn, "SELECT "+topicColumns+" FROM topics ORDER BY last_seen DESC, id")
}

// TopicsSeenBefore returns topics whose last_seen is earlier than cutoff, oldest first.
func (d *DB) TopicsSeenBefore(ctx context.Context, cutoff time.Time) ([]Topic, error) {
	return queryTopics(ctx, d.conn,
		"SELECT "+topicColumns+" FROM topics WHERE last_seen < ? ORDER BY last_seen, id",
		formatTime(cutoff))
}

// GetTopic returns a single topic by ID.
func (d *DB) GetTopic(ctx context.Context, id int64) (*Topic, error) {
	row := d.conn.QueryRowContext(ctx, "SELECT "+topicColumns+" FROM topics WHERE id = ?", id)
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrTopicNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CountTopics returns the number of stored topics.
func (d *DB) CountTopics(ctx context.Context) (int, error) {
	var count int
	if err := d.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM topics").Scan(&count); err != nil {
		return 0, storeErr("counting topics", err)
	}
	return count, nil
}

// InsertTopic stores a new topic and returns its id. CreatedAt and LastSeen
// are both set to at. The embedding is required.
func (t *Tx) InsertTopic(ctx context.Context, label, description string, embedding []float32, at time.Time) (int64, error) {
	data, err := EncodeEmbedding(embedding)
	if err != nil {
		return 0, err
	}
	ts := formatTime(at)
	res, err := t.tx.ExecContext(ctx, `
		INSERT INTO topics (label, description, embedding, created_at, last_seen)
		VALUES (?, ?, ?, ?, ?)
	`, label, description, data, ts, ts)
	if err != nil {
		return 0, storeErr("inserting topic", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, storeErr("reading topic id", err)
	}
	return id, nil
}

// TouchTopic advances a topic's last_seen to at. Earlier timestamps leave the
// stored value unchanged so last_seen never moves backwards.
func (t *Tx) TouchTopic(ctx context.Context, id int64, at time.Time) error {
	ts := formatTime(at)
	res, err := t.tx.ExecContext(ctx,
		"UPDATE topics SET last_seen = MAX(last_seen, ?) WHERE id = ?", ts, id)
	if err != nil {
		return storeErr("updating last_seen", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeErr("updating last_seen", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %d", ErrTopicNotFound, id)
	}
	return nil
}
