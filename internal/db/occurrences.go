package db

import (
	"context"
	"database/sql"
	"fmt"
)

// IncrementOccurrence adds one to the (topicID, date) count, creating the row
// with count 1 when it does not exist. The upsert is a single statement, so
// concurrent increments of the same key are never lost and never fail on the
// primary key.
func (d *DB) IncrementOccurrence(ctx context.Context, topicID int64, date string) error {
	_, err := d.conn.ExecContext(ctx, `
		INSERT INTO occurrences (topic_id, date, count) VALUES (?, ?, 1)
		ON CONFLICT (topic_id, date) DO UPDATE SET count = count + 1
	`, topicID, date)
	if isForeignKeyViolation(err) {
		return fmt.Errorf("%w: %d", ErrTopicNotFound, topicID)
	}
	if err != nil {
		return storeErr("incrementing occurrence", err)
	}
	return nil
}

// DeleteOccurrencesBefore removes every occurrence dated strictly before
// cutoff (YYYY-MM-DD) and returns how many rows were removed.
func (d *DB) DeleteOccurrencesBefore(ctx context.Context, cutoff string) (int64, error) {
	res, err := d.conn.ExecContext(ctx, "DELETE FROM occurrences WHERE date < ?", cutoff)
	if err != nil {
		return 0, storeErr("deleting occurrences", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr("deleting occurrences", err)
	}
	return n, nil
}

// OccurrencesBetween returns occurrences with start <= date <= end joined with
// their topic label, ordered by label, topic id and date.
func (d *DB) OccurrencesBetween(ctx context.Context, start, end string) ([]LabeledOccurrence, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT o.topic_id, t.label, o.date, o.count
		FROM occurrences o
		JOIN topics t ON t.id = o.topic_id
		WHERE o.date >= ? AND o.date <= ?
		ORDER BY t.label, o.topic_id, o.date
	`, start, end)
	if err != nil {
		return nil, storeErr("querying occurrences", err)
	}
	defer rows.Close()

	var result []LabeledOccurrence
	for rows.Next() {
		var o LabeledOccurrence
		if err := rows.Scan(&o.TopicID, &o.Label, &o.Date, &o.Count); err != nil {
			return nil, storeErr("scanning occurrence", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("querying occurrences", err)
	}
	return result, nil
}

// AllOccurrences returns every stored occurrence ordered by topic id and date.
func (d *DB) AllOccurrences(ctx context.Context) ([]Occurrence, error) {
	return queryOccurrences(ctx, "SELECT topic_id, date, count FROM occurrences ORDER BY topic_id, date", d.conn)
}

// TopicOccurrences returns the occurrences of one topic ordered by date.
func (d *DB) TopicOccurrences(ctx context.Context, topicID int64) ([]Occurrence, error) {
	return queryOccurrences(ctx, "SELECT topic_id, date, count FROM occurrences WHERE topic_id = ? ORDER BY date", d.conn, topicID)
}

func queryOccurrences(ctx context.Context, query string, q querier, args ...any) ([]Occurrence, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr("querying occurrences", err)
	}
	defer rows.Close()

	var result []Occurrence
	for rows.Next() {
		var o Occurrence
		if err := rows.Scan(&o.TopicID, &o.Date, &o.Count); err != nil {
			return nil, storeErr("scanning occurrence", err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("querying occurrences", err)
	}
	return result, nil
}

// MaxOccurrenceDate returns the latest stored occurrence date. ok is false
// when there are no occurrences.
func (d *DB) MaxOccurrenceDate(ctx context.Context) (date string, ok bool, err error) {
	var maxDate sql.NullString
	if err := d.conn.QueryRowContext(ctx, "SELECT MAX(date) FROM occurrences").Scan(&maxDate); err != nil {
		return "", false, storeErr("reading max date", err)
	}
	if !maxDate.Valid || maxDate.String == "" {
		return "", false, nil
	}
	return maxDate.String, true, nil
}
