package db

import "database/sql"

const schema = `
CREATE TABLE IF NOT EXISTS topics (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    label       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    embedding   BLOB NOT NULL,
    created_at  TEXT NOT NULL,
    last_seen   TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS occurrences (
    topic_id INTEGER NOT NULL REFERENCES topics(id),
    date     TEXT NOT NULL,
    count    INTEGER NOT NULL DEFAULT 0 CHECK (count >= 0),
    PRIMARY KEY (topic_id, date)
);

CREATE INDEX IF NOT EXISTS idx_occurrences_date ON occurrences(date);

CREATE TABLE IF NOT EXISTS ingest_runs (
    id            TEXT PRIMARY KEY,
    source        TEXT NOT NULL,
    started_at    TEXT NOT NULL,
    finished_at   TEXT NOT NULL,
    processed     INTEGER NOT NULL DEFAULT 0,
    skipped       INTEGER NOT NULL DEFAULT 0,
    new_topics    INTEGER NOT NULL DEFAULT 0,
    matched       INTEGER NOT NULL DEFAULT 0,
    max_date      TEXT NOT NULL DEFAULT ''
);
`

func applySchema(conn *sql.DB) error {
	if _, err := conn.Exec(schema); err != nil {
		return storeErr("applying schema", err)
	}
	return nil
}
