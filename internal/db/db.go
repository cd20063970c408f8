package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

var (
	// ErrStoreUnavailable marks any failure of the underlying database.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrTopicNotFound is returned when a topic id does not reference a stored topic.
	ErrTopicNotFound = errors.New("topic not found")
	// ErrDimensionMismatch is returned when an embedding's length differs from the stored topics.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// dsn builds a modernc connection string. Pragmas are given per connection so
// every pooled connection gets WAL, foreign keys and a busy timeout, and
// transactions take the write lock up front.
func dsn(path string) string {
	return "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_txlock=immediate"
}

// OpenDB opens an existing database and applies the schema.
func OpenDB(path string) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	return open(path)
}

// CreateDB opens the database at path, creating the file and its parent
// directory when they do not exist yet.
func CreateDB(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	return open(path)
}

func open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, storeErr("opening database", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, storeErr("connecting to database", err)
	}

	if err := applySchema(conn); err != nil {
		conn.Close()
		return nil, err
	}

	return &DB{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Tx is a unit of work against the store. All reads and writes made through
// it commit or roll back together.
type Tx struct {
	tx *sql.Tx
}

// InTx runs fn inside a transaction. The transaction is committed when fn
// returns nil and rolled back otherwise.
func (d *DB) InTx(ctx context.Context, fn func(tx *Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Tx{tx: tx}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return storeErr("committing transaction", err)
	}
	return nil
}

// storeErr tags a driver error with ErrStoreUnavailable while keeping the
// original error in the chain.
func storeErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

func isForeignKeyViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
