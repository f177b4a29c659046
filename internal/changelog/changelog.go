// Package changelog records every persisted journal entry in SQLite. It is
// an audit trail, not an index over records.
package changelog

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS changes (
	id       INTEGER PRIMARY KEY AUTOINCREMENT,
	type     TEXT NOT NULL,
	key      TEXT NOT NULL,
	action   TEXT NOT NULL,
	checksum TEXT NOT NULL DEFAULT '',
	saved_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_changes_type ON changes(type, id);
CREATE INDEX IF NOT EXISTS idx_changes_key ON changes(type, key, id);
`

// Row is one logged change.
type Row struct {
	ID       int64     `json:"id"`
	Type     string    `json:"type"`
	Key      string    `json:"key"`
	Action   string    `json:"action"`
	Checksum string    `json:"checksum,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Log is the interface consumers depend on.
type Log interface {
	Append(rows []Row) error
	List(typ string, limit, offset int) ([]Row, int, error)
	Last(typ, key string) (*Row, error)
	Close() error
}

// Verify *DB satisfies Log at compile time.
var _ Log = (*DB)(nil)

// DB wraps a sql.DB with changelog operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("changelog: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("changelog: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("changelog: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Append stores rows in one transaction. A zero SavedAt means now.
func (db *DB) Append(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("changelog: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	stmt, err := tx.Prepare(`INSERT INTO changes (type, key, action, checksum, saved_at) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("changelog: prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range rows {
		at := r.SavedAt
		if at.IsZero() {
			at = now
		}
		if _, err := stmt.Exec(r.Type, r.Key, r.Action, r.Checksum, at); err != nil {
			return fmt.Errorf("changelog: insert %s/%s: %w", r.Type, r.Key, err)
		}
	}
	return tx.Commit()
}

// List returns a type's changes, newest first, and the total count.
func (db *DB) List(typ string, limit, offset int) ([]Row, int, error) {
	if limit <= 0 {
		limit = 50
	}
	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM changes WHERE type = ?`, typ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("changelog: count: %w", err)
	}

	rows, err := db.conn.Query(`
		SELECT id, type, key, action, checksum, saved_at
		FROM changes WHERE type = ?
		ORDER BY id DESC LIMIT ? OFFSET ?`, typ, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("changelog: list: %w", err)
	}
	defer rows.Close()

	out := []Row{}
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Type, &r.Key, &r.Action, &r.Checksum, &r.SavedAt); err != nil {
			return nil, 0, fmt.Errorf("changelog: scan: %w", err)
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// Last returns the newest change for one key, or nil.
func (db *DB) Last(typ, key string) (*Row, error) {
	var r Row
	err := db.conn.QueryRow(`
		SELECT id, type, key, action, checksum, saved_at
		FROM changes WHERE type = ? AND key = ?
		ORDER BY id DESC LIMIT 1`, typ, key).
		Scan(&r.ID, &r.Type, &r.Key, &r.Action, &r.Checksum, &r.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("changelog: last: %w", err)
	}
	return &r, nil
}
