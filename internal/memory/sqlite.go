package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries to a sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and runs
// migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// WAL for concurrent read/write access, and a busy timeout so
	// writers retry instead of returning SQLITE_BUSY.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("exec %s: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS entries (
			namespace  TEXT NOT NULL,
			key        TEXT NOT NULL,
			value      BLOB NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (namespace, key)
		);
		CREATE INDEX IF NOT EXISTS idx_entries_created
			ON entries(namespace, created_at DESC);
	`)
	return err
}

// Put stores a value, replacing any previous value for the key.
func (s *SQLiteStore) Put(namespace, key string, value []byte) error {
	_, err := s.db.Exec(
		`INSERT INTO entries (namespace, key, value, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, created_at = excluded.created_at`,
		namespace, key, value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", namespace, key, err)
	}
	return nil
}

// Get retrieves the value for namespace/key, or (nil, nil) on a miss.
func (s *SQLiteStore) Get(namespace, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow(
		`SELECT value FROM entries WHERE namespace = ? AND key = ?`,
		namespace, key,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", namespace, key, err)
	}
	return value, nil
}

// Query returns entries whose keys start with prefix, newest first.
func (s *SQLiteStore) Query(namespace, prefix string, limit int) ([]Entry, error) {
	q := `SELECT namespace, key, value, created_at FROM entries
	      WHERE namespace = ? AND key LIKE ? ORDER BY created_at DESC`
	args := []any{namespace, prefix + "%"}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s/%s*: %w", namespace, prefix, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Namespace, &e.Key, &e.Value, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
