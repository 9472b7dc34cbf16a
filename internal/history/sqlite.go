package history

import (
	"database/sql"
	"errors"
	"fmt"
	log "log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteSnapshotter stores snapshots in a kv table.
type SQLiteSnapshotter struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteSnapshotter, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history db: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create kv table: %w", err)
	}

	log.Debug("History db opened", "path", path)
	return &SQLiteSnapshotter{db: db}, nil
}

func (s *SQLiteSnapshotter) Close() error {
	return s.db.Close()
}

func (s *SQLiteSnapshotter) Read(key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return value, err
}

func (s *SQLiteSnapshotter) Write(key string, data []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, data, now,
	)
	return err
}

func (s *SQLiteSnapshotter) Delete(key string) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key)
	return err
}
