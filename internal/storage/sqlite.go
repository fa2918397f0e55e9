// ABOUTME: SQLite-backed KV implementation using modernc.org/sqlite
// ABOUTME: Read/write failures degrade to an in-process overlay, never error

package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite is a durable KV backed by a single-table SQLite database.
// Storage failures after open are logged and absorbed: a write that
// cannot reach disk lands in an in-process overlay so the value stays
// visible for the lifetime of the process.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger

	mu      sync.Mutex
	overlay map[string]string
}

// NewSQLite opens (or creates) a KV database at the given path.
// Parent directories are created if needed.
func NewSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "storage")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	schema := `CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{
		db:      db,
		logger:  logger,
		overlay: make(map[string]string),
	}, nil
}

// Get returns the value for key. The overlay wins over disk because it
// holds the most recent writes that failed to persist.
func (s *SQLite) Get(key string) (string, bool) {
	s.mu.Lock()
	if v, ok := s.overlay[key]; ok {
		s.mu.Unlock()
		return v, true
	}
	s.mu.Unlock()

	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false
	}
	if err != nil {
		s.logger.Warn("kv read failed", "key", key, "error", err)
		return "", false
	}
	return value, true
}

// Set stores value under key. On write failure the value is kept in the
// overlay for the lifetime of the process.
func (s *SQLite) Set(key, value string) {
	_, err := s.db.Exec(
		"INSERT INTO kv (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		s.logger.Warn("kv write failed", "key", key, "error", err)
		s.mu.Lock()
		s.overlay[key] = value
		s.mu.Unlock()
		return
	}

	s.mu.Lock()
	delete(s.overlay, key)
	s.mu.Unlock()
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
