// Package store is the local SQLite layer: a read-through cache of the
// workspace directory (channels, users) plus saved searches and message
// bookmarks. It sits outside the reconciliation core; callers consult it
// for name resolution and persistence only.
package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

const schemaVersion = 1

// Store wraps the SQLite database connection.
type Store struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at the given path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_journal_mode=WAL&_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	// SQLite works best with a single writer.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(time.Hour)

	s := &Store{conn: conn, path: path}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) initSchema() error {
	var current int
	err := s.conn.QueryRow("SELECT version FROM schema_version ORDER BY version DESC LIMIT 1").Scan(&current)

	if err == sql.ErrNoRows || (err != nil && strings.Contains(err.Error(), "no such table")) {
		if _, err := s.conn.Exec(schemaSQL); err != nil {
			return fmt.Errorf("executing schema: %w", err)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking schema version: %w", err)
	}

	if current < schemaVersion {
		return fmt.Errorf("schema migration needed from version %d to %d", current, schemaVersion)
	}
	return nil
}

// Stats summarizes the store contents.
type Stats struct {
	ChannelCount  int64
	UserCount     int64
	SavedSearches int64
	Bookmarks     int64
	SizeBytes     int64
	RefreshedAt   *time.Time
}

// Stats returns store statistics.
func (s *Store) Stats() (*Stats, error) {
	stats := &Stats{}

	counts := []struct {
		query string
		dst   *int64
	}{
		{"SELECT COUNT(*) FROM channels", &stats.ChannelCount},
		{"SELECT COUNT(*) FROM users", &stats.UserCount},
		{"SELECT COUNT(*) FROM saved_searches", &stats.SavedSearches},
		{"SELECT COUNT(*) FROM bookmarks", &stats.Bookmarks},
	}
	for _, c := range counts {
		if err := s.conn.QueryRow(c.query).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("counting: %w", err)
		}
	}

	var fetched sql.NullTime
	err := s.conn.QueryRow("SELECT MAX(fetched_at) FROM channels").Scan(&fetched)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("reading refresh time: %w", err)
	}
	if fetched.Valid {
		stats.RefreshedAt = &fetched.Time
	}

	if info, err := os.Stat(s.path); err == nil {
		stats.SizeBytes = info.Size()
	}
	return stats, nil
}
