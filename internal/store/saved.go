package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SavedSearch is a named query the user can re-run by name.
type SavedSearch struct {
	ID        int64
	Name      string
	Query     string
	CreatedAt time.Time
}

// SaveSearch stores a named query, replacing any search with the same name.
func (s *Store) SaveSearch(name, query string) error {
	_, err := s.conn.Exec(`
		INSERT INTO saved_searches (name, query, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			query = excluded.query,
			created_at = excluded.created_at
	`, name, query, time.Now())
	if err != nil {
		return fmt.Errorf("saving search %q: %w", name, err)
	}
	return nil
}

// GetSavedSearch looks up a saved search by name.
func (s *Store) GetSavedSearch(name string) (*SavedSearch, error) {
	var ss SavedSearch
	err := s.conn.QueryRow(`
		SELECT id, name, query, created_at FROM saved_searches WHERE name = ?
	`, name).Scan(&ss.ID, &ss.Name, &ss.Query, &ss.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no saved search named %q", name)
	}
	if err != nil {
		return nil, fmt.Errorf("reading saved search: %w", err)
	}
	return &ss, nil
}

// ListSavedSearches returns all saved searches ordered by name.
func (s *Store) ListSavedSearches() ([]SavedSearch, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, query, created_at FROM saved_searches ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing saved searches: %w", err)
	}
	defer rows.Close()

	var searches []SavedSearch
	for rows.Next() {
		var ss SavedSearch
		if err := rows.Scan(&ss.ID, &ss.Name, &ss.Query, &ss.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning saved search: %w", err)
		}
		searches = append(searches, ss)
	}
	return searches, rows.Err()
}

// DeleteSavedSearch removes a saved search by name.
func (s *Store) DeleteSavedSearch(name string) error {
	res, err := s.conn.Exec("DELETE FROM saved_searches WHERE name = ?", name)
	if err != nil {
		return fmt.Errorf("deleting saved search %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no saved search named %q", name)
	}
	return nil
}
