package store

import (
	"fmt"
	"time"
)

// User is one cached workspace member.
type User struct {
	ID          string
	Name        string
	DisplayName string
	RealName    string
}

// BestName returns the most human-friendly name available.
func (u User) BestName() string {
	switch {
	case u.DisplayName != "":
		return u.DisplayName
	case u.RealName != "":
		return u.RealName
	case u.Name != "":
		return u.Name
	default:
		return u.ID
	}
}

// UpsertUsers replaces or inserts the given users in one transaction.
func (s *Store) UpsertUsers(users []User) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO users (id, name, display_name, real_name, fetched_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			display_name = excluded.display_name,
			real_name = excluded.real_name,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, u := range users {
		if _, err := stmt.Exec(u.ID, u.Name, u.DisplayName, u.RealName, now); err != nil {
			return fmt.Errorf("upserting user %s: %w", u.ID, err)
		}
	}
	return tx.Commit()
}

// UserIDByName looks up a user id by login name or display name.
func (s *Store) UserIDByName(name string) (string, bool) {
	var id string
	err := s.conn.QueryRow(`
		SELECT id FROM users WHERE name = ? OR display_name = ? LIMIT 1
	`, name, name).Scan(&id)
	if err != nil {
		return "", false
	}
	return id, true
}

// UserName resolves a user id to the best cached display name. Unknown
// ids resolve to themselves, matching how an unresolved author renders.
func (s *Store) UserName(id string) string {
	var u User
	err := s.conn.QueryRow(`
		SELECT id, name, display_name, real_name FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Name, &u.DisplayName, &u.RealName)
	if err != nil {
		return id
	}
	return u.BestName()
}
