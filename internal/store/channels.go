package store

import (
	"fmt"
	"time"

	"github.com/sahilm/fuzzy"
)

// Channel is one cached conversation.
type Channel struct {
	ID        string
	Name      string
	Topic     string
	IsIM      bool
	IsPrivate bool
}

// UpsertChannels replaces or inserts the given channels in one
// transaction.
func (s *Store) UpsertChannels(channels []Channel) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO channels (id, name, topic, is_im, is_private, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			topic = excluded.topic,
			is_im = excluded.is_im,
			is_private = excluded.is_private,
			fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, ch := range channels {
		if _, err := stmt.Exec(ch.ID, ch.Name, ch.Topic, ch.IsIM, ch.IsPrivate, now); err != nil {
			return fmt.Errorf("upserting channel %s: %w", ch.ID, err)
		}
	}
	return tx.Commit()
}

// ListChannels returns all cached channels ordered by name.
func (s *Store) ListChannels() ([]Channel, error) {
	rows, err := s.conn.Query(`
		SELECT id, name, topic, is_im, is_private
		FROM channels ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}
	defer rows.Close()

	var channels []Channel
	for rows.Next() {
		var ch Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Topic, &ch.IsIM, &ch.IsPrivate); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

// ChannelName resolves a channel id to its cached name, or returns the
// id when unknown.
func (s *Store) ChannelName(id string) string {
	var name string
	if err := s.conn.QueryRow("SELECT name FROM channels WHERE id = ?", id).Scan(&name); err != nil {
		return id
	}
	return name
}

// ChannelByName resolves a channel name to its cached id.
func (s *Store) ChannelByName(name string) (Channel, bool) {
	var ch Channel
	err := s.conn.QueryRow(`
		SELECT id, name, topic, is_im, is_private
		FROM channels WHERE name = ?
	`, name).Scan(&ch.ID, &ch.Name, &ch.Topic, &ch.IsIM, &ch.IsPrivate)
	if err != nil {
		return Channel{}, false
	}
	return ch, true
}

// FilterChannels fuzzy-matches channels by name, best matches first.
func (s *Store) FilterChannels(pattern string) ([]Channel, error) {
	channels, err := s.ListChannels()
	if err != nil {
		return nil, err
	}
	if pattern == "" {
		return channels, nil
	}

	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.Name
	}

	matches := fuzzy.Find(pattern, names)
	out := make([]Channel, 0, len(matches))
	for _, m := range matches {
		out = append(out, channels[m.Index])
	}
	return out, nil
}
