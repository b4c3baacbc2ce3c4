package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/m96-chan/slackscout/internal/message"
)

// Bookmark pins one message. Enough of the message is denormalized that
// a bookmark still renders after the live result set has moved on.
type Bookmark struct {
	ID          int64
	ChannelID   string
	Timestamp   string
	ChannelName string
	UserName    string
	Text        string
	Permalink   string
	CreatedAt   time.Time
}

// MessageID returns the identity of the bookmarked message.
func (b Bookmark) MessageID() message.ID {
	return message.ID{Channel: b.ChannelID, Timestamp: b.Timestamp}
}

// AddBookmark pins a message. Bookmarking the same message twice
// refreshes the stored snapshot instead of erroring.
func (s *Store) AddBookmark(m message.Message) error {
	_, err := s.conn.Exec(`
		INSERT INTO bookmarks (channel_id, timestamp, channel_name, user_name, text, permalink, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(channel_id, timestamp) DO UPDATE SET
			channel_name = excluded.channel_name,
			user_name = excluded.user_name,
			text = excluded.text,
			permalink = excluded.permalink
	`, m.Channel, m.Timestamp, m.ChannelName, m.UserName, m.Text, m.Permalink, time.Now())
	if err != nil {
		return fmt.Errorf("adding bookmark: %w", err)
	}
	return nil
}

// ListBookmarks returns all bookmarks, newest message first.
func (s *Store) ListBookmarks() ([]Bookmark, error) {
	rows, err := s.conn.Query(`
		SELECT id, channel_id, timestamp, channel_name, user_name, text, permalink, created_at
		FROM bookmarks
	`)
	if err != nil {
		return nil, fmt.Errorf("listing bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.ChannelID, &b.Timestamp, &b.ChannelName, &b.UserName, &b.Text, &b.Permalink, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning bookmark: %w", err)
		}
		bookmarks = append(bookmarks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Timestamps are decimal strings, so ordering happens here rather
	// than in SQL.
	sort.SliceStable(bookmarks, func(i, j int) bool {
		return message.CompareTimestamps(bookmarks[i].Timestamp, bookmarks[j].Timestamp) > 0
	})
	return bookmarks, nil
}

// DeleteBookmark removes the bookmark for the given message.
func (s *Store) DeleteBookmark(id message.ID) error {
	res, err := s.conn.Exec(`
		DELETE FROM bookmarks WHERE channel_id = ? AND timestamp = ?
	`, id.Channel, id.Timestamp)
	if err != nil {
		return fmt.Errorf("deleting bookmark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("no bookmark for %s at %s", id.Channel, id.Timestamp)
	}
	return nil
}
