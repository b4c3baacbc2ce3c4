package store

import (
	"path/filepath"
	"testing"

	"github.com/m96-chan/slackscout/internal/message"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "slackscout.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenCreatesSchema(t *testing.T) {
	s := openTestStore(t)

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ChannelCount != 0 || stats.UserCount != 0 {
		t.Errorf("fresh store counts = %d channels, %d users, want 0, 0", stats.ChannelCount, stats.UserCount)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slackscout.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("first Open() error = %v", err)
	}
	if err := s1.UpsertChannels([]Channel{{ID: "C1", Name: "general"}}); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}
	s1.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open() error = %v", err)
	}
	defer s2.Close()

	if got := s2.ChannelName("C1"); got != "general" {
		t.Errorf("ChannelName(C1) = %q, want %q", got, "general")
	}
}

func TestUpsertChannelsReplaces(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertChannels([]Channel{{ID: "C1", Name: "general"}}); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}
	if err := s.UpsertChannels([]Channel{{ID: "C1", Name: "general-renamed", Topic: "new topic"}}); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}

	channels, err := s.ListChannels()
	if err != nil {
		t.Fatalf("ListChannels() error = %v", err)
	}
	if len(channels) != 1 {
		t.Fatalf("len(channels) = %d, want 1", len(channels))
	}
	if channels[0].Name != "general-renamed" || channels[0].Topic != "new topic" {
		t.Errorf("channel = %+v, want renamed channel with new topic", channels[0])
	}
}

func TestChannelNameFallsBackToID(t *testing.T) {
	s := openTestStore(t)

	if got := s.ChannelName("C404"); got != "C404" {
		t.Errorf("ChannelName(C404) = %q, want %q", got, "C404")
	}
}

func TestChannelByName(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertChannels([]Channel{{ID: "C1", Name: "general"}, {ID: "C2", Name: "random"}}); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}

	ch, ok := s.ChannelByName("random")
	if !ok {
		t.Fatal("ChannelByName(random) not found")
	}
	if ch.ID != "C2" {
		t.Errorf("ch.ID = %q, want %q", ch.ID, "C2")
	}

	if _, ok := s.ChannelByName("missing"); ok {
		t.Error("ChannelByName(missing) found, want not found")
	}
}

func TestFilterChannels(t *testing.T) {
	s := openTestStore(t)

	channels := []Channel{
		{ID: "C1", Name: "general"},
		{ID: "C2", Name: "engineering"},
		{ID: "C3", Name: "random"},
	}
	if err := s.UpsertChannels(channels); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}

	got, err := s.FilterChannels("eng")
	if err != nil {
		t.Fatalf("FilterChannels() error = %v", err)
	}
	if len(got) == 0 || got[0].Name != "engineering" {
		t.Errorf("FilterChannels(eng) = %+v, want engineering first", got)
	}

	all, err := s.FilterChannels("")
	if err != nil {
		t.Fatalf("FilterChannels() error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("len(FilterChannels(\"\")) = %d, want 3", len(all))
	}
}

func TestUserNameResolution(t *testing.T) {
	s := openTestStore(t)

	users := []User{
		{ID: "U1", Name: "alice", DisplayName: "Alice W", RealName: "Alice Wonder"},
		{ID: "U2", Name: "bob", RealName: "Bob Builder"},
		{ID: "U3", Name: "carol"},
	}
	if err := s.UpsertUsers(users); err != nil {
		t.Fatalf("UpsertUsers() error = %v", err)
	}

	cases := []struct {
		id   string
		want string
	}{
		{"U1", "Alice W"},
		{"U2", "Bob Builder"},
		{"U3", "carol"},
		{"U404", "U404"},
	}
	for _, c := range cases {
		if got := s.UserName(c.id); got != c.want {
			t.Errorf("UserName(%s) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestSavedSearchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	if err := s.SaveSearch("standup", "from:@me standup"); err != nil {
		t.Fatalf("SaveSearch() error = %v", err)
	}

	ss, err := s.GetSavedSearch("standup")
	if err != nil {
		t.Fatalf("GetSavedSearch() error = %v", err)
	}
	if ss.Query != "from:@me standup" {
		t.Errorf("ss.Query = %q, want %q", ss.Query, "from:@me standup")
	}

	// Same name overwrites.
	if err := s.SaveSearch("standup", "standup notes"); err != nil {
		t.Fatalf("SaveSearch() overwrite error = %v", err)
	}
	ss, err = s.GetSavedSearch("standup")
	if err != nil {
		t.Fatalf("GetSavedSearch() after overwrite error = %v", err)
	}
	if ss.Query != "standup notes" {
		t.Errorf("ss.Query = %q, want %q", ss.Query, "standup notes")
	}

	searches, err := s.ListSavedSearches()
	if err != nil {
		t.Fatalf("ListSavedSearches() error = %v", err)
	}
	if len(searches) != 1 {
		t.Errorf("len(searches) = %d, want 1", len(searches))
	}

	if err := s.DeleteSavedSearch("standup"); err != nil {
		t.Fatalf("DeleteSavedSearch() error = %v", err)
	}
	if err := s.DeleteSavedSearch("standup"); err == nil {
		t.Error("DeleteSavedSearch() on missing search error = nil, want error")
	}
}

func TestBookmarkRoundTrip(t *testing.T) {
	s := openTestStore(t)

	older := message.Message{Channel: "C1", Timestamp: "100.000100", UserName: "alice", Text: "older"}
	newer := message.Message{Channel: "C2", Timestamp: "200.000100", UserName: "bob", Text: "newer"}

	if err := s.AddBookmark(older); err != nil {
		t.Fatalf("AddBookmark() error = %v", err)
	}
	if err := s.AddBookmark(newer); err != nil {
		t.Fatalf("AddBookmark() error = %v", err)
	}

	// Re-bookmarking refreshes rather than duplicating.
	older.Text = "older edited"
	if err := s.AddBookmark(older); err != nil {
		t.Fatalf("AddBookmark() refresh error = %v", err)
	}

	bookmarks, err := s.ListBookmarks()
	if err != nil {
		t.Fatalf("ListBookmarks() error = %v", err)
	}
	if len(bookmarks) != 2 {
		t.Fatalf("len(bookmarks) = %d, want 2", len(bookmarks))
	}
	if bookmarks[0].Timestamp != "200.000100" {
		t.Errorf("bookmarks[0].Timestamp = %q, want newest first", bookmarks[0].Timestamp)
	}
	if bookmarks[1].Text != "older edited" {
		t.Errorf("bookmarks[1].Text = %q, want %q", bookmarks[1].Text, "older edited")
	}

	if err := s.DeleteBookmark(older.ID()); err != nil {
		t.Fatalf("DeleteBookmark() error = %v", err)
	}
	if err := s.DeleteBookmark(older.ID()); err == nil {
		t.Error("DeleteBookmark() on missing bookmark error = nil, want error")
	}
}

func TestStatsCounts(t *testing.T) {
	s := openTestStore(t)

	if err := s.UpsertChannels([]Channel{{ID: "C1", Name: "general"}}); err != nil {
		t.Fatalf("UpsertChannels() error = %v", err)
	}
	if err := s.UpsertUsers([]User{{ID: "U1", Name: "alice"}, {ID: "U2", Name: "bob"}}); err != nil {
		t.Fatalf("UpsertUsers() error = %v", err)
	}
	if err := s.SaveSearch("standup", "standup"); err != nil {
		t.Fatalf("SaveSearch() error = %v", err)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.ChannelCount != 1 || stats.UserCount != 2 || stats.SavedSearches != 1 {
		t.Errorf("stats = %+v, want 1 channel, 2 users, 1 saved search", stats)
	}
	if stats.RefreshedAt == nil {
		t.Error("stats.RefreshedAt = nil, want set after channel refresh")
	}
}
