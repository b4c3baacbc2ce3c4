package search

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/reactions"
	"github.com/m96-chan/slackscout/internal/reconcile"
)

// fakeFetcher serves canned pages and records the params it saw.
type fakeFetcher struct {
	mu    sync.Mutex
	pages [][]*message.Message
	seen  []Params
	err   error
}

func (f *fakeFetcher) FetchPage(_ context.Context, p Params) ([]*message.Message, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, p)
	if f.err != nil {
		return nil, 0, f.err
	}
	if len(f.pages) == 0 {
		return nil, 0, nil
	}
	page := f.pages[0]
	if len(f.pages) > 1 {
		f.pages = f.pages[1:]
	}
	return page, len(page), nil
}

// fakeClock mirrors the poller test clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLoader() *reactions.Loader {
	return &reactions.Loader{
		Fetcher: &reactions.Fetcher{
			BatchSize: 10,
			Fetch: func(_ context.Context, reqs []reactions.Request) (map[int]message.ReactionSummary, error) {
				out := make(map[int]message.ReactionSummary, len(reqs))
				for _, r := range reqs {
					out[r.Position] = message.ReactionSummary{"wave": {Count: 1}}
				}
				return out, nil
			},
		},
		FirstBatch: 10,
		ChunkSize:  15,
		Yield:      time.Millisecond,
	}
}

func TestSearchReplacesAndLoadsReactions(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]*message.Message{{
		msg("C1", "100.000000", "a"),
		msg("C1", "90.000000", "b"),
	}}}
	store := NewStore(&reconcile.Reconciler{})
	o := NewOrchestrator(store, fetcher, newTestLoader(), Options{
		Limit:        50,
		PollInterval: 30 * time.Second,
		Clock:        &fakeClock{now: time.Unix(1000, 0)},
	})

	changes, total, err := o.Search(context.Background(), Params{Query: "deploy"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if total != 2 || len(changes.Added) != 2 {
		t.Errorf("total=%d added=%d, want 2/2", total, len(changes.Added))
	}

	o.Wait()

	for _, m := range store.Snapshot() {
		if m.Reactions == nil {
			t.Errorf("message %s has no reactions after load", m.Timestamp)
		}
	}
}

func TestSearchErrorPropagates(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("boom")}
	store := NewStore(&reconcile.Reconciler{})
	o := NewOrchestrator(store, fetcher, newTestLoader(), Options{
		PollInterval: time.Second,
		Clock:        &fakeClock{now: time.Unix(1000, 0)},
	})

	_, _, err := o.Search(context.Background(), Params{Query: "x"})
	if err == nil {
		t.Fatal("expected error")
	}
	if store.Len() != 0 {
		t.Errorf("failed search must not touch the store, got %d messages", store.Len())
	}
}

func TestLivePollMergesThroughStore(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]*message.Message{
		{msg("C1", "100.000000", "a")},  // full search
		{msg("C1", "110.000000", "new")}, // poll batch
	}}
	store := NewStore(&reconcile.Reconciler{})
	clock := &fakeClock{now: time.Unix(1000, 0)}
	o := NewOrchestrator(store, fetcher, newTestLoader(), Options{
		PollInterval: 10 * time.Second,
		Clock:        clock,
	})

	if _, _, err := o.Search(context.Background(), Params{Query: "deploy"}); err != nil {
		t.Fatal(err)
	}
	o.EnableLive()

	clock.Advance(11 * time.Second)
	o.Poller().Tick(context.Background())
	o.Wait()

	if store.Len() != 2 {
		t.Fatalf("store has %d messages, want 2 after poll merge", store.Len())
	}
	if store.Snapshot()[0].Timestamp != "110.000000" {
		t.Errorf("newest message should lead, got %s", store.Snapshot()[0].Timestamp)
	}

	// The poll fetch must be anchored past the newest displayed message.
	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	last := fetcher.seen[len(fetcher.seen)-1]
	if last.From != "101.000000" {
		t.Errorf("poll anchor = %q, want 101.000000", last.From)
	}
	if last.Query != "deploy" {
		t.Errorf("poll should reuse the search scope, got query %q", last.Query)
	}
}

func TestScopeChangeRestartsPollSession(t *testing.T) {
	fetcher := &fakeFetcher{pages: [][]*message.Message{
		{msg("C1", "100.000000", "a")}, // first search
		{msg("C2", "200.000000", "b")}, // second search, new scope
	}}
	store := NewStore(&reconcile.Reconciler{})
	clock := &fakeClock{now: time.Unix(1000, 0)}
	o := NewOrchestrator(store, fetcher, newTestLoader(), Options{
		PollInterval: 10 * time.Second,
		Clock:        clock,
	})

	if _, _, err := o.Search(context.Background(), Params{Query: "one"}); err != nil {
		t.Fatal(err)
	}
	o.EnableLive()

	if _, _, err := o.Search(context.Background(), Params{Query: "two"}); err != nil {
		t.Fatal(err)
	}
	if o.Poller().NewMessageCount() != 0 {
		t.Error("scope change should reset the polling session")
	}

	clock.Advance(11 * time.Second)
	o.Poller().Tick(context.Background())
	o.Wait()

	fetcher.mu.Lock()
	defer fetcher.mu.Unlock()
	last := fetcher.seen[len(fetcher.seen)-1]
	if last.Query != "two" {
		t.Errorf("poll should use the new scope, got query %q", last.Query)
	}
	if last.From != "201.000000" {
		t.Errorf("poll anchor = %q, want 201.000000 (new scope's newest)", last.From)
	}
}

func TestRestartedReactionLoadWaitsForPredecessor(t *testing.T) {
	var (
		mu      sync.Mutex
		active  int
		overlap bool
	)
	loader := &reactions.Loader{
		Fetcher: &reactions.Fetcher{
			BatchSize: 10,
			Fetch: func(_ context.Context, reqs []reactions.Request) (map[int]message.ReactionSummary, error) {
				mu.Lock()
				active++
				if active > 1 {
					overlap = true
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				active--
				mu.Unlock()

				out := make(map[int]message.ReactionSummary, len(reqs))
				for _, r := range reqs {
					out[r.Position] = message.ReactionSummary{"wave": {Count: 1}}
				}
				return out, nil
			},
		},
		FirstBatch: 1,
		ChunkSize:  1,
		Yield:      time.Millisecond,
	}

	// The same identities on both pages: the reconciler keeps the
	// current pointers, so both loads work over shared messages.
	fetcher := &fakeFetcher{pages: [][]*message.Message{
		{msg("C1", "100.000000", "a"), msg("C1", "90.000000", "b"), msg("C1", "80.000000", "c")},
		{msg("C1", "100.000000", "a"), msg("C1", "90.000000", "b"), msg("C1", "80.000000", "c")},
	}}
	store := NewStore(&reconcile.Reconciler{})
	o := NewOrchestrator(store, fetcher, loader, Options{Clock: &fakeClock{}})

	if _, _, err := o.Search(context.Background(), Params{Query: "one"}); err != nil {
		t.Fatal(err)
	}
	// Restart the load while the first is still fetching.
	if _, _, err := o.Search(context.Background(), Params{Query: "two"}); err != nil {
		t.Fatal(err)
	}
	o.Wait()

	mu.Lock()
	defer mu.Unlock()
	if overlap {
		t.Error("restarted load fetched concurrently with its cancelled predecessor")
	}

	for i, m := range store.Snapshot() {
		if m.Reactions == nil {
			t.Errorf("message %d missing a summary after the restarted load", i)
		}
	}
}
