package reactions

import (
	"context"
	"log/slog"
	"time"

	"github.com/m96-chan/slackscout/internal/message"
)

const defaultYield = 10 * time.Millisecond

// NotifyFunc is called after each applied chunk with the identities
// whose reactions changed, so the presentation layer can re-render
// incrementally instead of waiting for the whole set.
type NotifyFunc func(ids []message.ID)

// Loader orchestrates the Fetcher across a whole result set: a small
// first batch covering what's visible, then the rest in fixed-size
// chunks fetched one at a time. Sequential fetching bounds the number
// of outstanding remote calls.
type Loader struct {
	Fetcher    *Fetcher
	FirstBatch int
	ChunkSize  int
	// Yield is the cooperative pause between chunks. Zero means the
	// default. It hands control back before the next chunk starts, so
	// a long result set never monopolizes the loop.
	Yield  time.Duration
	Notify NotifyFunc
}

// Load fetches missing reaction summaries for msgs and attaches them in
// place by position. Messages that already have a summary are left
// untouched. Returns the total number of failed lookups.
func (l *Loader) Load(ctx context.Context, msgs []*message.Message) int {
	var pending []Request
	for i, m := range msgs {
		if m.Reactions != nil {
			continue
		}
		pending = append(pending, Request{
			Channel:   m.Channel,
			Timestamp: m.Timestamp,
			Position:  i,
		})
	}

	// A repeat render of a realtime-merged list mostly has reactions
	// already; skip the remote round-trips entirely.
	if len(pending) == 0 {
		return 0
	}

	first := l.FirstBatch
	if first < 1 {
		first = 1
	}
	if first > len(pending) {
		first = len(pending)
	}

	errs := l.fetchAndApply(ctx, msgs, pending[:first])
	pending = pending[first:]

	chunk := l.ChunkSize
	if chunk < 1 {
		chunk = 1
	}

	for len(pending) > 0 {
		if !l.yield(ctx) {
			return errs
		}

		end := chunk
		if end > len(pending) {
			end = len(pending)
		}
		errs += l.fetchAndApply(ctx, msgs, pending[:end])
		pending = pending[end:]
	}

	return errs
}

// fetchAndApply fetches one group of requests, attaches results by
// position, and notifies. Attach is non-destructive: a slot that gained
// a summary since the request was built keeps what it has.
func (l *Loader) fetchAndApply(ctx context.Context, msgs []*message.Message, reqs []Request) int {
	if ctx.Err() != nil {
		return 0
	}
	resp := l.Fetcher.FetchAll(ctx, reqs)
	if ctx.Err() != nil {
		// The load was cancelled while the fetch was in flight. A
		// successor load may already own these messages, so the late
		// result is discarded, not attached.
		return resp.Errors
	}

	var changed []message.ID
	for _, res := range resp.Reactions {
		if res.Summary == nil {
			continue
		}
		if res.Position < 0 || res.Position >= len(msgs) {
			continue
		}
		m := msgs[res.Position]
		if !matchesRequest(reqs, res.Position, m) {
			// The list was replaced under us; drop the stale result.
			continue
		}
		if m.Reactions != nil {
			continue
		}
		m.Reactions = res.Summary
		changed = append(changed, m.ID())
	}

	if resp.Errors > 0 {
		slog.Debug("reaction batch partially failed",
			"fetched", resp.Fetched, "errors", resp.Errors)
	}

	if len(changed) > 0 && l.Notify != nil {
		l.Notify(changed)
	}
	return resp.Errors
}

// matchesRequest confirms the message at position is still the one the
// request was built for.
func matchesRequest(reqs []Request, position int, m *message.Message) bool {
	for _, req := range reqs {
		if req.Position == position {
			return req.Channel == m.Channel && req.Timestamp == m.Timestamp
		}
	}
	return false
}

// yield pauses cooperatively between chunks. Returns false when the
// context was cancelled during the pause.
func (l *Loader) yield(ctx context.Context) bool {
	d := l.Yield
	if d <= 0 {
		d = defaultYield
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
