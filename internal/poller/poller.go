// Package poller drives live mode: a timer-driven loop that fetches
// messages newer than the last seen timestamp and merges them into the
// displayed list. The scheduler is an explicit object ticked from the
// outside, so tests drive it with a fake clock instead of wall time.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/metrics"
	"github.com/m96-chan/slackscout/internal/reconcile"
)

// Clock abstracts wall time for testability.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return systemClock{} }

// FetchFunc fetches messages newer than the given timestamp. An empty
// since fetches without a lower bound.
type FetchFunc func(ctx context.Context, since string) ([]*message.Message, error)

// ApplyFunc merges an incremental batch into the displayed list and
// returns the change-set. The search store owns the list; the poller
// never touches it directly.
type ApplyFunc func(incoming []*message.Message) reconcile.ChangeSet

// Classifier maps a fetch error to an error class string ("auth",
// "transient", "malformed").
type Classifier func(error) string

// Poller schedules incremental fetches while enabled. At most one fetch
// is in flight at a time: a tick that fires mid-fetch is skipped, not
// queued, which is what keeps two reconciliations from racing against
// the same current list.
type Poller struct {
	clock    Clock
	fetch    FetchFunc
	apply    ApplyFunc
	classify Classifier

	// OnAuthError is invoked on authentication failures so the caller
	// can prompt for re-auth. Polling keeps retrying regardless: the
	// user may fix credentials without restarting live mode.
	OnAuthError func(error)

	mu         sync.Mutex
	enabled    bool
	interval   time.Duration
	lastPoll   time.Time
	nextPoll   time.Time
	lastSeen   string
	known      map[message.ID]struct{}
	inFlight   bool
	generation uint64
	newCount   int
}

// New creates a Poller. clock may be nil for the system clock.
func New(clock Clock, interval time.Duration, fetch FetchFunc, apply ApplyFunc, classify Classifier) *Poller {
	if clock == nil {
		clock = SystemClock()
	}
	return &Poller{
		clock:    clock,
		fetch:    fetch,
		apply:    apply,
		classify: classify,
		interval: interval,
	}
}

// Enable starts a polling session anchored at the currently displayed
// messages. Identity tracking is only meaningful within one continuous
// session, so the known set and new-message tally reset here.
func (p *Poller) Enable(current []*message.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.clock.Now()
	p.enabled = true
	p.lastPoll = now
	p.nextPoll = now.Add(p.interval)
	p.lastSeen = message.Newest(current)
	p.newCount = 0
	p.known = make(map[message.ID]struct{}, len(current))
	for _, m := range current {
		p.known[m.ID()] = struct{}{}
	}
	p.generation++

	slog.Info("polling enabled",
		"interval", p.interval, "last_seen", p.lastSeen)
}

// Disable stops polling. Last-known state is otherwise left untouched;
// a later Enable starts fresh rather than resuming.
func (p *Poller) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.enabled = false
	p.nextPoll = time.Time{}
	p.generation++ // in-flight results from this session are stale now
	slog.Info("polling disabled")
}

// Enabled reports whether a polling session is active.
func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetInterval changes the poll interval. While enabled, the next poll is
// recomputed relative to the last poll so an in-progress wait is not
// restarted from scratch.
func (p *Poller) SetInterval(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.interval = d
	if p.enabled {
		p.nextPoll = p.lastPoll.Add(d)
	}
}

// NewMessageCount returns how many previously unseen messages arrived
// during the current session.
func (p *Poller) NewMessageCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newCount
}

// NextPoll returns the scheduled time of the next poll, zero when
// disabled.
func (p *Poller) NextPoll() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.nextPoll
}

// Tick runs one scheduler step. If polling is disabled, the next poll
// time has not arrived, or a fetch is already in flight, the tick is a
// no-op. A failed fetch is logged and retried on a later tick; it never
// disables polling.
func (p *Poller) Tick(ctx context.Context) {
	p.mu.Lock()
	if !p.enabled || p.clock.Now().Before(p.nextPoll) {
		p.mu.Unlock()
		return
	}
	if p.inFlight {
		metrics.PollSkips.Inc()
		p.mu.Unlock()
		return
	}

	p.inFlight = true
	gen := p.generation
	since := ""
	if p.lastSeen != "" {
		// One second past the newest seen message avoids re-fetching
		// the boundary message.
		since = message.AddSeconds(p.lastSeen, 1)
	}
	p.lastPoll = p.clock.Now()
	p.mu.Unlock()

	metrics.PollTicks.Inc()
	incoming, err := p.fetch(ctx, since)
	p.finish(gen, incoming, err)
}

// finish applies a completed fetch, unless the session it belongs to has
// since been disabled or restarted.
func (p *Poller) finish(gen uint64, incoming []*message.Message, err error) {
	p.mu.Lock()
	if !p.enabled || gen != p.generation {
		// Late result from a stale session; discard rather than
		// corrupt the current list.
		p.inFlight = false
		p.mu.Unlock()
		return
	}
	p.nextPoll = p.clock.Now().Add(p.interval)

	if err != nil {
		p.inFlight = false
		onAuth := p.OnAuthError
		p.mu.Unlock()

		class := "transient"
		if p.classify != nil {
			class = p.classify(err)
		}
		metrics.PollFailures.WithLabelValues(class).Inc()

		switch class {
		case "auth":
			slog.Error("poll fetch auth failure", "error", err)
			if onAuth != nil {
				onAuth(err)
			}
		case "malformed":
			slog.Warn("poll fetch returned malformed response", "error", err)
		default:
			slog.Debug("poll fetch transient failure", "error", err)
		}
		return
	}

	var fresh int
	for _, m := range incoming {
		if _, seen := p.known[m.ID()]; !seen {
			p.known[m.ID()] = struct{}{}
			fresh++
		}
	}
	p.newCount += fresh
	metrics.MessagesAdded.Add(float64(fresh))

	if newest := message.Newest(incoming); newest != "" &&
		(p.lastSeen == "" || message.CompareTimestamps(newest, p.lastSeen) > 0) {
		p.lastSeen = newest
	}
	apply := p.apply
	p.mu.Unlock()

	// The merge runs before inFlight clears, so a tick firing now still
	// skips instead of starting a second reconciliation mid-merge.
	if len(incoming) > 0 && apply != nil {
		apply(incoming)
	}

	p.mu.Lock()
	p.inFlight = false
	p.mu.Unlock()
}

// Run ticks the poller on the given cadence until ctx is done. The
// cadence is finer than the poll interval so interval changes take
// effect promptly.
func (p *Poller) Run(ctx context.Context, cadence time.Duration) {
	if cadence <= 0 {
		cadence = time.Second
	}
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}
