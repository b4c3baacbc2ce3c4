package search

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/poller"
	"github.com/m96-chan/slackscout/internal/reactions"
	"github.com/m96-chan/slackscout/internal/reconcile"
	islack "github.com/m96-chan/slackscout/internal/slack"
)

// Orchestrator ties the pipeline together: it runs full searches through
// the store, kicks off progressive reaction loading after each one, and
// owns the live-mode poller.
type Orchestrator struct {
	store   *Store
	fetcher Fetcher
	loader  *reactions.Loader
	poll    *poller.Poller

	mu         sync.Mutex
	scope      Params
	cancelLoad context.CancelFunc
	prevLoad   chan struct{}
	loadDone   sync.WaitGroup
}

// Options configures an Orchestrator.
type Options struct {
	Limit        int
	PollInterval time.Duration
	Clock        poller.Clock // nil for system clock
}

// NewOrchestrator wires a store, fetcher, and reaction loader into one
// pipeline. The loader's notifications are routed to the store so
// subscribers see reaction attachment as incremental updates.
func NewOrchestrator(store *Store, fetcher Fetcher, loader *reactions.Loader, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:   store,
		fetcher: fetcher,
		loader:  loader,
	}
	loader.Notify = store.Touch

	o.poll = poller.New(opts.Clock, opts.PollInterval, o.fetchIncremental, o.applyIncremental, islack.Classify)

	if opts.Limit > 0 {
		store.rec.Limit = opts.Limit
	}
	return o
}

// Poller exposes the live-mode scheduler.
func (o *Orchestrator) Poller() *poller.Poller { return o.poll }

// Store exposes the reconciled result store.
func (o *Orchestrator) Store() *Store { return o.store }

// Search runs a full search for the given scope, replaces the displayed
// list, and starts loading reactions in the background. Switching scope
// invalidates any in-flight reaction load and restarts an active polling
// session against the new result set.
func (o *Orchestrator) Search(ctx context.Context, p Params) (reconcile.ChangeSet, int, error) {
	o.mu.Lock()
	o.scope = p
	o.mu.Unlock()

	msgs, total, err := o.fetcher.FetchPage(ctx, p)
	if err != nil {
		if islack.Classify(err) == islack.ErrClassMalformed {
			// Treat as an empty result so reconciliation still runs.
			slog.Warn("search returned malformed response", "error", err)
			msgs, err = nil, nil
		} else {
			return reconcile.ChangeSet{}, 0, err
		}
	}

	changes := o.store.Replace(msgs)
	slog.Info("search reconciled",
		"added", len(changes.Added), "removed", len(changes.Removed),
		"updated", len(changes.Updated), "strategy", changes.Strategy().String())

	o.startReactionLoad(ctx)

	if o.poll.Enabled() {
		// Scope change: identity tracking restarts with the new set.
		o.poll.Enable(o.store.Snapshot())
	}

	return changes, total, nil
}

// EnableLive starts live polling anchored at the current result set.
func (o *Orchestrator) EnableLive() {
	o.poll.Enable(o.store.Snapshot())
}

// DisableLive stops live polling and cancels any in-flight reaction
// load tied to the session.
func (o *Orchestrator) DisableLive() {
	o.poll.Disable()
}

// Wait blocks until any background reaction load has finished. Used by
// one-shot CLI commands so results are complete before printing.
func (o *Orchestrator) Wait() {
	o.loadDone.Wait()
}

// fetchIncremental is the poller's fetch capability: the current scope
// narrowed to messages after the anchor.
func (o *Orchestrator) fetchIncremental(ctx context.Context, since string) ([]*message.Message, error) {
	o.mu.Lock()
	p := o.scope
	o.mu.Unlock()

	p.From = since
	p.To = ""

	msgs, _, err := o.fetcher.FetchPage(ctx, p)
	if err != nil && islack.Classify(err) == islack.ErrClassMalformed {
		slog.Warn("poll returned malformed response", "error", err)
		return nil, nil
	}
	return msgs, err
}

// applyIncremental merges a poll batch and tops up reactions for the
// newly arrived messages.
func (o *Orchestrator) applyIncremental(incoming []*message.Message) reconcile.ChangeSet {
	changes := o.store.Merge(incoming)
	if len(changes.Added) > 0 || len(changes.Updated) > 0 {
		o.startReactionLoad(context.Background())
	}
	return changes
}

// startReactionLoad begins a progressive reaction load over the current
// snapshot, cancelling any previous load still in flight. The loader
// short-circuits when the set already has its reactions, so repeat loads
// after small merges are cheap.
func (o *Orchestrator) startReactionLoad(parent context.Context) {
	o.mu.Lock()
	if o.cancelLoad != nil {
		o.cancelLoad()
	}
	ctx, cancel := context.WithCancel(parent)
	o.cancelLoad = cancel
	prev := o.prevLoad
	done := make(chan struct{})
	o.prevLoad = done
	o.mu.Unlock()

	snapshot := o.store.Snapshot()

	o.loadDone.Add(1)
	go func() {
		defer o.loadDone.Done()
		defer close(done)
		// Successive snapshots share message pointers, so the new load
		// must not start attaching until the cancelled one has returned.
		if prev != nil {
			<-prev
		}
		if errs := o.loader.Load(ctx, snapshot); errs > 0 {
			slog.Debug("reaction load finished with failures", "errors", errs)
		}
	}()
}
