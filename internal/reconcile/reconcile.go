// Package reconcile merges a freshly fetched message list into the
// currently displayed one, preserving identity of unchanged messages and
// reporting the minimal change-set so the caller can pick a render
// strategy.
package reconcile

import (
	"log/slog"

	"github.com/m96-chan/slackscout/internal/message"
)

// ChangeSet classifies every identity touched by one reconciliation.
type ChangeSet struct {
	Added     map[message.ID]struct{}
	Removed   map[message.ID]struct{}
	Updated   map[message.ID]struct{}
	Unchanged map[message.ID]struct{}
}

func newChangeSet() ChangeSet {
	return ChangeSet{
		Added:     make(map[message.ID]struct{}),
		Removed:   make(map[message.ID]struct{}),
		Updated:   make(map[message.ID]struct{}),
		Unchanged: make(map[message.ID]struct{}),
	}
}

// Empty reports whether the reconciliation produced no visible change.
func (c ChangeSet) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0
}

// Strategy is the suggested render strategy for a change-set.
type Strategy int

const (
	// StrategyNone means nothing changed; skip the re-render.
	StrategyNone Strategy = iota
	// StrategyPatch means only additions/updates occurred; safe to
	// insert without disturbing scroll position.
	StrategyPatch
	// StrategyFull means messages were removed; replace the view.
	StrategyFull
)

// Strategy returns the render strategy this change-set calls for.
func (c ChangeSet) Strategy() Strategy {
	switch {
	case c.Empty():
		return StrategyNone
	case len(c.Removed) == 0:
		return StrategyPatch
	default:
		return StrategyFull
	}
}

func (s Strategy) String() string {
	switch s {
	case StrategyNone:
		return "none"
	case StrategyPatch:
		return "patch"
	default:
		return "full"
	}
}

// Reconciler merges incoming message batches into a current list. It is
// pure data transformation and never fails; malformed input degrades to
// a logged warning.
type Reconciler struct {
	// Limit caps the result length for full (non-incremental) searches.
	// Zero means unlimited. Incremental polls are never capped here:
	// trimming a live feed is a presentation concern, and capping would
	// silently discard genuinely new messages.
	Limit int

	// KeepFirstDuplicate inverts the duplicate-suppression policy for
	// batches that contain the same identity twice. The default keeps
	// the last occurrence.
	KeepFirstDuplicate bool
}

// Reconcile merges incoming into current and classifies every identity.
//
// When incremental is true the incoming batch covers only a recent time
// window, so identities missing from it are NOT removed; only a full
// search is authoritative for absence. The output is always sorted
// newest first, ties keeping their prior order.
func (r *Reconciler) Reconcile(current, incoming []*message.Message, incremental bool) ([]*message.Message, ChangeSet) {
	changes := newChangeSet()

	index := make(map[message.ID]int, len(current))
	for i, m := range current {
		index[m.ID()] = i
	}

	incoming = r.dedupe(incoming)

	replaced := make(map[message.ID]*message.Message)
	var added []*message.Message
	incomingIDs := make(map[message.ID]struct{}, len(incoming))

	for _, in := range incoming {
		id := in.ID()
		incomingIDs[id] = struct{}{}

		pos, known := index[id]
		if !known {
			changes.Added[id] = struct{}{}
			added = append(added, in)
			continue
		}

		cur := current[pos]
		if cur.EqualContent(in) {
			changes.Unchanged[id] = struct{}{}
			continue
		}

		// The newer fetch is authoritative for the body, but reactions
		// load on a separate slower path: keep the richer copy.
		changes.Updated[id] = struct{}{}
		next := in.Clone()
		if next.Reactions == nil {
			next.Reactions = cur.Reactions
		}
		replaced[id] = next
	}

	merged := make([]*message.Message, 0, len(current)+len(added))
	for _, cur := range current {
		id := cur.ID()
		if _, present := incomingIDs[id]; !present && !incremental {
			changes.Removed[id] = struct{}{}
			continue
		}
		if next, ok := replaced[id]; ok {
			merged = append(merged, next)
			continue
		}
		merged = append(merged, cur)
	}
	merged = append(merged, added...)

	// Backstop: inputs merged across channels are not always sorted.
	message.SortNewestFirst(merged)

	if !incremental && r.Limit > 0 && len(merged) > r.Limit {
		merged = merged[:r.Limit]
	}

	return merged, changes
}

// dedupe resolves duplicate identities within a single batch. This is a
// defensive policy, not a contract callers may rely on.
func (r *Reconciler) dedupe(incoming []*message.Message) []*message.Message {
	seen := make(map[message.ID]int, len(incoming))
	out := make([]*message.Message, 0, len(incoming))

	for _, m := range incoming {
		id := m.ID()
		pos, dup := seen[id]
		if !dup {
			seen[id] = len(out)
			out = append(out, m)
			continue
		}
		slog.Warn("duplicate identity in incoming batch",
			"channel", id.Channel, "timestamp", id.Timestamp)
		if !r.KeepFirstDuplicate {
			out[pos] = m
		}
	}
	return out
}
