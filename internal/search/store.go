// Package search orchestrates fetching, reconciliation, progressive
// reaction loading, and live polling behind one observable result store.
package search

import (
	"sync"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/reconcile"
)

// Subscriber receives the merged list and the change-set that produced
// it after every update. The presentation layer subscribes here and
// nowhere else.
type Subscriber func(msgs []*message.Message, changes reconcile.ChangeSet)

// Store owns the displayed message list. It is the only writer: every
// mutation goes through the reconciler, except reaction attachment,
// which is reported via Touch.
type Store struct {
	mu   sync.Mutex
	rec  *reconcile.Reconciler
	msgs []*message.Message
	subs []Subscriber
}

// NewStore creates a Store using the given reconciler.
func NewStore(rec *reconcile.Reconciler) *Store {
	return &Store{rec: rec}
}

// Subscribe registers a subscriber for result changes.
func (s *Store) Subscribe(fn Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns the current message list. The slice is a copy; the
// messages are shared.
func (s *Store) Snapshot() []*message.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*message.Message, len(s.msgs))
	copy(out, s.msgs)
	return out
}

// Len returns the number of messages currently held.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

// Replace reconciles a full search result against the current list. The
// incoming set is authoritative: identities absent from it are removed.
func (s *Store) Replace(incoming []*message.Message) reconcile.ChangeSet {
	return s.update(incoming, false)
}

// Merge reconciles an incremental poll batch. Absence is not removal: a
// poll only covers a recent window.
func (s *Store) Merge(incoming []*message.Message) reconcile.ChangeSet {
	return s.update(incoming, true)
}

func (s *Store) update(incoming []*message.Message, incremental bool) reconcile.ChangeSet {
	s.mu.Lock()
	merged, changes := s.rec.Reconcile(s.msgs, incoming, incremental)
	s.msgs = merged
	snapshot := make([]*message.Message, len(merged))
	copy(snapshot, merged)
	subs := s.subs
	s.mu.Unlock()

	if !changes.Empty() {
		for _, fn := range subs {
			fn(snapshot, changes)
		}
	}
	return changes
}

// Touch notifies subscribers that the given messages changed in place.
// Used by the reaction loader, which attaches summaries to messages
// already in the list without reordering or removing.
func (s *Store) Touch(ids []message.ID) {
	if len(ids) == 0 {
		return
	}

	changes := reconcile.ChangeSet{
		Updated: make(map[message.ID]struct{}, len(ids)),
	}
	for _, id := range ids {
		changes.Updated[id] = struct{}{}
	}

	s.mu.Lock()
	snapshot := make([]*message.Message, len(s.msgs))
	copy(snapshot, s.msgs)
	subs := s.subs
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot, changes)
	}
}

// Reset clears the store without notifying.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
}
