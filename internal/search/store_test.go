package search

import (
	"testing"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/reconcile"
)

func msg(channel, ts, text string) *message.Message {
	return &message.Message{Channel: channel, Timestamp: ts, Text: text}
}

func TestStoreReplaceNotifiesSubscribers(t *testing.T) {
	s := NewStore(&reconcile.Reconciler{})

	var gotMsgs []*message.Message
	var gotChanges reconcile.ChangeSet
	calls := 0
	s.Subscribe(func(msgs []*message.Message, changes reconcile.ChangeSet) {
		gotMsgs = msgs
		gotChanges = changes
		calls++
	})

	s.Replace([]*message.Message{msg("C1", "100.000000", "a")})

	if calls != 1 {
		t.Fatalf("subscriber calls = %d, want 1", calls)
	}
	if len(gotMsgs) != 1 || gotMsgs[0].Timestamp != "100.000000" {
		t.Errorf("unexpected messages: %v", gotMsgs)
	}
	if len(gotChanges.Added) != 1 {
		t.Errorf("expected 1 added, got %+v", gotChanges)
	}
}

func TestStoreNoopUpdateDoesNotNotify(t *testing.T) {
	s := NewStore(&reconcile.Reconciler{})
	batch := []*message.Message{msg("C1", "100.000000", "a")}
	s.Replace(batch)

	calls := 0
	s.Subscribe(func([]*message.Message, reconcile.ChangeSet) { calls++ })

	s.Replace(batch)
	if calls != 0 {
		t.Errorf("no-op replace should not notify, got %d calls", calls)
	}

	s.Merge(nil)
	if calls != 0 {
		t.Errorf("empty merge should not notify, got %d calls", calls)
	}
}

func TestStoreMergeKeepsExisting(t *testing.T) {
	s := NewStore(&reconcile.Reconciler{})
	s.Replace([]*message.Message{
		msg("C1", "100.000000", "a"),
		msg("C1", "90.000000", "b"),
	})

	changes := s.Merge([]*message.Message{msg("C1", "110.000000", "c")})

	if len(changes.Removed) != 0 {
		t.Errorf("merge must not remove: %+v", changes.Removed)
	}
	if s.Len() != 3 {
		t.Errorf("Len = %d, want 3", s.Len())
	}

	snap := s.Snapshot()
	if snap[0].Timestamp != "110.000000" {
		t.Errorf("newest message should be first, got %s", snap[0].Timestamp)
	}
}

func TestStoreTouchNotifiesWithUpdatedSet(t *testing.T) {
	s := NewStore(&reconcile.Reconciler{})
	s.Replace([]*message.Message{msg("C1", "100.000000", "a")})

	var got reconcile.ChangeSet
	calls := 0
	s.Subscribe(func(_ []*message.Message, changes reconcile.ChangeSet) {
		got = changes
		calls++
	})

	s.Touch([]message.ID{{Channel: "C1", Timestamp: "100.000000"}})

	if calls != 1 {
		t.Fatalf("subscriber calls = %d, want 1", calls)
	}
	if _, ok := got.Updated[message.ID{Channel: "C1", Timestamp: "100.000000"}]; !ok {
		t.Errorf("touch should report the id as updated, got %+v", got)
	}

	s.Touch(nil)
	if calls != 1 {
		t.Error("empty touch should not notify")
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore(&reconcile.Reconciler{})
	s.Replace([]*message.Message{msg("C1", "100.000000", "a")})

	snap := s.Snapshot()
	snap[0] = msg("C9", "999.000000", "evil")

	if got := s.Snapshot()[0].Channel; got != "C1" {
		t.Errorf("mutating a snapshot slice must not affect the store, got %s", got)
	}
}
