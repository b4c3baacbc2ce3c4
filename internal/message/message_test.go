package message

import (
	"testing"
)

func TestCompareTimestamps(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"100.000000", "100.000000", 0},
		{"100.000001", "100.000000", 1},
		{"100.000000", "100.000001", -1},
		{"99.999999", "100.000000", -1},
		{"100.000100", "100.00002", 1}, // fixed-point, not numeric fraction
		{"100", "100.000000", 0},
		{"1700000000.123456", "1700000000.123455", 1},
	}

	for _, tt := range tests {
		if got := CompareTimestamps(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareTimestamps(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompareTimestampsNoFloatPrecisionLoss(t *testing.T) {
	// These two differ only in the last microsecond digit; as float64
	// they can round to the same value.
	a := "1700000000.000001"
	b := "1700000000.000002"
	if got := CompareTimestamps(a, b); got != -1 {
		t.Errorf("CompareTimestamps(%q, %q) = %d, want -1", a, b, got)
	}
}

func TestAddSeconds(t *testing.T) {
	tests := []struct {
		ts   string
		add  int64
		want string
	}{
		{"100.000500", 1, "101.000500"},
		{"100", 1, "101"},
		{"1700000000.123456", 60, "1700000060.123456"},
	}

	for _, tt := range tests {
		if got := AddSeconds(tt.ts, tt.add); got != tt.want {
			t.Errorf("AddSeconds(%q, %d) = %q, want %q", tt.ts, tt.add, got, tt.want)
		}
	}
}

func TestSortNewestFirst(t *testing.T) {
	msgs := []*Message{
		{Channel: "C1", Timestamp: "90.000000"},
		{Channel: "C1", Timestamp: "110.000000"},
		{Channel: "C2", Timestamp: "100.000000"},
	}
	SortNewestFirst(msgs)

	want := []string{"110.000000", "100.000000", "90.000000"}
	for i, ts := range want {
		if msgs[i].Timestamp != ts {
			t.Errorf("msgs[%d].Timestamp = %q, want %q", i, msgs[i].Timestamp, ts)
		}
	}
}

func TestSortNewestFirstStableOnTies(t *testing.T) {
	// Same timestamp in different channels keeps input order.
	msgs := []*Message{
		{Channel: "C1", Timestamp: "100.000000"},
		{Channel: "C2", Timestamp: "100.000000"},
	}
	SortNewestFirst(msgs)
	if msgs[0].Channel != "C1" || msgs[1].Channel != "C2" {
		t.Errorf("tie order changed: got %s, %s", msgs[0].Channel, msgs[1].Channel)
	}
}

func TestNewest(t *testing.T) {
	if got := Newest(nil); got != "" {
		t.Errorf("Newest(nil) = %q, want empty", got)
	}
	msgs := []*Message{
		{Timestamp: "90.000000"},
		{Timestamp: "110.000000"},
		{Timestamp: "100.000000"},
	}
	if got := Newest(msgs); got != "110.000000" {
		t.Errorf("Newest = %q, want 110.000000", got)
	}
}

func TestEqualContentIgnoresUnfetchedReactions(t *testing.T) {
	cur := &Message{Text: "x", Reactions: ReactionSummary{"thumbsup": {Count: 1}}}
	incoming := &Message{Text: "x"} // reactions not fetched

	if !cur.EqualContent(incoming) {
		t.Error("nil incoming reactions should not count as a content difference")
	}

	incoming.Reactions = ReactionSummary{"thumbsup": {Count: 2}}
	if cur.EqualContent(incoming) {
		t.Error("differing fetched reactions should count as a content difference")
	}
}

func TestEqualContentDetectsEdit(t *testing.T) {
	a := &Message{Text: "x"}
	b := &Message{Text: "y"}
	if a.EqualContent(b) {
		t.Error("edited text should not be equal")
	}
}

func TestReactionSummaryEqual(t *testing.T) {
	a := ReactionSummary{"wave": {Count: 2, Users: []string{"U1", "U2"}}}
	b := ReactionSummary{"wave": {Count: 2, Users: []string{"U1", "U2"}}}
	if !a.Equal(b) {
		t.Error("identical summaries should be equal")
	}
	b["eyes"] = Reaction{Count: 1}
	if a.Equal(b) {
		t.Error("summaries of different size should not be equal")
	}
}
