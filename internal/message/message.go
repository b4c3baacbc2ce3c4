// Package message defines the canonical message model: identity by
// (channel, timestamp) and a total order over Slack's fixed-point
// decimal timestamps.
package message

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/slack-go/slack"
)

// ID is the canonical identity of a message. Slack timestamps are unique
// within a channel, so the pair identifies a message globally.
type ID struct {
	Channel   string
	Timestamp string
}

// Reaction is one emoji reaction on a message.
type Reaction struct {
	Count int
	Users []string
}

// ReactionSummary maps reaction name to its count and reactors. A nil
// summary means reactions have not been fetched yet; an empty non-nil
// summary means the message has no reactions.
type ReactionSummary map[string]Reaction

// Equal reports whether two summaries carry the same reactions.
func (rs ReactionSummary) Equal(other ReactionSummary) bool {
	if len(rs) != len(other) {
		return false
	}
	for name, r := range rs {
		o, ok := other[name]
		if !ok || o.Count != r.Count {
			return false
		}
	}
	return true
}

// Message is one chat message. Reactions arrive on a separate, slower
// path than the body, so Reactions stays nil until attached.
type Message struct {
	Channel         string
	ChannelName     string
	Timestamp       string
	ThreadTimestamp string
	UserID          string
	UserName        string
	Text            string
	Permalink       string
	ReplyCount      int
	Reactions       ReactionSummary
}

// ID returns the message's identity.
func (m *Message) ID() ID {
	return ID{Channel: m.Channel, Timestamp: m.Timestamp}
}

// EqualContent reports whether two copies of the same message carry the
// same displayable content. A nil reaction summary on other means its
// reactions have not been fetched and is not treated as a difference.
func (m *Message) EqualContent(other *Message) bool {
	if m.Text != other.Text ||
		m.UserName != other.UserName ||
		m.ReplyCount != other.ReplyCount {
		return false
	}
	if other.Reactions != nil && !other.Reactions.Equal(m.Reactions) {
		return false
	}
	return true
}

// Clone returns a shallow copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	return &c
}

// CompareTimestamps orders two Slack timestamps ("1234567890.000100") as
// fixed-point decimals. Comparing them as floats loses microsecond
// precision and misorders messages, so the integer and fractional parts
// are compared separately. Returns -1, 0, or 1.
func CompareTimestamps(a, b string) int {
	aSec, aFrac := splitTimestamp(a)
	bSec, bFrac := splitTimestamp(b)

	switch {
	case aSec < bSec:
		return -1
	case aSec > bSec:
		return 1
	}

	// Same second: compare fractional digits padded to equal width.
	width := len(aFrac)
	if len(bFrac) > width {
		width = len(bFrac)
	}
	aFrac += strings.Repeat("0", width-len(aFrac))
	bFrac += strings.Repeat("0", width-len(bFrac))
	return strings.Compare(aFrac, bFrac)
}

// splitTimestamp separates the seconds and fractional parts of a Slack
// timestamp. Malformed seconds parse as zero and sort first.
func splitTimestamp(ts string) (int64, string) {
	secStr, frac, _ := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return 0, frac
	}
	return sec, frac
}

// AddSeconds shifts a timestamp's seconds part, leaving the fractional
// part intact. Used to anchor incremental fetches just past the newest
// seen message without float math.
func AddSeconds(ts string, secs int64) string {
	secStr, frac, hasFrac := strings.Cut(ts, ".")
	sec, err := strconv.ParseInt(secStr, 10, 64)
	if err != nil {
		return ts
	}
	out := strconv.FormatInt(sec+secs, 10)
	if hasFrac {
		out += "." + frac
	}
	return out
}

// ParseTimestamp converts a Slack timestamp to a time.Time, second
// precision.
func ParseTimestamp(ts string) time.Time {
	sec, _ := splitTimestamp(ts)
	if sec == 0 {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// SortNewestFirst stably sorts messages by timestamp descending. Ties
// keep their original input order.
func SortNewestFirst(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return CompareTimestamps(msgs[i].Timestamp, msgs[j].Timestamp) > 0
	})
}

// Newest returns the largest timestamp in msgs, or "" for an empty slice.
func Newest(msgs []*Message) string {
	var newest string
	for _, m := range msgs {
		if newest == "" || CompareTimestamps(m.Timestamp, newest) > 0 {
			newest = m.Timestamp
		}
	}
	return newest
}

// FromSlackMessage converts a conversation-history message. History
// responses don't carry the channel, so it is supplied by the caller.
func FromSlackMessage(channelID string, sm slack.Message) *Message {
	return &Message{
		Channel:         channelID,
		Timestamp:       sm.Timestamp,
		ThreadTimestamp: sm.ThreadTimestamp,
		UserID:          sm.User,
		UserName:        sm.Username,
		Text:            sm.Text,
		Permalink:       sm.Permalink,
		ReplyCount:      sm.ReplyCount,
		Reactions:       FromItemReactions(sm.Reactions),
	}
}

// FromSearchMatch converts a search.messages match.
func FromSearchMatch(sm slack.SearchMessage) *Message {
	return &Message{
		Channel:     sm.Channel.ID,
		ChannelName: sm.Channel.Name,
		Timestamp:   sm.Timestamp,
		UserID:      sm.User,
		UserName:    sm.Username,
		Text:        sm.Text,
		Permalink:   sm.Permalink,
	}
}

// FromItemReactions converts slack.ItemReaction entries to a summary.
// Returns nil for an empty input so "not fetched" stays distinguishable.
func FromItemReactions(reactions []slack.ItemReaction) ReactionSummary {
	if len(reactions) == 0 {
		return nil
	}
	rs := make(ReactionSummary, len(reactions))
	for _, r := range reactions {
		rs[r.Name] = Reaction{Count: r.Count, Users: r.Users}
	}
	return rs
}
