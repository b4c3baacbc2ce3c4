package search

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/reactions"
	islack "github.com/m96-chan/slackscout/internal/slack"
)

// Params scopes one message fetch. A non-empty ChannelIDs list fetches
// conversation history; otherwise the search API is used.
type Params struct {
	Query      string
	ChannelIDs []string
	UserID     string
	From       string // inclusive lower timestamp bound
	To         string // inclusive upper timestamp bound
	Limit      int
}

// Fetcher fetches one batch of messages for the given scope. Returns the
// messages and the approximate total the service reports.
type Fetcher interface {
	FetchPage(ctx context.Context, p Params) ([]*message.Message, int, error)
}

// SlackFetcher implements Fetcher and the reaction chunk capability
// against the Slack Web API.
type SlackFetcher struct {
	Client *islack.Client
}

// FetchPage fetches messages for the scope. Channel scopes may span
// several channels; each is one history call and the results are merged
// (the reconciler re-sorts, so cross-channel order here is best-effort).
func (f *SlackFetcher) FetchPage(ctx context.Context, p Params) ([]*message.Message, int, error) {
	if len(p.ChannelIDs) > 0 {
		return f.fetchHistory(ctx, p)
	}
	return f.fetchSearch(ctx, p)
}

func (f *SlackFetcher) fetchHistory(ctx context.Context, p Params) ([]*message.Message, int, error) {
	var out []*message.Message
	for _, channelID := range p.ChannelIDs {
		resp, err := f.Client.GetConversationHistory(ctx, &slack.GetConversationHistoryParameters{
			ChannelID: channelID,
			Limit:     p.Limit,
			Oldest:    p.From,
			Latest:    p.To,
			Inclusive: true,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("history %s: %w", channelID, err)
		}
		if resp == nil {
			// Unexpected response shape degrades to an empty batch.
			continue
		}
		for _, sm := range resp.Messages {
			out = append(out, message.FromSlackMessage(channelID, sm))
		}
	}
	return out, len(out), nil
}

func (f *SlackFetcher) fetchSearch(ctx context.Context, p Params) ([]*message.Message, int, error) {
	query := p.Query
	if p.UserID != "" {
		query += " from:<@" + p.UserID + ">"
	}

	count := p.Limit
	if count < 1 || count > 100 {
		count = 100
	}

	results, err := f.Client.SearchMessages(ctx, query, slack.SearchParameters{
		Count:         count,
		Sort:          "timestamp",
		SortDirection: "desc",
	})
	if err != nil {
		return nil, 0, fmt.Errorf("search %q: %w", p.Query, err)
	}
	if results == nil {
		return nil, 0, nil
	}

	out := make([]*message.Message, 0, len(results.Matches))
	for _, m := range results.Matches {
		// The search API has no timestamp window parameters; the
		// incremental anchor filters client-side.
		if p.From != "" && message.CompareTimestamps(m.Timestamp, p.From) < 0 {
			continue
		}
		if p.To != "" && message.CompareTimestamps(m.Timestamp, p.To) > 0 {
			continue
		}
		out = append(out, message.FromSearchMatch(m))
	}
	return out, results.Total, nil
}

// ReactionChunk fetches reaction summaries for one chunk of requests.
// The reaction-lookup endpoint is per-message, so a chunk is a paced
// sequence of lookups: individual failures leave their position absent,
// and the chunk as a whole fails only when nothing succeeded or the
// failure is not worth retrying item by item.
func (f *SlackFetcher) ReactionChunk(ctx context.Context, reqs []reactions.Request) (map[int]message.ReactionSummary, error) {
	out := make(map[int]message.ReactionSummary, len(reqs))
	var firstErr error
	failures := 0

	for _, req := range reqs {
		items, err := f.Client.GetReactions(ctx, req.Channel, req.Timestamp)
		if err != nil {
			if ctx.Err() != nil || islack.IsAuthError(err) {
				return nil, err
			}
			if firstErr == nil {
				firstErr = err
			}
			failures++
			continue
		}
		rs := message.FromItemReactions(items)
		if rs == nil {
			rs = message.ReactionSummary{}
		}
		out[req.Position] = rs
	}

	if failures == len(reqs) && len(reqs) > 0 {
		return nil, firstErr
	}
	return out, nil
}
