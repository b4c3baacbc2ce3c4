// Package slack wraps the Slack Web API with rate-limit retry, proactive
// pacing, and error classification for the fetch pipeline.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/time/rate"
)

// Client is a thin wrapper around slack.Client with rate-limit retry,
// proactive request pacing, and cached identity information.
type Client struct {
	api      *slack.Client
	limiter  *rate.Limiter
	UserID   string
	TeamID   string
	TeamName string
	UserName string
}

// New creates a Client, validates the token via AuthTest, and populates
// the identity fields. requestsPerSecond paces outbound calls so bursts
// of batch fetches stay under the service's rate limits.
func New(userToken string, requestsPerSecond float64) (*Client, error) {
	if !strings.HasPrefix(userToken, "xoxp-") && !strings.HasPrefix(userToken, "xoxb-") {
		return nil, fmt.Errorf("token must start with xoxp- or xoxb- (got %s...)", safePrefix(userToken))
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 4
	}

	api := slack.New(userToken)

	var resp *slack.AuthTestResponse
	err := retryOnRateLimit(func() error {
		var e error
		resp, e = api.AuthTest()
		return e
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		api:      api,
		limiter:  rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		UserID:   resp.UserID,
		TeamID:   resp.TeamID,
		TeamName: resp.Team,
		UserName: resp.User,
	}, nil
}

// API returns the underlying slack.Client for direct access.
func (c *Client) API() *slack.Client { return c.api }

// call paces the request, executes fn, and retries once on a rate-limit
// response.
func (c *Client) call(ctx context.Context, fn func() error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return retryOnRateLimit(fn)
}

// retryOnRateLimit executes fn and, if a RateLimitedError is returned,
// sleeps for the requested duration and retries once.
func retryOnRateLimit(fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}

	var rle *slack.RateLimitedError
	if errors.As(err, &rle) {
		time.Sleep(rle.RetryAfter)
		return fn()
	}
	return err
}

// SearchMessages searches for messages matching a query.
func (c *Client) SearchMessages(ctx context.Context, query string, params slack.SearchParameters) (*slack.SearchMessages, error) {
	var results *slack.SearchMessages
	err := c.call(ctx, func() error {
		var e error
		results, e = c.api.SearchMessagesContext(ctx, query, params)
		return e
	})
	return results, err
}

// GetConversationHistory returns message history for a conversation.
func (c *Client) GetConversationHistory(ctx context.Context, params *slack.GetConversationHistoryParameters) (*slack.GetConversationHistoryResponse, error) {
	var resp *slack.GetConversationHistoryResponse
	err := c.call(ctx, func() error {
		var e error
		resp, e = c.api.GetConversationHistoryContext(ctx, params)
		return e
	})
	return resp, err
}

// GetConversationReplies returns a thread of messages.
func (c *Client) GetConversationReplies(ctx context.Context, params *slack.GetConversationRepliesParameters) ([]slack.Message, bool, string, error) {
	var (
		msgs    []slack.Message
		hasMore bool
		cursor  string
	)
	err := c.call(ctx, func() error {
		var e error
		msgs, hasMore, cursor, e = c.api.GetConversationRepliesContext(ctx, params)
		return e
	})
	return msgs, hasMore, cursor, err
}

// GetReactions returns the reactions on one message.
func (c *Client) GetReactions(ctx context.Context, channelID, timestamp string) ([]slack.ItemReaction, error) {
	var reactions []slack.ItemReaction
	err := c.call(ctx, func() error {
		var e error
		reactions, e = c.api.GetReactionsContext(ctx, slack.ItemRef{
			Channel:   channelID,
			Timestamp: timestamp,
		}, slack.GetReactionsParameters{Full: true})
		return e
	})
	return reactions, err
}

// GetConversations returns a page of conversations.
func (c *Client) GetConversations(ctx context.Context, params *slack.GetConversationsParameters) ([]slack.Channel, string, error) {
	var (
		channels []slack.Channel
		cursor   string
	)
	err := c.call(ctx, func() error {
		var e error
		channels, cursor, e = c.api.GetConversationsContext(ctx, params)
		return e
	})
	return channels, cursor, err
}

// GetAllConversations pages through every conversation visible to the
// token.
func (c *Client) GetAllConversations(ctx context.Context) ([]slack.Channel, error) {
	var all []slack.Channel
	params := &slack.GetConversationsParameters{
		Types: []string{"public_channel", "private_channel", "mpim", "im"},
		Limit: 200,
	}
	for {
		channels, cursor, err := c.GetConversations(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, channels...)
		if cursor == "" {
			return all, nil
		}
		params.Cursor = cursor
	}
}

// GetUsers returns all users in the workspace.
func (c *Client) GetUsers(ctx context.Context) ([]slack.User, error) {
	var users []slack.User
	err := c.call(ctx, func() error {
		var e error
		users, e = c.api.GetUsersContext(ctx)
		return e
	})
	return users, err
}

// GetUserInfo returns detailed information about a user.
func (c *Client) GetUserInfo(ctx context.Context, userID string) (*slack.User, error) {
	var user *slack.User
	err := c.call(ctx, func() error {
		var e error
		user, e = c.api.GetUserInfoContext(ctx, userID)
		return e
	})
	return user, err
}

// GetPermalink returns the permalink URL for a message.
func (c *Client) GetPermalink(ctx context.Context, channelID, timestamp string) (string, error) {
	var permalink string
	err := c.call(ctx, func() error {
		var e error
		permalink, e = c.api.GetPermalinkContext(ctx, &slack.PermalinkParameters{
			Channel: channelID,
			Ts:      timestamp,
		})
		return e
	})
	return permalink, err
}

// safePrefix returns the first 10 characters of a token for error messages.
func safePrefix(token string) string {
	if len(token) <= 10 {
		return token
	}
	return token[:10]
}
