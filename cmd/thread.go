package cmd

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/message"
	islack "github.com/m96-chan/slackscout/internal/slack"
	"github.com/m96-chan/slackscout/internal/store"
)

var threadCmd = &cobra.Command{
	Use:   "thread <channel> <timestamp>",
	Short: "Print a message and its thread replies",
	Long: `Thread fetches the replies under one message and prints them oldest
first. The timestamp is the thread parent's, as shown by search results
with a reply count.`,
	Args: cobra.ExactArgs(2),
	RunE: runThread,
}

func init() {
	rootCmd.AddCommand(threadCmd)
}

func runThread(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	channelID := args[0]
	if ch, ok := db.ChannelByName(args[0]); ok {
		channelID = ch.ID
	}

	client, err := newClient()
	if err != nil {
		return err
	}

	msgs, err := fetchThread(cmd.Context(), client, channelID, args[1])
	if err != nil {
		return err
	}
	for _, m := range msgs {
		if m.UserName == "" {
			m.UserName = resolveUserName(cmd.Context(), db, client, m.UserID)
		}
	}

	printMessages(cmd.OutOrStdout(), msgs, db)
	return nil
}

// fetchThread pages through a thread's replies. The parent message is
// the first reply in the response, so the whole thread comes back in one
// oldest-first list.
func fetchThread(ctx context.Context, client *islack.Client, channelID, ts string) ([]*message.Message, error) {
	params := &slack.GetConversationRepliesParameters{
		ChannelID: channelID,
		Timestamp: ts,
		Limit:     200,
	}

	var out []*message.Message
	for {
		replies, hasMore, cursor, err := client.GetConversationReplies(ctx, params)
		if err != nil {
			return nil, err
		}
		for _, sm := range replies {
			out = append(out, message.FromSlackMessage(channelID, sm))
		}
		if !hasMore {
			return out, nil
		}
		params.Cursor = cursor
	}
}

// resolveUserName resolves an author for display: cached name first,
// then a direct lookup for authors the cache has not seen.
func resolveUserName(ctx context.Context, db *store.Store, client *islack.Client, id string) string {
	if id == "" {
		return ""
	}
	if name := db.UserName(id); name != id {
		return name
	}
	if client != nil {
		if u, err := client.GetUserInfo(ctx, id); err == nil {
			fetched := store.User{
				ID:          u.ID,
				Name:        u.Name,
				DisplayName: u.Profile.DisplayName,
				RealName:    u.RealName,
			}
			// Remember it so the next thread doesn't re-fetch.
			if err := db.UpsertUsers([]store.User{fetched}); err != nil {
				slog.Debug("caching fetched user failed", "user", u.ID, "error", err)
			}
			return fetched.BestName()
		}
	}
	return id
}
