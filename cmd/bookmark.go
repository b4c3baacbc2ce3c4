package cmd

import (
	"fmt"

	"github.com/slack-go/slack"
	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/message"
	islack "github.com/m96-chan/slackscout/internal/slack"
)

// hydrateMessage pulls the single message at ts so a bookmark stores
// real content instead of a bare reference. Failure is tolerated.
func hydrateMessage(cmd *cobra.Command, client *islack.Client, channelID, ts string) *message.Message {
	resp, err := client.GetConversationHistory(cmd.Context(), &slack.GetConversationHistoryParameters{
		ChannelID: channelID,
		Latest:    ts,
		Oldest:    ts,
		Inclusive: true,
		Limit:     1,
	})
	if err != nil {
		return nil
	}
	return firstFromHistory(channelID, resp)
}

// firstFromHistory converts the first message of a history response,
// tolerating a nil or empty response.
func firstFromHistory(channelID string, resp *slack.GetConversationHistoryResponse) *message.Message {
	if resp == nil || len(resp.Messages) == 0 {
		return nil
	}
	return message.FromSlackMessage(channelID, resp.Messages[0])
}

var bookmarkCmd = &cobra.Command{
	Use:   "bookmark",
	Short: "Manage bookmarked messages",
	Long: `Bookmarks pin individual messages in the local cache database. A
bookmark stores a snapshot of the message, so it survives the message
falling out of search results.`,
}

var bookmarkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List bookmarks, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		bookmarks, err := db.ListBookmarks()
		if err != nil {
			return err
		}
		if len(bookmarks) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no bookmarks")
			return nil
		}
		for _, b := range bookmarks {
			ts := message.ParseTimestamp(b.Timestamp).Format(cfg.Timestamps.Format)
			channel := b.ChannelName
			if channel == "" {
				channel = db.ChannelName(b.ChannelID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "[%s] #%s @%s: %s\n", ts, channel, b.UserName, b.Text)
			if b.Permalink != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "        %s\n", b.Permalink)
			}
		}
		return nil
	},
}

var bookmarkAddCmd = &cobra.Command{
	Use:   "add <channel> <timestamp>",
	Short: "Bookmark a message by channel and timestamp",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		channelID := args[0]
		if ch, ok := db.ChannelByName(args[0]); ok {
			channelID = ch.ID
		}

		m := message.Message{
			Channel:     channelID,
			ChannelName: db.ChannelName(channelID),
			Timestamp:   args[1],
		}

		// Best effort: fill in the message body and permalink when a
		// token is available, otherwise store the bare reference.
		if client, err := newClient(); err == nil {
			if link, err := client.GetPermalink(cmd.Context(), channelID, args[1]); err == nil {
				m.Permalink = link
			}
			if hydrated := hydrateMessage(cmd, client, channelID, args[1]); hydrated != nil {
				hydrated.Permalink = m.Permalink
				hydrated.ChannelName = m.ChannelName
				hydrated.UserName = db.UserName(hydrated.UserID)
				m = *hydrated
			}
		}

		return db.AddBookmark(m)
	},
}

var bookmarkRmCmd = &cobra.Command{
	Use:   "rm <channel> <timestamp>",
	Short: "Delete a bookmark",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		channelID := args[0]
		if ch, ok := db.ChannelByName(args[0]); ok {
			channelID = ch.ID
		}
		return db.DeleteBookmark(message.ID{Channel: channelID, Timestamp: args[1]})
	},
}

func init() {
	rootCmd.AddCommand(bookmarkCmd)
	bookmarkCmd.AddCommand(bookmarkListCmd)
	bookmarkCmd.AddCommand(bookmarkAddCmd)
	bookmarkCmd.AddCommand(bookmarkRmCmd)
}
