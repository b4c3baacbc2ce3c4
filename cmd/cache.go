package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/store"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the local cache",
	Long: `The local cache holds the workspace directory (channels and users) so
names resolve without hitting the API, plus saved searches and
bookmarks. "cache refresh" re-downloads the directory.`,
}

var cacheRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Re-download channels and users into the cache",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		channels, err := client.GetAllConversations(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching channels: %w", err)
		}
		cached := make([]store.Channel, 0, len(channels))
		for _, ch := range channels {
			cached = append(cached, store.Channel{
				ID:        ch.ID,
				Name:      ch.Name,
				Topic:     ch.Topic.Value,
				IsIM:      ch.IsIM,
				IsPrivate: ch.IsPrivate,
			})
		}
		if err := db.UpsertChannels(cached); err != nil {
			return err
		}

		users, err := client.GetUsers(cmd.Context())
		if err != nil {
			return fmt.Errorf("fetching users: %w", err)
		}
		cachedUsers := make([]store.User, 0, len(users))
		for _, u := range users {
			if u.Deleted || u.IsBot {
				continue
			}
			cachedUsers = append(cachedUsers, store.User{
				ID:          u.ID,
				Name:        u.Name,
				DisplayName: u.Profile.DisplayName,
				RealName:    u.RealName,
			})
		}
		if err := db.UpsertUsers(cachedUsers); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "cached %d channels and %d users\n", len(cached), len(cachedUsers))
		return nil
	},
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.Stats()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "location:       %s\n", cfg.Cache.Path)
		fmt.Fprintf(out, "size:           %d bytes\n", stats.SizeBytes)
		fmt.Fprintf(out, "channels:       %d\n", stats.ChannelCount)
		fmt.Fprintf(out, "users:          %d\n", stats.UserCount)
		fmt.Fprintf(out, "saved searches: %d\n", stats.SavedSearches)
		fmt.Fprintf(out, "bookmarks:      %d\n", stats.Bookmarks)
		if stats.RefreshedAt != nil {
			fmt.Fprintf(out, "refreshed:      %s\n", stats.RefreshedAt.Format(cfg.Timestamps.Format))
		} else {
			fmt.Fprintln(out, "refreshed:      never")
		}
		return nil
	},
}

var cacheChannelsCmd = &cobra.Command{
	Use:   "channels [pattern]",
	Short: "List cached channels, fuzzy-filtered by pattern",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStore()
		if err != nil {
			return err
		}
		defer db.Close()

		pattern := ""
		if len(args) > 0 {
			pattern = args[0]
		}
		channels, err := db.FilterChannels(pattern)
		if err != nil {
			return err
		}
		if len(channels) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matching channels (try: cache refresh)")
			return nil
		}
		for _, ch := range channels {
			marker := "#"
			if ch.IsIM {
				marker = "@"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%-24s %s\n", marker, ch.Name, ch.Topic)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheRefreshCmd)
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cacheChannelsCmd)
}
