package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/search"
	"github.com/m96-chan/slackscout/internal/store"
)

var (
	searchChannels []string
	searchUser     string
	searchFrom     string
	searchTo       string
	searchLimit    int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search messages once and print the results",
	Long: `Search runs one search against Slack and prints the reconciled result
set, newest first. Reactions are loaded after the message bodies and
included in the output.

Channels and users given by name are resolved through the local cache;
run "slackscout cache refresh" first if resolution fails.

Examples:
  slackscout search "deploy failed"
  slackscout search --channel general --channel ops --from 2026-08-01
  slackscout search "standup" --user alice --limit 20`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceVar(&searchChannels, "channel", nil, "restrict to channel (name or ID, repeatable)")
	searchCmd.Flags().StringVar(&searchUser, "user", "", "restrict to author (name or ID)")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "inclusive lower bound (YYYY-MM-DD or Slack timestamp)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "inclusive upper bound (YYYY-MM-DD or Slack timestamp)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "result cap (default: messages_limit from config)")
}

func runSearch(cmd *cobra.Command, args []string) error {
	params, db, err := buildParams(args)
	if db != nil {
		defer db.Close()
	}
	if err != nil {
		return err
	}

	client, err := newClient()
	if err != nil {
		return err
	}
	orch := newOrchestrator(client)

	changes, total, err := orch.Search(cmd.Context(), params)
	if err != nil {
		return err
	}
	orch.Wait()

	msgs := orch.Store().Snapshot()
	printMessages(cmd.OutOrStdout(), msgs, db)
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d shown, %d matched, %d new\n", len(msgs), total, len(changes.Added))
	return nil
}

// buildParams translates CLI flags into a fetch scope, resolving names
// through the local cache. The returned store handle stays open so the
// caller can reuse it for display-time name resolution.
func buildParams(args []string) (search.Params, *store.Store, error) {
	db, err := openStore()
	if err != nil {
		return search.Params{}, nil, err
	}

	p := search.Params{
		Query: strings.Join(args, " "),
		From:  parseBound(searchFrom),
		To:    parseBound(searchTo),
		Limit: searchLimit,
	}
	if p.Limit == 0 {
		p.Limit = cfg.MessagesLimit
	}

	for _, ch := range searchChannels {
		id := ch
		if !strings.HasPrefix(ch, "C") && !strings.HasPrefix(ch, "D") && !strings.HasPrefix(ch, "G") {
			name := strings.TrimPrefix(ch, "#")
			cached, ok := db.ChannelByName(name)
			if !ok {
				if matches, err := db.FilterChannels(name); err == nil && len(matches) > 0 {
					return p, db, fmt.Errorf("unknown channel %q, did you mean %q?", ch, matches[0].Name)
				}
				return p, db, fmt.Errorf("unknown channel %q (try: %s cache refresh)", ch, rootCmd.Use)
			}
			id = cached.ID
		}
		p.ChannelIDs = append(p.ChannelIDs, id)
	}

	if searchUser != "" {
		p.UserID = searchUser
		if !strings.HasPrefix(searchUser, "U") && !strings.HasPrefix(searchUser, "W") {
			id, ok := db.UserIDByName(strings.TrimPrefix(searchUser, "@"))
			if !ok {
				return p, db, fmt.Errorf("unknown user %q (try: %s cache refresh)", searchUser, rootCmd.Use)
			}
			p.UserID = id
		}
	}

	if p.Query == "" && len(p.ChannelIDs) == 0 {
		return p, db, fmt.Errorf("nothing to search: give a query or at least one --channel")
	}
	return p, db, nil
}

// parseBound accepts either a Slack decimal timestamp or a date and
// returns a Slack timestamp string.
func parseBound(s string) string {
	if s == "" || strings.Contains(s, ".") {
		return s
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return fmt.Sprintf("%d.000000", t.Unix())
}

func printMessages(w io.Writer, msgs []*message.Message, db *store.Store) {
	for _, m := range msgs {
		channel := m.ChannelName
		if channel == "" && db != nil {
			channel = db.ChannelName(m.Channel)
		}
		user := m.UserName
		if user == "" && db != nil {
			user = db.UserName(m.UserID)
		}

		ts := message.ParseTimestamp(m.Timestamp).Format(cfg.Timestamps.Format)
		fmt.Fprintf(w, "[%s] #%s @%s: %s\n", ts, channel, user, m.Text)
		if m.ReplyCount > 0 {
			fmt.Fprintf(w, "        %d replies\n", m.ReplyCount)
		}
		if len(m.Reactions) > 0 {
			fmt.Fprintf(w, "        %s\n", formatReactions(m.Reactions))
		}
	}
}

func formatReactions(rs message.ReactionSummary) string {
	names := make([]string, 0, len(rs))
	for name := range rs {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf(":%s: %d", name, rs[name].Count))
	}
	return strings.Join(parts, "  ")
}
