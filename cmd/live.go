package cmd

import (
	"fmt"
	"io"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/message"
	"github.com/m96-chan/slackscout/internal/metrics"
	"github.com/m96-chan/slackscout/internal/reconcile"
	"github.com/m96-chan/slackscout/internal/store"
)

var liveInterval int

var liveCmd = &cobra.Command{
	Use:   "live [query]",
	Short: "Search messages and keep following them",
	Long: `Live runs a search like "search" does, then keeps polling for newer
messages in the same scope and prints them as they arrive. Edits and
reaction changes to already-printed messages are reported too.

Stop with Ctrl-C.`,
	RunE: runLive,
}

func init() {
	rootCmd.AddCommand(liveCmd)

	liveCmd.Flags().StringSliceVar(&searchChannels, "channel", nil, "restrict to channel (name or ID, repeatable)")
	liveCmd.Flags().StringVar(&searchUser, "user", "", "restrict to author (name or ID)")
	liveCmd.Flags().StringVar(&searchFrom, "from", "", "inclusive lower bound (YYYY-MM-DD or Slack timestamp)")
	liveCmd.Flags().IntVar(&searchLimit, "limit", 0, "result cap for the initial search")
	liveCmd.Flags().IntVar(&liveInterval, "interval", 0, "poll interval in seconds (default: poll.interval_seconds from config)")
}

func runLive(cmd *cobra.Command, args []string) error {
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

	if cfg.Debug.Listen != "" {
		metrics.Serve(cfg.Debug.Listen)
	}

	out := cmd.OutOrStdout()

	// Print every change the store reconciles: the initial set, polled
	// messages, edits, and reaction attachments.
	orch.Store().Subscribe(func(msgs []*message.Message, changes reconcile.ChangeSet) {
		printChanges(out, msgs, changes, db)
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if _, _, err := orch.Search(ctx, params); err != nil {
		return err
	}

	orch.EnableLive()
	if liveInterval > 0 {
		orch.Poller().SetInterval(time.Duration(liveInterval) * time.Second)
	}
	orch.Poller().OnAuthError = func(err error) {
		fmt.Fprintf(out, "! authentication failed, polling continues: %v\n", err)
	}

	fmt.Fprintf(out, "-- following, poll every %s, Ctrl-C to stop --\n", pollCadenceLabel())

	orch.Poller().Run(ctx, time.Second)

	orch.DisableLive()
	orch.Wait()
	fmt.Fprintf(out, "-- stopped, %d new messages this session --\n", orch.Poller().NewMessageCount())
	return nil
}

func pollCadenceLabel() time.Duration {
	if liveInterval > 0 {
		return time.Duration(liveInterval) * time.Second
	}
	return pollInterval()
}

// printChanges renders one reconciliation pass. Added and updated
// messages print in the set's order, newest last so the terminal reads
// top to bottom in arrival order.
func printChanges(w io.Writer, msgs []*message.Message, changes reconcile.ChangeSet, db *store.Store) {
	var changed []*message.Message
	for _, m := range msgs {
		id := m.ID()
		if _, ok := changes.Added[id]; ok {
			changed = append(changed, m)
			continue
		}
		if _, ok := changes.Updated[id]; ok {
			changed = append(changed, m)
		}
	}
	sort.SliceStable(changed, func(i, j int) bool {
		return message.CompareTimestamps(changed[i].Timestamp, changed[j].Timestamp) < 0
	})
	printMessages(w, changed, db)
}
