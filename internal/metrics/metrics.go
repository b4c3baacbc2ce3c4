// Package metrics exposes counters for the fetch/poll pipeline and an
// optional debug HTTP listener. Partial failures are invisible in normal
// output; these counters are the observability surface for them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ReactionsFetched counts reaction requests that returned a summary.
	ReactionsFetched = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slackscout_reactions_fetched_total",
		Help: "Reaction lookups that returned a summary.",
	})

	// ReactionErrors counts reaction requests that failed.
	ReactionErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slackscout_reaction_errors_total",
		Help: "Reaction lookups that failed and were attached as null.",
	})

	// PollTicks counts poll timer ticks that issued a fetch.
	PollTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slackscout_poll_ticks_total",
		Help: "Poll ticks that issued an incremental fetch.",
	})

	// PollSkips counts ticks skipped because a fetch was in flight.
	PollSkips = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slackscout_poll_skips_total",
		Help: "Poll ticks skipped because a fetch was already in flight.",
	})

	// PollFailures counts failed poll fetches by error class.
	PollFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "slackscout_poll_failures_total",
		Help: "Failed poll fetches by error class.",
	}, []string{"class"})

	// MessagesAdded counts messages merged in as new by reconciliation.
	MessagesAdded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slackscout_messages_added_total",
		Help: "Messages classified as added during reconciliation.",
	})
)

func init() {
	prometheus.MustRegister(
		ReactionsFetched,
		ReactionErrors,
		PollTicks,
		PollSkips,
		PollFailures,
		MessagesAdded,
	)
}
