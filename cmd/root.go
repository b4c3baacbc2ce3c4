package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/m96-chan/slackscout/internal/config"
	"github.com/m96-chan/slackscout/internal/consts"
	"github.com/m96-chan/slackscout/internal/logger"
	"github.com/m96-chan/slackscout/internal/reactions"
	"github.com/m96-chan/slackscout/internal/reconcile"
	"github.com/m96-chan/slackscout/internal/search"
	islack "github.com/m96-chan/slackscout/internal/slack"
	"github.com/m96-chan/slackscout/internal/store"
)

// Set by main at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var (
	configPath string
	logPath    string
	logLevel   string
	tokenFlag  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   consts.Name,
	Short: "Search and follow Slack messages from the terminal",
	Long: `slackscout searches Slack messages across channels and keeps the
result set live: new messages are merged in place, reactions load
progressively, and edits are reconciled without disturbing what is
already displayed.

Authentication uses a Slack user token (xoxp-) from the --token flag
or the SLACK_TOKEN environment variable.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.Setup(logPath, parseLevel(logLevel)); err != nil {
			return err
		}
		slog.Info("starting "+consts.Name, "version", Version, "config", configPath)

		var err error
		cfg, err = config.Load(configPath)
		return err
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-path", config.DefaultPath(), "path to config file")
	rootCmd.PersistentFlags().StringVar(&logPath, "log-path", logger.DefaultPath(), "path to log file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&tokenFlag, "token", "", "Slack user token (default: SLACK_TOKEN env)")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s %s (%s, %s)\n", consts.Name, Version, Commit, Date)
		},
	})
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func token() (string, error) {
	if tokenFlag != "" {
		return tokenFlag, nil
	}
	if t := os.Getenv("SLACK_TOKEN"); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("no token: pass --token or set SLACK_TOKEN")
}

func pollInterval() time.Duration {
	return time.Duration(cfg.Poll.IntervalSeconds) * time.Second
}

// newClient authenticates against Slack with the configured pacing.
func newClient() (*islack.Client, error) {
	t, err := token()
	if err != nil {
		return nil, err
	}
	return islack.New(t, cfg.API.RequestsPerSecond)
}

// openStore opens the local cache database at the configured path.
func openStore() (*store.Store, error) {
	return store.Open(cfg.Cache.Path)
}

// newOrchestrator wires the full search pipeline around a client.
func newOrchestrator(client *islack.Client) *search.Orchestrator {
	fetcher := &search.SlackFetcher{Client: client}
	loader := &reactions.Loader{
		Fetcher: &reactions.Fetcher{
			Fetch:     fetcher.ReactionChunk,
			BatchSize: cfg.Reactions.ChunkSize,
		},
		FirstBatch: cfg.Reactions.FirstBatch,
		ChunkSize:  cfg.Reactions.ChunkSize,
	}
	st := search.NewStore(&reconcile.Reconciler{})
	return search.NewOrchestrator(st, fetcher, loader, search.Options{
		Limit:        cfg.MessagesLimit,
		PollInterval: pollInterval(),
	})
}
