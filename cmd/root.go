// Package cmd wires every collaborator package (config, store, messenger,
// supervisor, botcmd) into the single long-running daemon process, the way
// the ancestor CLI wires a provider and UI behind a cobra root command.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/samsaffron/tuibridge/internal/botcmd"
	"github.com/samsaffron/tuibridge/internal/config"
	"github.com/samsaffron/tuibridge/internal/messenger"
	"github.com/samsaffron/tuibridge/internal/signal"
	"github.com/samsaffron/tuibridge/internal/statefile"
	"github.com/samsaffron/tuibridge/internal/store"
	"github.com/samsaffron/tuibridge/internal/supervisor"
	"github.com/spf13/cobra"
)

var debugLogging bool

var rootCmd = &cobra.Command{
	Use:   "tuibridge",
	Short: "Bridge a Telegram chat to a headless Claude CLI session",
	Long: `tuibridge spawns the Claude CLI under a PTY per chat session, screen-scrapes
its terminal output, and relays it to Telegram as streamed, edited-in-place
messages.

Configuration is read from $XDG_CONFIG_HOME/tuibridge/config.yaml (see
internal/config for every key and its default).`,
	RunE: runDaemon,
}

func init() {
	rootCmd.Flags().BoolVar(&debugLogging, "debug", false, "Log at debug level")
}

// Execute runs the root command; on failure it prints the error and exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "tuibridge:", err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if debugLogging {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Messenger.Token == "" {
		return fmt.Errorf("messenger.token (or TELEGRAM_BOT_TOKEN) is required")
	}
	if len(cfg.Messenger.AllowedUserIDs) == 0 && len(cfg.Messenger.AllowedUsernames) == 0 {
		log.Warn("no allowed_user_ids or allowed_usernames configured; all messages will be rejected")
	}

	st, err := store.New(store.DefaultConfigFrom(cfg.Persistence))
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext()
	defer stop()

	if lost, err := st.MarkOrphansLost(ctx); err != nil {
		log.Error("mark orphaned sessions lost failed", "error", err)
	} else if lost > 0 {
		log.Info("marked orphaned sessions lost", "count", lost)
	}

	client, err := messenger.New(cfg.Messenger.Token)
	if err != nil {
		return fmt.Errorf("connect messenger: %w", err)
	}

	sv := supervisor.New(supervisor.Config{
		MaxConcurrentPerUser: cfg.Session.MaxConcurrentPerUser,
		PollInterval:         time.Duration(cfg.Session.PollIntervalMillis) * time.Millisecond,
		TerminateGrace:       time.Duration(cfg.Session.TerminateGraceMillis) * time.Millisecond,
		AgentBinary:          cfg.Agent.BinaryPath,
		AgentExtraArgs:       cfg.Agent.ExtraArgs,
	}, st, client, client, log)

	dispatcher := botcmd.New(sv, st, client, cfg)

	sf := statefile.New(config.GetRuntimeDir(), "tuibridge")
	if err := sf.WriteStarting(); err != nil {
		log.Warn("state file unavailable", "error", err)
	}
	defer sf.Remove()

	go func() {
		sv.Run(ctx)
	}()

	if err := sf.WriteStatus(statefile.StatusRunning); err != nil {
		log.Warn("state file status update failed", "error", err)
	}
	log.Info("tuibridge listening for Telegram updates")

	updates := client.Updates(ctx)
	for {
		select {
		case <-ctx.Done():
			_ = sf.WriteStatus(statefile.StatusStopping)
			log.Info("shutting down")
			return nil
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			if !messenger.IsAllowed(upd.UserID, upd.Username, cfg.Messenger.AllowedUserIDs, cfg.Messenger.AllowedUsernames) {
				continue
			}
			go func(u messenger.Update) {
				if err := dispatcher.Handle(ctx, u); err != nil {
					log.Error("dispatch update failed", "error", err, "chat_id", u.ChatID)
				}
			}(upd)
		}
	}
}
