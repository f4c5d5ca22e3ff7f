package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/boni/internal/config"
	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/metrics"
	"github.com/roach88/boni/internal/notify"
	"github.com/roach88/boni/internal/telegram"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	NoSeed bool
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the bot",
		Long: `Start the Telegram bot.

The bot long-polls Telegram for messages, dispatches them through the
conversation engine and stores sessions and records in the configured
backend. A fresh SQLite database is seeded with the default ministries
unless --no-seed is given.

Example:
  BONI_TELEGRAM_TOKEN=... boni run
  boni run --config ./config.yaml --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.NoSeed, "no-seed", false, "do not seed an empty database")

	return cmd
}

func runBot(opts *RunOptions, cmd *cobra.Command) error {
	logger := newLogger(os.Stderr, opts.Verbose)
	slog.SetDefault(logger)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return WrapExitError(ExitCommandError, "invalid configuration", err)
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := be.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if be.sqlite != nil && !opts.NoSeed {
		if err := seedIfEmpty(ctx, be.sqlite, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to seed database", err)
		}
	}

	notifier, closeNotifier, err := buildNotifier(cfg.Notify, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect notifier", err)
	}
	defer closeNotifier()

	bot, err := telegram.Connect(cfg.Telegram.Token,
		telegram.WithPollTimeout(cfg.Telegram.PollTimeout),
		telegram.WithSendRate(cfg.Telegram.SendRPS),
		telegram.WithLogger(logger),
	)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect to telegram", err)
	}

	recorder := metrics.New()
	eng := engine.New(be.storage, flow.Default(), bot,
		engine.WithResolver(bot),
		engine.WithNotifier(notifier),
		engine.WithRecorder(recorder),
		engine.WithAdminPassphrase(cfg.Bot.AdminPassphrase),
		engine.WithMismatchReprompt(cfg.Bot.MismatchReprompt),
		engine.WithLogger(logger),
	)

	fmt.Fprintln(cmd.OutOrStdout(), "Bot started. Listening for messages...")
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer cancel()
		err := eng.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		defer eng.Stop()
		return bot.Poll(gctx, eng.Enqueue)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.Metrics.Addr)
			return recorder.Serve(gctx, cfg.Metrics.Addr)
		})
	}

	err = g.Wait()
	eng.Wait()
	if err != nil {
		return WrapExitError(ExitFailure, "bot error", err)
	}

	logger.Info("bot stopped gracefully")
	return nil
}

// buildNotifier always logs notifications and also publishes them to NATS
// when a URL is configured.
func buildNotifier(cfg config.Notify, logger *slog.Logger) (engine.Notifier, func(), error) {
	sinks := notify.Fanout{notify.LogSink{Logger: logger}}
	if cfg.NATSURL == "" {
		return sinks, func() {}, nil
	}
	pub, err := notify.ConnectNATS(cfg.NATSURL, cfg.SubjectPrefix, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("notifications publishing to nats", "url", cfg.NATSURL, "subject", cfg.SubjectPrefix)
	return append(sinks, pub), pub.Close, nil
}
