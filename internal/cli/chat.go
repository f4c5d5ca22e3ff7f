package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/boni/internal/config"
	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/model"
	"github.com/roach88/boni/internal/notify"
)

// photoCommand sends an image attachment from the console.
const photoCommand = "/photo"

// ChatOptions holds flags for the chat command.
type ChatOptions struct {
	*RootOptions
	UserID   string
	Name     string
	Database string
}

// NewChatCommand creates the chat command.
func NewChatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ChatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the bot from the terminal",
		Long: `Drive the conversation engine from stdin without Telegram.

Each input line is one message. "/photo <file-id>" sends an image.
Replies are printed with their keyboard buttons.

Example:
  boni chat --db :memory:
  boni chat --user 42 --name "Ana Lopez"`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "console", "user id to chat as")
	cmd.Flags().StringVar(&opts.Name, "name", "", "display name (first and last)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite path overriding the configured backend")

	return cmd
}

func runChat(opts *ChatOptions, cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	cfg, err := loadConfig(opts.RootOptions)
	if err != nil {
		return err
	}
	if opts.Database != "" {
		cfg.Storage.Backend = config.BackendSQLite
		cfg.Storage.SQLitePath = opts.Database
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()
	if be.sqlite != nil {
		if err := seedIfEmpty(ctx, be.sqlite, logger); err != nil {
			return WrapExitError(ExitCommandError, "failed to seed database", err)
		}
	}

	out := cmd.OutOrStdout()
	eng := engine.New(be.storage, flow.Default(), consoleSender{w: out},
		engine.WithNotifier(notify.LogSink{Logger: logger}),
		engine.WithAdminPassphrase(cfg.Bot.AdminPassphrase),
		engine.WithMismatchReprompt(cfg.Bot.MismatchReprompt),
		engine.WithLogger(logger),
	)

	profile := consoleProfile(opts.Name)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		msg := consoleMessage(opts.UserID, profile, line)
		if err := eng.HandleMessage(ctx, msg); err != nil {
			logger.Debug("dispatch error", "error", err)
		}
	}
	eng.Wait()
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to read input", err)
	}
	return nil
}

func consoleProfile(name string) model.Profile {
	first, last, _ := strings.Cut(strings.TrimSpace(name), " ")
	return model.Profile{FirstName: first, LastName: strings.TrimSpace(last)}
}

func consoleMessage(userID string, profile model.Profile, line string) engine.Message {
	m := engine.Message{UserID: userID, ChatID: userID, Profile: profile}
	if rest, ok := strings.CutPrefix(line, photoCommand+" "); ok {
		m.Attachments = []engine.Attachment{{FileID: strings.TrimSpace(rest)}}
		return m
	}
	m.Text = line
	return m
}

// consoleSender prints replies for a human at a terminal.
type consoleSender struct{ w io.Writer }

func (s consoleSender) Send(_ context.Context, r engine.Reply) error {
	for _, line := range strings.Split(r.Text, "\n") {
		if _, err := fmt.Fprintf(s.w, "< %s\n", line); err != nil {
			return err
		}
	}
	if len(r.Keyboard) > 0 {
		if _, err := fmt.Fprintf(s.w, "  [%s]\n", strings.Join(r.Keyboard, "] [")); err != nil {
			return err
		}
	}
	return nil
}
