package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/boni/internal/config"
	"github.com/roach88/boni/internal/engine"
	"github.com/roach88/boni/internal/seed"
	"github.com/roach88/boni/internal/sheets"
	"github.com/roach88/boni/internal/store"
)

// newLogger builds the text logger commands log through: Info by default,
// Debug with --verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return cfg, nil
}

// backend is an opened storage port. sqlite is set only for the relational
// backend, which the seed and records commands need.
type backend struct {
	storage engine.Storage
	sqlite  *store.Store
}

func (b *backend) Close() error {
	if b.sqlite != nil {
		return b.sqlite.Close()
	}
	return nil
}

func openBackend(cfg config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.Storage.Backend {
	case config.BackendSheets:
		client := sheets.New(cfg.Storage.BridgeURL, cfg.Storage.BridgeKey,
			sheets.WithTimeout(cfg.Storage.BridgeTimeout),
			sheets.WithLogger(logger),
		)
		logger.Info("storage ready", "backend", config.BackendSheets)
		return &backend{storage: client}, nil
	default:
		st, err := store.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		logger.Info("storage ready", "backend", config.BackendSQLite, "path", cfg.Storage.SQLitePath)
		return &backend{storage: st, sqlite: st}, nil
	}
}

// requireSQLite fails for commands that only work on the relational backend.
func (b *backend) requireSQLite(command string) (*store.Store, error) {
	if b.sqlite == nil {
		return nil, NewExitError(ExitCommandError,
			fmt.Sprintf("%s requires the %s backend", command, config.BackendSQLite))
	}
	return b.sqlite, nil
}

// seedIfEmpty loads the default ministries into a relational store that has
// none.
func seedIfEmpty(ctx context.Context, st *store.Store, logger *slog.Logger) error {
	existing, err := st.Ministries(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	res, err := seed.Apply(ctx, st, seed.Defaults())
	if err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}
	logger.Info("database seeded", "ministries", res.Ministries, "leaders", res.Leaders)
	return nil
}
