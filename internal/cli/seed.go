package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/boni/internal/seed"
)

// SeedResult is the output of the seed command.
type SeedResult struct {
	Source     string `json:"source"`
	Ministries int    `json:"ministries"`
	Leaders    int    `json:"leaders"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed [seed.cue]",
		Short: "Load ministries and leaders into the database",
		Long: `Load reference data declared in CUE into the SQLite database.

Without a file the built-in defaults are loaded. Existing ministries and
leaders with the same names are updated, never duplicated.

Example:
  boni seed
  boni seed ./ministries.cue --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return runSeed(rootOpts, path, cmd)
		},
	}
	return cmd
}

func runSeed(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	data, source, err := loadSeed(path)
	if err != nil {
		_ = formatter.Error(ErrCodeSeedInvalid, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid seed", err)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	be, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer be.Close()
	st, err := be.requireSQLite("seed")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	res, err := seed.Apply(ctx, st, data)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to apply seed", err)
	}

	out := SeedResult{Source: source, Ministries: res.Ministries, Leaders: res.Leaders}
	if opts.Format == "json" {
		return formatter.Success(out)
	}
	return formatter.Success(fmt.Sprintf("Seeded %d ministries and %d leaders from %s.",
		out.Ministries, out.Leaders, out.Source))
}

func loadSeed(path string) (seed.Seed, string, error) {
	if path == "" {
		return seed.Defaults(), "defaults", nil
	}
	if _, err := os.Stat(path); err != nil {
		return seed.Seed{}, path, fmt.Errorf("seed file not found: %s", path)
	}
	s, err := seed.Load(path)
	return s, path, err
}
