package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/boni/internal/config"
	"github.com/roach88/boni/internal/flow"
	"github.com/roach88/boni/internal/seed"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Backend string   `json:"backend,omitempty"`
	Flows   int      `json:"flows"`
	Steps   int      `json:"steps"`
	Seeds   []string `json:"seeds,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [seed.cue...]",
		Short: "Check configuration, flow catalog and seed files",
		Long: `Check that the configuration loads, the compiled-in flow catalog is
well formed and every given seed file passes the CUE schema.

Nothing is written and no network connection is made.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, seedFiles []string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		_ = formatter.Error(ErrCodeConfig, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}
	formatter.VerboseLog("Configuration ok (backend %s)", cfg.Storage.Backend)

	catalog, err := flow.Load()
	if err != nil {
		_ = formatter.Error(ErrCodeCatalog, err.Error(), nil)
		return WrapExitError(ExitFailure, "validation failed", err)
	}
	formatter.VerboseLog("Flow catalog ok (%d flows, %d steps)", len(catalog.Flows()), catalog.Steps())

	for _, path := range seedFiles {
		if _, err := seed.Load(path); err != nil {
			_ = formatter.Error(ErrCodeSeedInvalid, err.Error(), map[string]string{"file": path})
			return WrapExitError(ExitFailure, "validation failed", err)
		}
		formatter.VerboseLog("Seed ok: %s", path)
	}

	result := ValidationResult{
		Valid:   true,
		Backend: cfg.Storage.Backend,
		Flows:   len(catalog.Flows()),
		Steps:   catalog.Steps(),
		Seeds:   seedFiles,
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success("✓ All checks passed")
}
