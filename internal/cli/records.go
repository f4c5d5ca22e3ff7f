package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/boni/internal/model"
	"github.com/roach88/boni/internal/store"
)

// Reference lists the records command accepts besides entity kinds.
const (
	listMinistries = "ministries"
	listLeaders    = "leaders"
)

// NewRecordsCommand creates the records command.
func NewRecordsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "records <kind>",
		Short: "List committed records or reference data",
		Long: fmt.Sprintf(`List what the bot has stored in the SQLite database.

<kind> is one of: %s, %s, %s.

Example:
  boni records prayer_request
  boni records ministries --format json`,
			strings.Join(entityKindNames(), ", "), listMinistries, listLeaders),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecords(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func entityKindNames() []string {
	names := make([]string, len(model.EntityKinds))
	for i, k := range model.EntityKinds {
		names[i] = string(k)
	}
	return names
}

func runRecords(opts *RootOptions, kind string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd)

	if kind != listMinistries && kind != listLeaders && !isEntityKind(kind) {
		msg := fmt.Sprintf("unknown kind %q", kind)
		_ = formatter.Error(ErrCodeGeneric, msg, nil)
		return NewExitError(ExitCommandError, msg)
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	be, err := openBackend(cfg, newLogger(cmd.ErrOrStderr(), opts.Verbose))
	if err != nil {
		return err
	}
	defer be.Close()
	st, err := be.requireSQLite("records")
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	rows, err := listRecords(ctx, st, kind)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list records", err)
	}

	if opts.Format == "json" {
		return formatter.Success(rows)
	}
	return writeRecordsText(cmd.OutOrStdout(), kind, rows)
}

func isEntityKind(kind string) bool {
	for _, k := range model.EntityKinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}

// listRecords returns the rows of kind as JSON-shaped values.
func listRecords(ctx context.Context, st *store.Store, kind string) ([]any, error) {
	switch kind {
	case listMinistries:
		list, err := st.Ministries(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(list))
		for i, m := range list {
			out[i] = m
		}
		return out, nil

	case listLeaders:
		ministries, err := st.Ministries(ctx)
		if err != nil {
			return nil, err
		}
		out := []any{}
		for _, m := range ministries {
			leaders, err := st.Leaders(ctx, m.ID)
			if err != nil {
				return nil, err
			}
			for _, l := range leaders {
				out = append(out, l)
			}
		}
		return out, nil

	default:
		list, err := st.ListEntities(ctx, model.EntityKind(kind))
		if err != nil {
			return nil, err
		}
		out := make([]any, len(list))
		for i, e := range list {
			out[i] = e
		}
		return out, nil
	}
}

// writeRecordsText prints one record per block as sorted key: value lines.
func writeRecordsText(w io.Writer, kind string, rows []any) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintf(w, "No %s records.\n", kind)
		return err
	}
	for i, row := range rows {
		raw, err := json.Marshal(row)
		if err != nil {
			return err
		}
		var fields map[string]any
		if err := json.Unmarshal(raw, &fields); err != nil {
			return err
		}
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		if i > 0 {
			fmt.Fprintln(w)
		}
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %v\n", k, fields[k])
		}
	}
	_, err := fmt.Fprintf(w, "\n%d %s record(s).\n", len(rows), kind)
	return err
}
