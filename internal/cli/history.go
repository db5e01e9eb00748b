package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kristopherlb/shinobi/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Service  string
	Limit    int
}

// RunDetail is a recorded run with its components and bindings.
type RunDetail struct {
	Run        store.Run         `json:"run" yaml:"run"`
	Components []store.Component `json:"components" yaml:"components"`
	Bindings   []store.Binding   `json:"bindings" yaml:"bindings"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded synthesis runs",
		Long: `List runs recorded with synth --db, newest first, or show one run's
components and bindings.

Example:
  shinobi history --db ./shinobi.db --service orders
  shinobi history --db ./shinobi.db 0190f0c2-...`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}
			return runHistory(ctx, opts, runID, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Service, "service", "", "only list runs of this service")
	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum runs to list (0 for all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(ctx context.Context, opts *HistoryOptions, runID string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if runID != "" {
		return showRun(ctx, st, formatter, runID)
	}

	runs, err := st.ListRuns(ctx, opts.Service, opts.Limit)
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if formatter.Structured() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSERVICE\tENV\tFRAMEWORK\tSTARTED\tMS\tPATCHED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
			r.ID, r.Service, r.Environment, r.Framework,
			r.StartedAt.Format(time.RFC3339), r.SynthesisTimeMs, r.PatchesApplied)
	}
	return tw.Flush()
}

func showRun(ctx context.Context, st *store.Store, formatter *OutputFormatter, runID string) error {
	run, err := st.GetRun(ctx, runID)
	if errors.Is(err, store.ErrRunNotFound) {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitFailure, "run not found", err)
	}
	if err != nil {
		_ = formatter.Error(ErrCodeStore, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	comps, err := st.Components(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read components", err)
	}
	bindings, err := st.Bindings(ctx, runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read bindings", err)
	}

	if formatter.Structured() {
		return formatter.Success(RunDetail{Run: run, Components: comps, Bindings: bindings})
	}

	w := formatter.Writer
	fmt.Fprintf(w, "run %s\n", run.ID)
	fmt.Fprintf(w, "service %s env=%s framework=%s source=%s\n", run.Service, run.Environment, run.Framework, run.Source)
	fmt.Fprintln(w, "components:")
	for _, c := range comps {
		fmt.Fprintf(w, "  %s %s caps=[%s]\n", c.Name, c.Type, strings.Join(c.Capabilities, " "))
	}
	fmt.Fprintln(w, "bindings:")
	if len(bindings) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, b := range bindings {
		fmt.Fprintf(w, "  %s -> %s %s strategy=%s\n", b.Source, b.Target, b.Capability, b.Strategy)
	}
	return nil
}
