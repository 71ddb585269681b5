package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hawkstract/nsc/internal/query"
	"github.com/hawkstract/nsc/internal/store"
)

// NewTraceCommand creates the trace command: inspect persisted check
// runs and their diagnostics.
func NewTraceCommand(opts *RootOptions) *cobra.Command {
	var (
		dbPath string
		unit   string
		code   string
	)

	cmd := &cobra.Command{
		Use:   "trace [run-id]",
		Short: "Inspect recorded check runs",
		Long: `Trace lists recorded check runs, newest first, or shows the
diagnostics of one run when a run id is given. Filters narrow the
listing by unit name or the diagnostics by error code.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(cmd, opts, args, dbPath, unit, code)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&dbPath, "db", "nsc.db", "check-run database to read")
	cmd.Flags().StringVar(&unit, "unit", "", "only list runs of this unit")
	cmd.Flags().StringVar(&code, "code", "", "only show diagnostics with this error code")
	return cmd
}

func runTrace(cmd *cobra.Command, opts *RootOptions, args []string, dbPath, unit, code string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "opening check-run database", err)
	}
	defer st.Close()

	if len(args) == 0 {
		return traceListRuns(cmd, opts, formatter, st, unit)
	}
	return traceShowRun(cmd, opts, formatter, st, args[0], code)
}

func traceListRuns(cmd *cobra.Command, opts *RootOptions, formatter *OutputFormatter, st *store.Store, unit string) error {
	var filter query.Predicate
	if unit != "" {
		filter = query.Equals{Field: "unit_name", Value: unit}
	}

	runs, err := st.ListRuns(cmd.Context(), filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "listing runs", err)
	}

	if opts.Format == "json" {
		if err := formatter.Success(runs); err != nil {
			return WrapExitError(ExitCommandError, "encoding output", err)
		}
		return nil
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no runs recorded")
		return nil
	}
	for _, run := range runs {
		status := "clean"
		if !run.Clean {
			status = fmt.Sprintf("%d finding(s)", run.DiagCount)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d  %s  unit %s: %s\n", run.Seq, run.ID, run.UnitName, status)
	}
	return nil
}

func traceShowRun(cmd *cobra.Command, opts *RootOptions, formatter *OutputFormatter, st *store.Store, runID, code string) error {
	run, err := st.ReadRun(cmd.Context(), runID)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading run", err)
	}

	var filter query.Predicate
	if code != "" {
		filter = query.Equals{Field: "code", Value: code}
	}
	diags, err := st.ReadDiagnostics(cmd.Context(), runID, filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "reading diagnostics", err)
	}

	rep := CheckReport{
		Unit:        run.UnitName,
		UnitHash:    run.UnitHash,
		Clean:       run.Clean,
		Diagnostics: diags,
		RunID:       run.ID,
	}

	if opts.Format == "json" {
		if err := formatter.Success(rep); err != nil {
			return WrapExitError(ExitCommandError, "encoding output", err)
		}
		return nil
	}

	RenderDiagnostics(cmd.OutOrStdout(), &rep)
	return nil
}
