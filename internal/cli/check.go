package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hawkstract/nsc/internal/compiler"
	"github.com/hawkstract/nsc/internal/store"
)

// NewCheckCommand creates the check command: run every security pass
// over one or more unit files and report the aggregated diagnostics.
func NewCheckCommand(opts *RootOptions) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "check <unit.cue | dir>...",
		Short: "Check compilation units against their capability and vault rules",
		Long: `Check runs the full security pipeline over each unit: capability
declaration parsing, effect-closure construction, capability checking,
vault scope analysis, and mutability validation. All diagnostics of a
unit are reported in one run, sorted by source position.

Exits 0 when every unit checks clean, 1 when any diagnostic was
reported, 2 on command errors.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts, args, dbPath)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "persist the run to this check-run database")
	return cmd
}

func runCheck(cmd *cobra.Command, opts *RootOptions, args []string, dbPath string) error {
	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	var st *store.Store
	if dbPath != "" {
		var err error
		st, err = store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "opening check-run database", err)
		}
		defer st.Close()
	}

	var reports []CheckReport
	failed := false
	for _, arg := range args {
		units, err := LoadUnits(arg)
		if err != nil {
			return WrapExitError(ExitCommandError, "loading units", err)
		}
		for _, unit := range units {
			result, err := compiler.CheckUnit(cmd.Context(), unit)
			if err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("checking unit %q", unit.Name), err)
			}

			rep := CheckReport{
				Unit:        unit.Name,
				UnitHash:    result.UnitHash,
				Clean:       result.Clean(),
				Diagnostics: result.Diagnostics,
			}
			if !rep.Clean {
				failed = true
			}

			if st != nil {
				run, err := st.WriteRun(cmd.Context(), unit.Name, result.UnitHash, result.Diagnostics)
				if err != nil {
					return WrapExitError(ExitCommandError, "persisting check run", err)
				}
				rep.RunID = run.ID
			}

			reports = append(reports, rep)
		}
	}

	if opts.Format == "json" {
		if err := formatter.Success(reports); err != nil {
			return WrapExitError(ExitCommandError, "encoding output", err)
		}
	} else {
		for i := range reports {
			RenderDiagnostics(cmd.OutOrStdout(), &reports[i])
			if opts.Verbose && reports[i].RunID != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "  run %s recorded\n", reports[i].RunID)
			}
		}
	}

	if failed {
		return NewExitError(ExitFailure, "diagnostics reported")
	}
	return nil
}
