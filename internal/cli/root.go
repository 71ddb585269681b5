package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions carries the global flags shared by every subcommand.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json"}

// NewRootCommand builds the nsc command tree.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	root := &cobra.Command{
		Use:   "nsc",
		Short: "NSC - NodeStract Compiler security core",
		Long:  "Capability and vault checking for NodeStract compilation units.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	root.AddCommand(NewCheckCommand(opts))
	root.AddCommand(NewTraceCommand(opts))
	root.AddCommand(NewVersionCommand(opts))

	return root
}
