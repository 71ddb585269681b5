package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

// Version is the NSC release version. Overridden at build time with
// -ldflags "-X github.com/hawkstract/nsc/internal/cli.Version=...".
var Version = "0.1.0"

type versionInfo struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the NSC version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:   Version,
				GoVersion: runtime.Version(),
				Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			}

			if opts.Format == "json" {
				formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}
				return formatter.Success(info)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "NodeStract Compiler (NSC) v%s - HawkStract Ecosystem\n", info.Version)
			if opts.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", info.GoVersion, info.Platform)
			}
			return nil
		},
	}
	return cmd
}
