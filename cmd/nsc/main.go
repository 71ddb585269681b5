// Package main is the entry point for the NSC command line tool.
package main

import (
	"fmt"
	"os"

	"github.com/hawkstract/nsc/internal/cli"
)

func main() {
	os.Exit(run())
}

func run() int {
	root := cli.NewRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "nsc: %v\n", err)
		return cli.GetExitCode(err)
	}
	return cli.ExitSuccess
}
