// Command delf is the operator CLI for the deletion engine: validate a
// schema/config pair without starting a server, run the server
// in-process for local development, or exercise a scripted cascade
// against the in-memory backend.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "delf",
		Short: "delf validates and runs schema-driven cascading deletion",
	}

	root.AddCommand(newValidateCmd())
	root.AddCommand(newRunCmd())
	root.AddCommand(newDemoCmd())
	root.AddCommand(newVersionCmd())

	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print delf's version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("delf %s (commit: %s, built: %s)\n", version, commit, date)
			return nil
		},
	}
}
