// Package cmd defines and implements the CLI commands for the datescout
// executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datescout",
		Short: "Resolve plausible publication dates for a list of URLs.",
		Long: `datescout searches each input URL on Google, restricted to a fixed
publication-date range, and mines the first organic result's snippet for a
date-like substring. Results are appended to a resumable output store, one
row per URL, with sentinel values standing in when extraction is impossible.`,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./datescout.yaml)")
	cmd.AddCommand(newRunCmd())
	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
