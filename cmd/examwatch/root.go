// Package main provides the entry point for the examwatch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for examwatch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "examwatch",
		Short: "Proctoring aid for browser-based exams",
		Long: `Examwatch watches a browser exam page for suspicious activity.

It drives a Chrome or Chromium tab over the DevTools protocol, counts tab
switches and focus losses, surfaces warning notices on the exam page itself,
and flags window geometry that suggests an open devtools panel. Every
detection is journaled for later review.

By default, 'examwatch watch' launches its own browser and navigates to the
exam page. Use --attach to watch a tab in an already-running browser.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewWatchCmd())
	cmd.AddCommand(NewDemoCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
