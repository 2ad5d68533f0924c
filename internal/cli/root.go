// Package cli implements the hookwatch CLI commands.
package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hookwatch",
	Short: "Track coding agent sessions through their hook events",
	Long: `hookwatch receives hook events from the coding agent CLI, keeps a shared
registry of sessions, answers permission prompts and archives transcripts.

Run without a subcommand to open the dashboard.`,
	RunE: runTUI,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add subcommands (alphabetical)
	rootCmd.AddCommand(daemonCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(permissionCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(transcriptCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(versionCmd)
}
