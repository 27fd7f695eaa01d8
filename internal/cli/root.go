package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	appVersion = "dev"
	appCommit  = "none"
	appDate    = "unknown"
)

// SetVersionInfo sets the version information injected via ldflags.
func SetVersionInfo(version, commit, date string) {
	appVersion = version
	appCommit = commit
	appDate = date
}

var rootCmd = &cobra.Command{
	Use:   "svault",
	Short: "Session Vault - crash-safe storage for assistant sessions",
	Long: `Session Vault (svault) persists AI coding-assistant session records to
local disk and keeps them readable, consistent, and recoverable across
crashes, partial writes, and manual tampering.

Every session is stored as a checksummed, optionally compressed envelope,
written atomically with a backup of the previous state. A master index
tracks all sessions; the validator reconciles it against the file system
and quarantines sessions that repeatedly fail to restore.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("svault %s\ncommit: %s\nbuilt:  %s\n", appVersion, appCommit, appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
