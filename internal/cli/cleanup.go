package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Sweep orphaned index entries and adopt orphaned session files",
	Long: `Remove catalog entries whose session file is missing or broken, and
re-index valid session files that lost their catalog entry. Session data
is never deleted; broken files stay on disk for manual recovery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Safe == nil {
			return fmt.Errorf("vault not initialized")
		}

		result := Safe.CleanupInvalidSessions()

		if result.EntriesRemoved == 0 && result.FilesAdopted == 0 && len(result.Errors) == 0 {
			fmt.Println(okStyle.Render("nothing to clean up"))
			return nil
		}
		if result.EntriesRemoved > 0 {
			fmt.Printf("removed %d orphaned index entr(ies):\n", result.EntriesRemoved)
			for _, id := range result.CleanedSessions {
				fmt.Println(dimStyle.Render("  " + id))
			}
		}
		if result.FilesAdopted > 0 {
			fmt.Printf("adopted %d orphaned session file(s) into the index\n", result.FilesAdopted)
		}
		for _, e := range result.Errors {
			fmt.Println(warnStyle.Render("  ! " + e))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}
