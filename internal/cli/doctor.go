package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check and repair index/file consistency",
	Long: `Run the integrity check: validate every session file against the index,
remove orphaned index entries, and adopt valid session files that lost
their catalog record. The same check runs automatically at startup.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Validator == nil {
			return fmt.Errorf("vault not initialized")
		}

		report := Validator.StartupIntegrityCheck()

		fmt.Println(titleStyle.Render("Session Vault Doctor"))
		fmt.Println()
		if report.Success {
			fmt.Println(okStyle.Render("OK") + "  " + report.Summary)
		} else {
			fmt.Println(errStyle.Render("FAIL") + "  " + report.Summary)
		}
		if report.IssuesFound > 0 {
			fmt.Printf("\nissues found:    %d\n", report.IssuesFound)
			fmt.Printf("issues resolved: %d\n", report.IssuesResolved)
			for _, id := range report.Cleanup.CleanedSessions {
				fmt.Println(dimStyle.Render("  removed entry " + id))
			}
			if report.Cleanup.FilesAdopted > 0 {
				fmt.Printf("adopted files:   %d\n", report.Cleanup.FilesAdopted)
			}
		}
		for _, e := range report.Cleanup.Errors {
			fmt.Println(warnStyle.Render("  ! " + e))
		}

		if !report.Success {
			return fmt.Errorf("integrity check found unresolved problems")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}
