package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, partitioned into valid and broken",
	Long: `Validate every catalog entry against its file on disk and list the
results. Broken entries trigger an orphan cleanup before the command
returns.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Safe == nil {
			return fmt.Errorf("vault not initialized")
		}

		result := Safe.DetectAvailableSessions()

		fmt.Println(titleStyle.Render(fmt.Sprintf("Sessions (%d valid)", len(result.ValidSessions))))
		if len(result.ValidSessions) == 0 {
			fmt.Println(dimStyle.Render("  no valid sessions"))
		}
		for _, md := range result.ValidSessions {
			title := md.Title
			if title == "" {
				title = dimStyle.Render("(untitled)")
			}
			fmt.Printf("  %s  %s\n", shortID(md.ID), title)
			fmt.Printf("      %s\n", dimStyle.Render(fmt.Sprintf(
				"%s/%s · %d message(s) · %d tokens · %s",
				md.Provider, md.Model, md.MessageCount, md.TokenCount.Total,
				md.LastModified.Format("2006-01-02 15:04"),
			)))
		}

		if len(result.InvalidSessions) > 0 {
			fmt.Println()
			fmt.Println(errStyle.Render(fmt.Sprintf("Broken (%d)", len(result.InvalidSessions))))
			for _, inv := range result.InvalidSessions {
				fmt.Printf("  %s  %s\n", shortID(inv.Metadata.ID), strings.Join(inv.Errors, "; "))
			}
			if result.CleanupPerformed {
				fmt.Println(dimStyle.Render("  index cleanup performed"))
			}
		}
		for _, w := range result.Warnings {
			fmt.Println(warnStyle.Render("  ! " + w))
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	rootCmd.AddCommand(listCmd)
}
