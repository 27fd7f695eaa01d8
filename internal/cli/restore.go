package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <session-id>",
	Short: "Validate and load a session, with recovery options on failure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Safe == nil {
			return fmt.Errorf("vault not initialized")
		}

		result := Safe.RestoreSession(args[0])
		if result.Success {
			s := result.Session
			fmt.Println(okStyle.Render("restored ") + s.ID)
			fmt.Printf("  %d message(s), last modified %s\n",
				len(s.Messages), s.LastModified.Format("2006-01-02 15:04"))
			for _, cf := range result.ContextFiles {
				if cf.Present {
					fmt.Println(dimStyle.Render("  context file present: " + cf.Path))
				} else {
					fmt.Println(warnStyle.Render("  context file missing: " + cf.Path))
				}
			}
			return nil
		}

		fmt.Println(errStyle.Render("restore failed: ") + result.Error)
		if len(result.RecoveryOptions) > 0 {
			fmt.Println("\nwhat you can do:")
			for _, opt := range result.RecoveryOptions {
				marker := "  "
				if opt.Recommended {
					marker = okStyle.Render("* ")
				}
				fmt.Printf("%s%s - %s\n", marker, opt.Label, dimStyle.Render(opt.Description))
			}
		}
		return fmt.Errorf("session %s could not be restored", args[0])
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
