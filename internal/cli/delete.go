package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete a session, its backup, and its index entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Mgr == nil {
			return fmt.Errorf("vault not initialized")
		}

		if err := Mgr.DeleteSession(args[0]); err != nil {
			return fmt.Errorf("deleting session: %w", err)
		}
		fmt.Println(okStyle.Render("deleted ") + args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}
