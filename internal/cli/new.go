package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valter-silva-au/session-vault/internal/session"
)

var (
	newModel     string
	newProvider  string
	newWorkspace string
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Create a fresh session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Mgr == nil {
			return fmt.Errorf("vault not initialized")
		}

		workspace := newWorkspace
		if workspace == "" {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving workspace: %w", err)
			}
			workspace = cwd
		}

		s, err := session.CreateSession(Mgr, newModel, newProvider, workspace)
		if err != nil {
			return err
		}
		fmt.Println(okStyle.Render("created ") + s.ID)
		return nil
	},
}

func init() {
	newCmd.Flags().StringVar(&newModel, "model", "", "model name recorded on the session")
	newCmd.Flags().StringVar(&newProvider, "provider", "", "provider name recorded on the session")
	newCmd.Flags().StringVar(&newWorkspace, "workspace", "", "workspace root (default: current directory)")
	rootCmd.AddCommand(newCmd)
}
