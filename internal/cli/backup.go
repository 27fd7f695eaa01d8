package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var backupRestorePath string

var backupCmd = &cobra.Command{
	Use:   "backup [session-id]",
	Short: "Snapshot a session, or restore one from a backup file",
	Long: `With a session id, write an explicit checkpoint of its current envelope
under sessions/backups/. With --restore, reinstall a backup file as the
canonical state for the session id embedded in it.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Store == nil {
			return fmt.Errorf("vault not initialized")
		}

		if backupRestorePath != "" {
			id, err := Store.RestoreFromBackup(backupRestorePath)
			if err != nil {
				return fmt.Errorf("restoring backup: %w", err)
			}
			fmt.Println(okStyle.Render("restored ") + id + " from " + backupRestorePath)
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("a session id is required unless --restore is given")
		}
		path, err := Store.CreateBackup(args[0])
		if err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		fmt.Println(okStyle.Render("backup written ") + path)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupRestorePath, "restore", "", "backup file to reinstall")
	rootCmd.AddCommand(backupCmd)
}
