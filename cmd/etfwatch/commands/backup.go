package commands

import (
	"github.com/spf13/cobra"
)

// backupCmd dumps the close-price history to SQL immediately.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Dump the close-price history to a SQL file",
	RunE:  runBackup,
}

func init() {
	rootCmd.AddCommand(backupCmd)
}

func runBackup(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return app.backups.Run(cmd.Context())
}
