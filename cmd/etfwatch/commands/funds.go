package commands

import (
	"github.com/spf13/cobra"
)

// fundsCmd refreshes the fund NAV snapshot immediately.
var fundsCmd = &cobra.Command{
	Use:   "funds",
	Short: "Refresh the fund NAV snapshot",
	RunE:  runFunds,
}

func init() {
	rootCmd.AddCommand(fundsCmd)
}

func runFunds(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	return app.fundUpdater.Run(cmd.Context())
}
