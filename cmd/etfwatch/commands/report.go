package commands

import (
	"github.com/spf13/cobra"
)

// reportCmd sends the monthly Telegram report immediately.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Send the monthly Telegram report now",
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	output := app.runner.Run(cmd.Context())
	return app.reporter.Send(cmd.Context(), output)
}
