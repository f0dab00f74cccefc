package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// alertCmd runs one alert-evaluation cycle.
var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Run one alert-evaluation cycle",
	Long: `Runs an update pass and evaluates the alert-basis variation
of every instrument against the configured threshold ladder. Outside
the daily alert window the cycle always yields no alert.`,
	RunE: runAlert,
}

func init() {
	rootCmd.AddCommand(alertCmd)
}

func runAlert(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	output := app.runner.Run(cmd.Context())
	outcome := app.evaluator.Evaluate(cmd.Context(), time.Now(), output.AlertValues())

	fmt.Printf("result: %s\n", outcome.Reason)
	if outcome.Reason == "triggered" {
		fmt.Printf("tier:   %d (cutpoint %.2f), notified=%t\n",
			outcome.Tier.Index, outcome.Tier.Cutpoint, outcome.Fired)
	}
	return nil
}
