package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "etfwatch",
	Short: "ETF close-price tracker and alerting pipeline",
	Long: `etfwatch tracks a fixed set of ETFs and funds: it scrapes
prices, persists one close snapshot per instrument per trading day,
derives look-back variations, fires tiered alerts and sends periodic
Telegram reports.

Usage:
  go run ./cmd/etfwatch [command]

Examples:
  go run ./cmd/etfwatch serve
  go run ./cmd/etfwatch update
  go run ./cmd/etfwatch alert
  go run ./cmd/etfwatch report
  go run ./cmd/etfwatch backup`,
}

// Execute runs the root command. Called once from main.
func Execute() error {
	return rootCmd.Execute()
}
