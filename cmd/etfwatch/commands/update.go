package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

// updateCmd runs one update pass and prints the aggregate.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run one instrument update pass",
	RunE:  runUpdate,
}

func init() {
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	app, err := newApp()
	if err != nil {
		return err
	}
	defer app.Close()

	output := app.runner.Run(cmd.Context())

	status := "CHIUSO"
	if output.MarketOpen {
		status = "APERTO"
	}
	fmt.Printf("Market: %s\n\n", status)

	symbols := make([]string, 0, len(output.Results))
	for symbol := range output.Results {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	for _, symbol := range symbols {
		res := output.Results[symbol]
		fmt.Printf("%-8s %-28s price=%-10s prev=%-10s daily=%-8s status=%s\n",
			res.Symbol, res.Label,
			res.Price, res.PreviousClose, res.DailyChange,
			res.Status,
		)
		for _, v := range res.Variations {
			fmt.Printf("    %-5s %s\n", v.Code, v)
		}
	}
	return nil
}
