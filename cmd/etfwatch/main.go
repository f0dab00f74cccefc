package main

import (
	"os"

	"github.com/marchino/etfwatch/cmd/etfwatch/commands"
)

// main is the entry point for the etfwatch CLI.
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
