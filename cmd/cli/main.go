// Package main is the entry point for the energy-quote CLI.
package main

import (
	"os"

	"energy-quote/cmd/cli/cmd"
	"energy-quote/internal/logging"
)

func main() {
	err := cmd.Execute()
	logging.Sync()
	if err != nil {
		os.Exit(1)
	}
}
