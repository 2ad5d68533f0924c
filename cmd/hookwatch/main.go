// Package main is the entry point for the hookwatch CLI, hook handler and TUI.
package main

import (
	"os"

	"github.com/watchfire-io/hookwatch/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
