// Package main is the entry point for the hookwatchd daemon.
package main

import (
	"os"

	"github.com/watchfire-io/hookwatch/internal/daemon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
