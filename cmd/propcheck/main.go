// Package main is the entry point for the propcheck CLI.
package main

import (
	"os"

	"github.com/jmylchreest/propcheck/cmd/propcheck/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
