// Package main is the entry point for the ridebook CLI.
package main

import (
	"os"

	"github.com/runger/ridebook/internal/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
