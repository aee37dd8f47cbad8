// Package main is the entry point for the mythctl application.
package main

import (
	"os"

	"github.com/jmylchreest/gomyth/cmd/mythctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
