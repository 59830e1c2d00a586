package main

import (
	"os"

	"github.com/ordo-ai/ordo/cmd/ordo/cmd"
)

// Version information set by the release pipeline at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cmd.SetVersion(version, commit, date)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
