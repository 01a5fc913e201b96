package main

import (
	"fmt"
	"os"

	"github.com/trebuchet-org/catapult/internal/cli"
	"github.com/trebuchet-org/catapult/internal/config"
)

// set by -ldflags at release time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	config.SetBuildFlags(version, commit, date)

	rootCmd := cli.NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
