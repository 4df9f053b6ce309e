// RomDeck - client for the RGSX download server
package main

import (
	"fmt"
	"os"

	"github.com/romdeck/romdeck/internal/cli"
)

// Version information, overridden via -ldflags for releases.
var (
	Version   = "v1.0.0"
	BuildTime = "unknown"
)

func main() {
	cli.Version = Version
	cli.BuildTime = BuildTime

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
