// Command asyncload queues, loads and serves packages from a package store.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/asyncload/cmd/asyncload/commands"

	// Registers the Prometheus loader and store metrics.
	_ "github.com/marmos91/asyncload/pkg/metrics/prometheus"
)

// Set with -ldflags "-X main.version=...".
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.Version, commands.Commit, commands.Date = version, commit, date

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
