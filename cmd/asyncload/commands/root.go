// Package commands implements the asyncload command line.
package commands

import (
	"github.com/marmos91/asyncload/cmd/asyncload/commands/config"
	"github.com/spf13/cobra"
)

// Build information, set by main.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "asyncload",
	Short: "Event-driven package loader",
	Long: `asyncload loads packages of interdependent objects from a package store.

A package is queued by name and priority. Its imports are resolved
recursively, and each object is deserialized, post-loaded and registered
once everything it depends on is ready. Loading runs on the goroutine that
ticks the loader or on a dedicated worker goroutine.

Typical use:
  asyncload config init            write a starting configuration
  asyncload import ./manifests     put package manifests in the store
  asyncload load /Game/Hero        load packages and report the outcome
  asyncload serve                  run the loader behind its HTTP API`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/asyncload/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "", "override logging.level (DEBUG, INFO, WARN, ERROR)")

	rootCmd.AddCommand(
		versionCmd,
		serveCmd,
		stopCmd,
		statusCmd,
		loadCmd,
		importCmd,
		completionCmd,
		config.Cmd,
	)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Execute runs the command selected by os.Args.
func Execute() error {
	return rootCmd.Execute()
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return cfgFile
}
