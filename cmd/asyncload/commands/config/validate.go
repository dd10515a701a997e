package config

import (
	"strconv"

	"github.com/marmos91/asyncload/internal/cli/output"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the AsyncLoad configuration file.

Checks for syntax errors, missing store settings and invalid values, then
prints a summary of the effective loader and store configuration.

Examples:
  # Validate default config
  asyncload config validate

  # Validate specific config file
  asyncload config validate --config /etc/asyncload/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	printer := output.DefaultPrinter()
	printer.Printf("Configuration file: %s\n", displayPath)
	printer.Success("Validation: OK")

	if warnings := configWarnings(cfg); len(warnings) > 0 {
		printer.Println()
		for _, w := range warnings {
			printer.Warning("warning: " + w)
		}
	}

	strategy := "caller"
	if cfg.Loader.Multithreaded {
		strategy = "worker"
	}
	timeLimit := "unlimited"
	if cfg.Loader.TimeLimit > 0 {
		timeLimit = cfg.Loader.TimeLimit.String()
	}
	maxSize := "unlimited"
	if cfg.Loader.MaxPackageSize > 0 {
		maxSize = cfg.Loader.MaxPackageSize.String()
	}

	printer.Printf("\nConfiguration summary:\n")
	return output.SimpleTable(printer.Writer(), [][2]string{
		{"  Strategy", strategy},
		{"  Time limit", timeLimit},
		{"  Max package size", maxSize},
		{"  Store type", cfg.Store.Type},
		{"  API port", strconv.Itoa(cfg.API.Port)},
		{"  Log level", cfg.Logging.Level},
	})
}

// configWarnings reports settings that are valid but likely unintended.
func configWarnings(cfg *config.Config) []string {
	var warnings []string
	if cfg.Store.Type == "memory" {
		warnings = append(warnings, "memory store is empty on every start; packages must be imported by the same process")
	}
	if cfg.Loader.TimeLimit == 0 && !cfg.Loader.Multithreaded {
		warnings = append(warnings, "caller strategy without loader.time_limit blocks the ticking goroutine until all work is done")
	}
	if cfg.Loader.UseFullTimeLimit && cfg.Loader.TimeLimit == 0 {
		warnings = append(warnings, "loader.use_full_time_limit has no effect without loader.time_limit")
	}
	if cfg.Loader.HistorySize == 0 {
		warnings = append(warnings, "loader.history_size is 0; finished packages cannot be inspected")
	}
	return warnings
}
