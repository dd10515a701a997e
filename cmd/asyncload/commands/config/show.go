package config

import (
	"github.com/marmos91/asyncload/internal/cli/output"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var (
	showOutput   string
	showDefaults bool
	showSecrets  bool
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective configuration, with defaults and ASYNCLOAD_*
environment overrides applied. Credentials are masked unless
--show-secrets is given.

Examples:
  asyncload config show
  asyncload config show -o json
  asyncload config show --defaults`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
	showCmd.Flags().BoolVar(&showDefaults, "defaults", false, "Show built-in defaults")
	showCmd.Flags().BoolVar(&showSecrets, "show-secrets", false, "Print credentials in clear text")
}

const secretMask = "********"

// redact returns a copy of cfg with credentials masked.
func redact(cfg *config.Config) *config.Config {
	c := *cfg
	for _, s := range []*string{&c.Store.S3.SecretAccessKey, &c.Store.SQL.Postgres.Password} {
		if *s != "" {
			*s = secretMask
		}
	}
	return &c
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	var cfg *config.Config
	if showDefaults {
		cfg = config.GetDefaultConfig()
	} else {
		configPath, _ := cmd.Flags().GetString("config")
		if cfg, err = config.MustLoad(configPath); err != nil {
			return err
		}
	}
	if !showSecrets {
		cfg = redact(cfg)
	}

	return output.NewPrinter(cmd.OutOrStdout(), format, false).Print(cfg)
}
