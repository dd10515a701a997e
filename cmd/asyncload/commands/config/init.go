package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/asyncload/internal/cli/prompt"
	"github.com/marmos91/asyncload/pkg/config"
	sqlstore "github.com/marmos91/asyncload/pkg/store/sql"
	"github.com/spf13/cobra"
)

var (
	initForce       bool
	initInteractive bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create an AsyncLoad configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/asyncload/config.yaml
with default values. Use --config to specify a custom path and --interactive
to answer a few questions about the loader and the package store.

Examples:
  # Initialize with default location
  asyncload config init

  # Initialize with custom path
  asyncload config init --config /etc/asyncload/config.yaml

  # Pick the store and loader strategy interactively
  asyncload config init --interactive

  # Force overwrite existing config
  asyncload config init --force`,
	RunE: runConfigInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
	initCmd.Flags().BoolVarP(&initInteractive, "interactive", "i", false, "Prompt for store and loader settings")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.GetDefaultConfig()
	force := initForce

	if initInteractive {
		if _, err := os.Stat(configPath); err == nil {
			ok, err := prompt.ConfirmWithForce(fmt.Sprintf("Overwrite %s", configPath), initForce)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Println("Aborted")
				return nil
			}
			force = true
		}

		if err := promptConfig(cfg); err != nil {
			if prompt.IsAborted(err) {
				fmt.Println("Aborted")
				return nil
			}
			return err
		}
	}

	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.WriteConfig(cfg, configPath, force); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Import package manifests with: asyncload import <dir>")
	fmt.Println("  2. Load packages with: asyncload load <package>")
	fmt.Println("  3. Or run the loader with its API: asyncload serve")
	return nil
}

// promptConfig asks for the settings most setups change.
func promptConfig(cfg *config.Config) error {
	strategy, err := prompt.Select("Loading strategy", []prompt.SelectOption{
		{Label: "caller", Value: "caller", Description: "Load on the goroutine calling TickAsyncLoading"},
		{Label: "worker", Value: "worker", Description: "Load on a dedicated worker goroutine"},
	})
	if err != nil {
		return err
	}
	cfg.Loader.Multithreaded = strategy == "worker"

	if cfg.Loader.TimeLimit, err = prompt.InputDuration("Time limit per tick (0 = unlimited)", cfg.Loader.TimeLimit); err != nil {
		return err
	}
	if cfg.Loader.HistorySize, err = prompt.InputInt("Finished packages kept in history", cfg.Loader.HistorySize); err != nil {
		return err
	}

	storeType, err := prompt.Select("Package store", []prompt.SelectOption{
		{Label: "fs", Value: "fs", Description: "One file per package below a directory"},
		{Label: "memory", Value: "memory", Description: "Process memory, lost on exit"},
		{Label: "badger", Value: "badger", Description: "Embedded BadgerDB key-value store"},
		{Label: "sql", Value: "sql", Description: "SQLite or PostgreSQL table"},
		{Label: "s3", Value: "s3", Description: "S3 compatible object storage"},
	})
	if err != nil {
		return err
	}
	cfg.Store.Type = storeType

	switch storeType {
	case "fs":
		if cfg.Store.FS.BasePath, err = prompt.Input("Package directory", cfg.Store.FS.BasePath); err != nil {
			return err
		}
	case "badger":
		dir := filepath.Join(filepath.Dir(cfg.Store.FS.BasePath), "badger")
		if cfg.Store.Badger.Path, err = prompt.Input("Database directory", dir); err != nil {
			return err
		}
	case "sql":
		dbType, err := prompt.SelectString("Database", []string{"sqlite", "postgres"})
		if err != nil {
			return err
		}
		cfg.Store.SQL.Type = sqlstore.DatabaseType(dbType)
		if dbType == "sqlite" {
			dbPath := filepath.Join(filepath.Dir(cfg.Store.FS.BasePath), "packages.db")
			if cfg.Store.SQL.SQLite.Path, err = prompt.Input("Database file", dbPath); err != nil {
				return err
			}
		} else if err := promptPostgres(cfg); err != nil {
			return err
		}
		cfg.Store.SQL.ApplyDefaults()
	case "s3":
		if err := promptS3(cfg); err != nil {
			return err
		}
	}

	if cfg.API.Port, err = prompt.InputPort("API port", cfg.API.Port); err != nil {
		return err
	}
	return nil
}

func promptPostgres(cfg *config.Config) error {
	pg := &cfg.Store.SQL.Postgres
	var err error
	if pg.Host, err = prompt.Input("Host", "localhost"); err != nil {
		return err
	}
	if pg.Port, err = prompt.InputPort("Port", 5432); err != nil {
		return err
	}
	if pg.Database, err = prompt.Input("Database", "asyncload"); err != nil {
		return err
	}
	if pg.User, err = prompt.InputRequired("User"); err != nil {
		return err
	}
	if pg.Password, err = prompt.Password("Password"); err != nil {
		return err
	}
	return nil
}

func promptS3(cfg *config.Config) error {
	s3 := &cfg.Store.S3
	var err error
	if s3.Bucket, err = prompt.InputRequired("Bucket"); err != nil {
		return err
	}
	if s3.Region, err = prompt.Input("Region", "us-east-1"); err != nil {
		return err
	}
	if s3.Endpoint, err = prompt.InputOptional("Endpoint URL"); err != nil {
		return err
	}
	if s3.Endpoint != "" {
		if s3.ForcePathStyle, err = prompt.Confirm("Use path-style addressing", true); err != nil {
			return err
		}
	}
	if s3.AccessKeyID, err = prompt.InputOptional("Access key ID"); err != nil {
		return err
	}
	if strings.TrimSpace(s3.AccessKeyID) != "" {
		if s3.SecretAccessKey, err = prompt.Password("Secret access key"); err != nil {
			return err
		}
	}
	return nil
}
