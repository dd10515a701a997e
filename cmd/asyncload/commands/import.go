package commands

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/asyncload/internal/cli/output"
	"github.com/marmos91/asyncload/internal/logger"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/marmos91/asyncload/pkg/linker"
	"github.com/spf13/cobra"
)

var (
	importPrefix string
	importDryRun bool
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import package manifests into the package store",
	Long: `Import YAML package manifests from a directory into the configured store.

Every *.yaml or *.yml file below <dir> becomes one package. The package
name is the file path relative to <dir> without its extension, prefixed
with --prefix (default "/"). A manifest carrying a name must match it.

Manifests are decoded and validated before anything is written.

Examples:
  # Import ./content/Game/Hero.yaml as /Game/Hero
  asyncload import ./content

  # Validate only
  asyncload import ./content --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importPrefix, "prefix", "/", "Prefix prepended to package names")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Validate manifests without writing them")
}

// manifestFile is a decoded manifest ready to be written.
type manifestFile struct {
	path string
	name string
	data []byte
	m    *linker.Manifest
}

func runImport(cmd *cobra.Command, args []string) error {
	files, err := collectManifests(args[0], importPrefix)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no manifests found in %s", args[0])
	}

	table := output.NewTableData("PACKAGE", "IMPORTS", "EXPORTS", "SOURCE")
	for _, f := range files {
		table.AddRow(f.name, fmt.Sprint(len(f.m.Imports)), fmt.Sprint(len(f.m.Exports)), f.path)
	}

	printer := output.DefaultPrinter()
	if importDryRun {
		if err := printer.Print(table); err != nil {
			return err
		}
		printer.Success(fmt.Sprintf("\n%d manifest(s) valid", len(files)))
		return nil
	}

	cfg, err := config.MustLoad(GetConfigFile())
	if err != nil {
		return err
	}
	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx := context.Background()
	st, err := config.CreateStore(ctx, cfg.Store)
	if err != nil {
		return fmt.Errorf("failed to create package store: %w", err)
	}
	defer func() { _ = st.Close() }()

	for _, f := range files {
		if err := st.WritePackage(ctx, f.name, f.data); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		logger.Debug("Package imported", logger.KeyPackage, f.name, logger.KeyStoreType, st.Type())
	}

	if err := printer.Print(table); err != nil {
		return err
	}
	printer.Success(fmt.Sprintf("\n%d package(s) imported into %s store", len(files), st.Type()))
	return nil
}

// collectManifests walks dir and decodes every manifest below it.
func collectManifests(dir, prefix string) ([]manifestFile, error) {
	var files []manifestFile
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := filepath.Ext(path)
		if d.IsDir() || (ext != ".yaml" && ext != ".yml") {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := manifestName(prefix, strings.TrimSuffix(filepath.ToSlash(rel), ext))

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		m, err := linker.Decode(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if err := m.Validate(name); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		// Re-encode so the stored form always carries the name.
		data, err = linker.Encode(m)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		files = append(files, manifestFile{path: path, name: name, data: data, m: m})
		return nil
	})
	return files, err
}

func manifestName(prefix, rel string) string {
	if prefix == "" {
		prefix = "/"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + strings.TrimPrefix(rel, "/")
}
