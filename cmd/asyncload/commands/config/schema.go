package config

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/asyncload/internal/bytesize"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for configuration",
	Long: `Print a JSON schema describing the configuration file.

Point an editor's YAML language server at it to get completion and
validation while editing the loader, store and api sections:

  asyncload config schema -o ~/.config/asyncload/config.schema.json

and start config.yaml with

  # yaml-language-server: $schema=config.schema.json`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")
}

var (
	durationPattern = `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`
	byteSizePattern = `^[0-9]+(\.[0-9]+)?\s*([KkMmGgTt]i?[Bb]?|[Bb])?$`
)

// mapType describes types whose YAML form differs from their Go kind.
func mapType(t reflect.Type) *jsonschema.Schema {
	switch t {
	case reflect.TypeOf(time.Duration(0)):
		return &jsonschema.Schema{
			Type:        "string",
			Pattern:     durationPattern,
			Description: `Go duration, e.g. "16ms", "5s", "1m30s"`,
		}
	case reflect.TypeOf(bytesize.ByteSize(0)):
		return &jsonschema.Schema{
			OneOf: []*jsonschema.Schema{
				{Type: "integer", Minimum: json.Number("0")},
				{Type: "string", Pattern: byteSizePattern},
			},
			Description: `Size in bytes, or with a unit such as "64Mi" or "100MB"`,
		}
	}
	return nil
}

// buildSchema reflects config.Config using the yaml tag names found in
// configuration files.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
		Mapper:                    mapType,
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Version = "https://json-schema.org/draft/2020-12/schema"
	schema.Title = "AsyncLoad Configuration"
	schema.Description = "Configuration of the asyncload package loader"

	setEnum(schema, enumOf(config.StoreTypes...), "store", "type")
	setEnum(schema, enumOf("DEBUG", "INFO", "WARN", "ERROR"), "logging", "level")
	setEnum(schema, enumOf("text", "json"), "logging", "format")
	return schema
}

func enumOf(values ...string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

// setEnum restricts the property at path. Missing paths are ignored.
func setEnum(s *jsonschema.Schema, values []any, path ...string) {
	for _, name := range path {
		if s == nil || s.Properties == nil {
			return
		}
		next, ok := s.Properties.Get(name)
		if !ok {
			return
		}
		s = next
	}
	s.Enum = values
}

func runSchema(cmd *cobra.Command, args []string) error {
	data, err := json.MarshalIndent(buildSchema(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if schemaOutput == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}
	if err := os.WriteFile(schemaOutput, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", schemaOutput)
	return nil
}
