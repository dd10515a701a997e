package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/marmos91/asyncload/internal/cli/prompt"
	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open configuration in editor",
	Long: `Open the configuration file in $EDITOR (or $VISUAL, falling back to vi).

Once the editor exits the file is validated. When it is invalid you are
offered to reopen it.

Examples:
  asyncload config edit
  EDITOR="code --wait" asyncload config edit --config /etc/asyncload/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runConfigEdit,
}

func runConfigEdit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}
	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("no configuration file at %s\n\nCreate one with:\n  asyncload config init --config %s",
			configPath, configPath)
	}

	editor := editorCommand()
	for {
		c := exec.CommandContext(cmd.Context(), editor[0], append(editor[1:], configPath)...)
		c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("failed to run editor %q: %w", editor[0], err)
		}

		_, loadErr := config.Load(configPath)
		if loadErr == nil {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved and valid")
			return nil
		}

		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Configuration is invalid: %v\n", loadErr)
		again, err := prompt.Confirm("Reopen the editor", true)
		if err != nil || !again {
			return fmt.Errorf("edited configuration is invalid: %w", loadErr)
		}
	}
}

// editorCommand splits $EDITOR or $VISUAL into a command and its arguments.
func editorCommand() []string {
	for _, env := range []string{"EDITOR", "VISUAL"} {
		if fields := strings.Fields(os.Getenv(env)); len(fields) > 0 {
			return fields
		}
	}
	return []string{"vi"}
}
