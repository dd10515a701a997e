package commands

import (
	"context"
	"strings"
	"time"

	"github.com/marmos91/asyncload/pkg/config"
	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate a shell completion script for asyncload.

Package arguments of "asyncload load" complete from the configured store.

Examples:
  # Bash
  asyncload completion bash > /etc/bash_completion.d/asyncload

  # Zsh (requires compinit)
  asyncload completion zsh > "${fpath[1]}/_asyncload"

  # Fish
  asyncload completion fish > ~/.config/fish/completions/asyncload.fish

  # PowerShell
  asyncload completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(out, true)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		default:
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
	},
}

// completionTimeout bounds the store listing done while completing.
const completionTimeout = 2 * time.Second

// completePackageNames completes package arguments with the names stored in
// the configured package store. Names already on the command line are
// skipped. Any failure yields no suggestions.
func completePackageNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	ctx, cancel := context.WithTimeout(context.Background(), completionTimeout)
	defer cancel()

	st, err := config.CreateStore(ctx, cfg.Store)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	defer func() { _ = st.Close() }()

	names, err := st.ListPackages(ctx)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return filterCompletions(names, args, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// filterCompletions keeps the names starting with prefix that are not in used.
func filterCompletions(names, used []string, prefix string) []string {
	seen := make(map[string]bool, len(used))
	for _, u := range used {
		seen[u] = true
	}

	var out []string
	for _, name := range names {
		if seen[name] || !strings.HasPrefix(name, prefix) {
			continue
		}
		out = append(out, name)
	}
	return out
}
