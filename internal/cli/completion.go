package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "completion bash|zsh|fish|powershell",
		Short: "Generate shell completion scripts",
		Long: `Generate a shell completion script for domainlens and write it to stdout.

  bash:        source <(domainlens completion bash)
  zsh:         domainlens completion zsh > "${fpath[1]}/_domainlens"
  fish:        domainlens completion fish | source
  powershell:  domainlens completion powershell | Out-String | Invoke-Expression`,
		GroupID:               "utility",
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:             completionShells,
		DisableFlagsInUseLine: true,
		// buildDeps must not run during completion: it creates the config
		// file as a side effect.
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			root, w := cmd.Root(), cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(w, true)
			case "zsh":
				return root.GenZshCompletion(w)
			case "fish":
				return root.GenFishCompletion(w, true)
			case "powershell":
				return root.GenPowerShellCompletionWithDesc(w)
			default:
				return fmt.Errorf("unsupported shell %q", args[0])
			}
		},
	}
}
