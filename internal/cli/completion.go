package cli

import (
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:     "completion [bash|zsh|fish|powershell]",
	Short:   "Generate shell completion script",
	GroupID: groupConfig,
	Long: `Generate shell completion scripts for chainpay.

To load completions:

Bash:
  $ source <(chainpay completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ chainpay completion bash > /etc/bash_completion.d/chainpay
  # macOS:
  $ chainpay completion bash > $(brew --prefix)/etc/bash_completion.d/chainpay

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ chainpay completion zsh > "${fpath[1]}/_chainpay"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ chainpay completion fish | source

  # To load completions for each session, execute once:
  $ chainpay completion fish > ~/.config/fish/completions/chainpay.fish

PowerShell:
  PS> chainpay completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> chainpay completion powershell > chainpay.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	Example:               "  chainpay completion zsh > \"${fpath[1]}/_chainpay\"",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletionV2(cmd.OutOrStdout(), true)
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)
}
