package cli

import (
	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var switchCmd = &cobra.Command{
	Use:   "switch <network>",
	Short: "Switch the wallet to another network",
	Long: `Ask the wallet to switch to a supported network. A wallet that does not know
the network is asked to add it with the registry's RPC endpoint, explorer and
native currency, then switch.

The network may be given by slug, display name or chain id.`,
	Example: `  chainpay switch polygon
  chainpay switch 0x2105
  chainpay switch "Arbitrum One" -o json`,
	Args:    cobra.ExactArgs(1),
	GroupID: groupWallet,
	RunE:    runSwitch,
}

func runSwitch(cmd *cobra.Command, args []string) error {
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	desc, err := a.registry.ByName(args[0])
	if err != nil {
		return err
	}

	s, err := a.connect(ctx, desc)
	if err != nil {
		return err
	}
	return printSession(sessionInfo(s, a.registry))
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(switchCmd)
}
