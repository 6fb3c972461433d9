package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/wallet"
)

// walletCmd is the parent command for wallet session operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletCmd = &cobra.Command{
	Use:     "wallet",
	Short:   "Manage the wallet connection",
	Long:    `Connect the local signing wallet and inspect the session it exposes.`,
	GroupID: groupWallet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var walletConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Connect the wallet and show the session",
	Long: `Request account access from the wallet, as a site would on "Connect Wallet",
and print the connected account and network. With --network the wallet is
asked to switch there after connecting.`,
	Example: `  chainpay wallet connect
  chainpay wallet connect --network polygon -o json`,
	Args: cobra.NoArgs,
	RunE: runWalletConnect,
}

// SessionInfo is the JSON form of a wallet session.
type SessionInfo struct {
	Connected  bool   `json:"connected"`
	Account    string `json:"account,omitempty"`
	ChainID    uint64 `json:"chain_id,omitempty"`
	ChainIDHex string `json:"chain_id_hex,omitempty"`
	Network    string `json:"network,omitempty"`
	Supported  bool   `json:"supported"`
}

func sessionInfo(s wallet.Session, reg *network.Registry) SessionInfo {
	info := SessionInfo{Connected: s.Connected}
	if s.Account != nil {
		info.Account = s.Account.Hex()
	}
	if s.ChainID != nil {
		info.ChainID = *s.ChainID
		info.ChainIDHex = network.ToHex(*s.ChainID)
		if d, ok := reg.ByChainID(*s.ChainID); ok {
			info.Network = d.Name
			info.Supported = true
		}
	}
	return info
}

func runWalletConnect(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s, _, err := a.connectTarget(ctx)
	if err != nil {
		return err
	}
	return printSession(sessionInfo(s, a.registry))
}

func printSession(info SessionInfo) error {
	if formatter.IsJSON() {
		return formatter.Print(info)
	}
	_ = formatter.Printf("Account: %s\n", info.Account)
	return formatter.Printf("Network: %s (chain id %d, %s)\n", info.Network, info.ChainID, info.ChainIDHex)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	walletCmd.AddCommand(walletConnectCmd)
	rootCmd.AddCommand(walletCmd)
}
