package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/output"
)

// networksCmd is the parent command for network registry operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networksCmd = &cobra.Command{
	Use:     "networks",
	Short:   "Inspect supported networks",
	Long:    `Show the networks chainpay can pay on, including configuration overrides.`,
	GroupID: groupWallet,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var networksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List supported networks",
	Long: `List every network in the registry with its chain id, native currency and
the USDC and escrow contracts configured for it. A dash means the network has
no such contract.`,
	Example: `  chainpay networks list
  chainpay networks list -o json`,
	Args: cobra.NoArgs,
	RunE: runNetworksList,
}

// NetworkInfo is the JSON form of one registry entry.
type NetworkInfo struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	ChainID    uint64 `json:"chain_id"`
	ChainIDHex string `json:"chain_id_hex"`
	Symbol     string `json:"symbol"`
	RPCURL     string `json:"rpc_url"`
	Explorer   string `json:"explorer_url"`
	USDC       string `json:"usdc,omitempty"`
	Escrow     string `json:"escrow,omitempty"`
}

func networkInfo(d network.Descriptor) NetworkInfo {
	info := NetworkInfo{
		Slug:       d.Slug,
		Name:       d.Name,
		ChainID:    d.ChainID,
		ChainIDHex: d.ChainIDHex,
		Symbol:     d.NativeCurrency.Symbol,
		RPCURL:     d.RPCURL,
		Explorer:   d.BlockExplorerURL,
	}
	if d.HasUSDC() {
		info.USDC = d.USDCAddress.Hex()
	}
	if d.HasEscrow() {
		info.Escrow = d.EscrowAddress.Hex()
	}
	return info
}

func runNetworksList(_ *cobra.Command, _ []string) error {
	reg, err := cfg.Registry()
	if err != nil {
		return err
	}

	descs := reg.All()
	infos := make([]NetworkInfo, 0, len(descs))
	for _, d := range descs {
		infos = append(infos, networkInfo(d))
	}

	if formatter.IsJSON() {
		return formatter.Print(infos)
	}

	tbl := output.NewTable("NETWORK", "NAME", "CHAIN ID", "SYMBOL", "USDC", "ESCROW").AlignRight(2)
	for _, info := range infos {
		tbl.AddRow(info.Slug, info.Name, info.ChainIDHex, info.Symbol, dash(info.USDC), dash(info.Escrow))
	}
	return tbl.Render(formatter.Writer())
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	networksCmd.AddCommand(networksListCmd)
	rootCmd.AddCommand(networksCmd)
}
