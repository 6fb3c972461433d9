package cli

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/transfer"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	tokenSpender string
	tokenAmount  string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var allowanceCmd = &cobra.Command{
	Use:   "allowance",
	Short: "Show the USDC allowance granted to a spender",
	Long: `Read how much USDC the connected account has approved a spender to draw.
The spender defaults to the network's escrow contract. A failed read reports
zero.`,
	Example: `  chainpay allowance
  chainpay allowance --spender 0x52908400098527886E0F7030069857D2E4169EE7 --network base`,
	Args:    cobra.NoArgs,
	GroupID: groupPayment,
	RunE:    runAllowance,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a spender to draw exactly an amount of USDC",
	Long: `Submit an ERC-20 approval for exactly --amount USDC and wait for it to
confirm. The spender defaults to the network's escrow contract. The wallet
shows the approval for confirmation before anything is signed.`,
	Example: `  chainpay approve --amount 250
  chainpay approve --amount 1.5 --spender 0x52908400098527886E0F7030069857D2E4169EE7 --yes`,
	Args:    cobra.NoArgs,
	GroupID: groupPayment,
	RunE:    runApprove,
}

// AllowanceInfo is the JSON form of an allowance read.
type AllowanceInfo struct {
	Owner     string `json:"owner"`
	Spender   string `json:"spender"`
	Network   string `json:"network"`
	Allowance string `json:"allowance"`
}

// TxInfo is the JSON form of a confirmed transaction.
type TxInfo struct {
	Kind        string `json:"kind"`
	Network     string `json:"network"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
	To          string `json:"to"`
	Hash        string `json:"hash"`
	ExplorerURL string `json:"explorer_url"`
	BlockNumber uint64 `json:"block_number,omitempty"`
	GasUsed     uint64 `json:"gas_used,omitempty"`
	ContractID  string `json:"contract_id,omitempty"`
}

// resolveSpender parses --spender or falls back to the escrow contract.
func resolveSpender(desc network.Descriptor) (common.Address, error) {
	if tokenSpender != "" {
		addr, err := chain.ParseAddress(tokenSpender)
		if err != nil {
			return common.Address{}, err
		}
		if addr == (common.Address{}) {
			return common.Address{}, payerr.ErrMisconfiguredRecipient
		}
		return addr, nil
	}
	if !desc.HasEscrow() {
		return common.Address{}, payerr.WithDetails(payerr.ErrMisconfiguredRecipient, map[string]string{
			"network": desc.Name,
		})
	}
	return *desc.EscrowAddress, nil
}

func runAllowance(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	s, desc, err := a.connectTarget(ctx)
	if err != nil {
		return err
	}
	spender, err := resolveSpender(desc)
	if err != nil {
		return err
	}

	allowance, err := a.engine.CheckAllowance(ctx, *s.Account, spender, desc)
	if err != nil {
		return err
	}

	info := AllowanceInfo{
		Owner:     s.Account.Hex(),
		Spender:   spender.Hex(),
		Network:   desc.Name,
		Allowance: allowance,
	}
	if formatter.IsJSON() {
		return formatter.Print(info)
	}
	return formatter.Printf("%s USDC approved for %s on %s\n", info.Allowance, info.Spender, info.Network)
}

func runApprove(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, 0)
	defer cancel()

	if tokenAmount == "" {
		return payerr.WithSuggestion(payerr.ErrInvalidAmount, "pass --amount")
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	_, desc, err := a.connectTarget(ctx)
	if err != nil {
		return err
	}
	spender, err := resolveSpender(desc)
	if err != nil {
		return err
	}

	formatter.Notice("Approving %s USDC for %s, waiting for confirmation...", tokenAmount, spender.Hex())
	res, err := a.engine.Approve(ctx, spender, tokenAmount, desc)
	if err != nil {
		return err
	}
	return printTx(txInfo("approve", desc, chain.AssetUSDC, tokenAmount, spender, res))
}

func txInfo(kind string, desc network.Descriptor, asset chain.Asset, amount string, to common.Address, res transfer.Result) TxInfo {
	symbol := desc.NativeCurrency.Symbol
	if asset == chain.AssetUSDC {
		symbol = "USDC"
	}
	return TxInfo{
		Kind:        kind,
		Network:     desc.Name,
		Asset:       symbol,
		Amount:      amount,
		To:          to.Hex(),
		Hash:        res.Hash,
		ExplorerURL: res.ExplorerURL,
		BlockNumber: res.BlockNumber,
		GasUsed:     res.GasUsed,
	}
}

func printTx(info TxInfo) error {
	if formatter.IsJSON() {
		return formatter.Print(info)
	}
	switch info.Kind {
	case "approve":
		_ = formatter.Printf("Approved %s %s for %s on %s\n", info.Amount, info.Asset, info.To, info.Network)
	default:
		_ = formatter.Printf("Paid %s %s to %s on %s\n", info.Amount, info.Asset, info.To, info.Network)
	}
	_ = formatter.Printf("Transaction: %s\n", info.Hash)
	return formatter.Printf("Explorer:    %s\n", info.ExplorerURL)
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	allowanceCmd.Flags().StringVar(&tokenSpender, "spender", "", "spender address (default: network escrow contract)")
	approveCmd.Flags().StringVar(&tokenSpender, "spender", "", "spender address (default: network escrow contract)")
	approveCmd.Flags().StringVar(&tokenAmount, "amount", "", "exact USDC amount to approve")
	rootCmd.AddCommand(allowanceCmd, approveCmd)
}
