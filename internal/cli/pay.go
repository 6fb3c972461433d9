package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/payment"
	"github.com/mrz1836/chainpay/internal/transfer"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	payContractID string
	payTitle      string
	payAmount     string
	payCurrency   string
	payRecipient  string
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var payCmd = &cobra.Command{
	Use:   "pay",
	Short: "Pay a contract in the native currency or USDC",
	Long: `Run the payment flow for a marketplace contract: connect the wallet, move it
to the target network, check the balance and, for USDC, approve exactly the
payment amount before transferring it.

The recipient defaults to the network's escrow contract. Every step is shown
in the wallet for confirmation, and the command waits for the transaction to
confirm before printing its explorer link.`,
	Example: `  chainpay pay --contract c-1042 --title "Logo design" --amount 0.05
  chainpay pay --contract c-1042 --title "Logo design" --amount 250 --currency usdc --network polygon
  chainpay pay --contract c-7 --title "Audit" --amount 1 --to 0x52908400098527886E0F7030069857D2E4169EE7 -o json`,
	Args:    cobra.NoArgs,
	GroupID: groupPayment,
	RunE:    runPay,
}

//nolint:gocognit,gocyclo // Sequential payment steps read top to bottom
func runPay(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, 0)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	desc, err := a.target()
	if err != nil {
		return err
	}
	if _, err = a.manager.Connect(ctx); err != nil {
		return err
	}

	ctrl := payment.NewController(a.manager, a.oracle, a.engine,
		payment.WithLogger(logger),
		payment.WithAutoCloseDelay(0),
	)

	title := payTitle
	if title == "" {
		title = "Contract " + payContractID
	}

	var hash string
	req := payment.Request{
		ContractID:       payContractID,
		ContractTitle:    title,
		Amount:           payAmount,
		Currency:         payCurrency,
		RecipientAddress: payRecipient,
		OnPaymentSuccess: func(h string) { hash = h },
	}
	if err = ctrl.Open(ctx, req); err != nil {
		return err
	}
	defer ctrl.Close()

	if err = ctrl.SelectNetwork(ctx, desc.ChainID); err != nil {
		return err
	}

	v := ctrl.View()
	if chain.ParseAsset(payCurrency) == chain.AssetUSDC && v.Intent.Asset != chain.AssetUSDC {
		return payerr.WithSuggestion(
			payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{"network": desc.Name, "asset": "USDC"}),
			"pick a network with USDC or pay in "+desc.NativeCurrency.Symbol,
		)
	}
	if v.Intent.Recipient == nil {
		return payerr.WithDetails(payerr.ErrMisconfiguredRecipient, map[string]string{"network": desc.Name})
	}
	if v.HasInsufficientBalance {
		return insufficientErr(v)
	}

	if v.ShowApprovalStep {
		formatter.Notice("Step 1 of 2: approving %s USDC for %s...", v.Intent.Amount, v.Intent.Recipient.Hex())
		if err = ctrl.Approve(ctx); err != nil {
			return err
		}
		formatter.Notice("Step 2 of 2: sending payment...")
	} else {
		formatter.Notice("Sending payment, waiting for confirmation...")
	}

	before := ctrl.View()
	if err = ctrl.Pay(ctx); err != nil {
		return err
	}

	info := txInfo("pay", desc, before.Intent.Asset, before.Intent.Amount, *before.Intent.Recipient, transfer.Result{
		Hash:        hash,
		ExplorerURL: desc.TxURL(hash),
	})
	info.ContractID = payContractID
	return printTx(info)
}

// insufficientErr reports the cached balance against the requested amount.
func insufficientErr(v payment.View) error {
	available := v.NativeDisplay
	symbol := "native"
	if v.Intent.Network != nil {
		symbol = v.Intent.Network.NativeCurrency.Symbol
	}
	if v.Intent.Asset == chain.AssetUSDC {
		available, symbol = v.USDCDisplay, "USDC"
	}
	return payerr.WithDetails(payerr.ErrInsufficientBalance, map[string]string{
		"available": available,
		"required":  v.Intent.Amount,
		"asset":     symbol,
	})
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	payCmd.Flags().StringVar(&payContractID, "contract", "", "marketplace contract id (required)")
	payCmd.Flags().StringVar(&payTitle, "title", "", "contract title (default: \"Contract <id>\")")
	payCmd.Flags().StringVar(&payAmount, "amount", "", "amount to pay in human units (required)")
	payCmd.Flags().StringVar(&payCurrency, "currency", "", "usdc, or the native symbol (default: native)")
	payCmd.Flags().StringVar(&payRecipient, "to", "", "recipient address (default: network escrow contract)")
	_ = payCmd.MarkFlagRequired("contract")
	_ = payCmd.MarkFlagRequired("amount")
	rootCmd.AddCommand(payCmd)
}
