package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/output"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceExact bool

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show native and USDC balances",
	Long: `Connect the wallet and read the account's native currency balance and, on
networks with USDC, its USDC balance. Balances are rounded to four decimals;
amounts too small to show read "< 0.0001".`,
	Example: `  chainpay balance
  chainpay balance --network base --exact
  chainpay balance -o json`,
	Args:    cobra.NoArgs,
	GroupID: groupPayment,
	RunE:    runBalance,
}

// BalanceInfo is the JSON form of a balance read.
type BalanceInfo struct {
	Account       string    `json:"account"`
	Network       string    `json:"network"`
	ChainID       uint64    `json:"chain_id"`
	Symbol        string    `json:"symbol"`
	Native        string    `json:"native"`
	NativeDisplay string    `json:"native_display"`
	USDC          string    `json:"usdc,omitempty"`
	USDCDisplay   string    `json:"usdc_display,omitempty"`
	FetchedAt     time.Time `json:"fetched_at"`
}

func runBalance(cmd *cobra.Command, _ []string) error {
	ctx, cancel := contextWithTimeout(cmd, readTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	stop := a.oracle.Watch(a.manager)
	defer stop()

	s, desc, err := a.connectTarget(ctx)
	if err != nil {
		return err
	}

	// The watcher has already fetched balances for the session unless its
	// refresh failed
	snap, ok := a.oracle.Snapshot()
	if !ok || snap.Account != *s.Account || snap.ChainID != desc.ChainID {
		if snap, err = a.oracle.Refresh(ctx, *s.Account, desc); err != nil {
			return err
		}
	}

	info := BalanceInfo{
		Account:       snap.Account.Hex(),
		Network:       desc.Name,
		ChainID:       snap.ChainID,
		Symbol:        desc.NativeCurrency.Symbol,
		Native:        snap.Native,
		NativeDisplay: balance.FormatBalance(snap.Native),
		FetchedAt:     snap.FetchedAt,
	}
	if snap.HasUSDC {
		info.USDC = snap.USDC
		info.USDCDisplay = balance.FormatBalance(snap.USDC)
	}

	if formatter.IsJSON() {
		return formatter.Print(info)
	}

	native, usdc := info.NativeDisplay, info.USDCDisplay
	if balanceExact {
		native, usdc = info.Native, info.USDC
	}
	tbl := output.NewTable("ASSET", "BALANCE").AlignRight(1)
	tbl.AddRow(info.Symbol, native)
	if snap.HasUSDC {
		tbl.AddRow("USDC", usdc)
	}
	_ = formatter.Printf("%s on %s\n\n", info.Account, info.Network)
	return tbl.Render(formatter.Writer())
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	balanceCmd.Flags().BoolVar(&balanceExact, "exact", false, "show full precision instead of four decimals")
	rootCmd.AddCommand(balanceCmd)
}
