package payment

import (
	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/chain"
)

// View is a read-only rendering of the flow.
type View struct {
	Open          bool
	ContractID    string
	ContractTitle string
	Intent        Intent

	Balances    balance.Snapshot
	HasBalances bool
	// Display strings for Balances.
	NativeDisplay string
	USDCDisplay   string

	HasInsufficientBalance bool
	ShowApprovalStep       bool
	CanApprove             bool
	CanPay                 bool
	IsApproving            bool
	IsPaying               bool
	IsLoading              bool

	// Err is the most recent failure, if any.
	Err         error
	ExplorerURL string
	Closed      bool
}

// View renders the current state.
func (c *Controller) View() View {
	s := c.wallet.Session()

	c.mu.Lock()
	v := View{
		Open:          c.open,
		ContractID:    c.req.ContractID,
		ContractTitle: c.req.ContractTitle,
		Intent:        c.intent,
		IsApproving:   c.approving,
		IsPaying:      c.paying,
		IsLoading:     c.loading > 0,
		Err:           c.err,
		ExplorerURL:   c.explorer,
		Closed:        c.closed && !c.open,
	}
	c.mu.Unlock()

	if v.Intent.Network != nil {
		d := *v.Intent.Network
		v.Intent.Network = &d
	}
	if v.Intent.Recipient != nil {
		r := *v.Intent.Recipient
		v.Intent.Recipient = &r
	}

	if c.oracle != nil {
		if snap, ok := c.oracle.Snapshot(); ok && v.Intent.Network != nil && snap.ChainID == v.Intent.Network.ChainID {
			v.Balances = snap
			v.HasBalances = true
			v.NativeDisplay = balance.FormatBalance(snap.Native)
			v.USDCDisplay = balance.FormatBalance(snap.USDC)
		}
	}

	if !v.Open {
		return v
	}

	_, amountErr := parseAmount(v.Intent.Amount)
	v.HasInsufficientBalance = c.insufficient(v.Intent)
	busy := v.IsApproving || v.IsPaying
	ready := s.Connected && v.Intent.Network != nil && !chain.IsZeroAddress(v.Intent.Recipient) &&
		amountErr == nil && v.Intent.Status != StatusSucceeded && !busy

	v.ShowApprovalStep = v.Intent.Asset == chain.AssetUSDC && v.Intent.NeedsApproval
	v.CanApprove = v.ShowApprovalStep && ready
	v.CanPay = ready && !v.HasInsufficientBalance && !v.ShowApprovalStep
	return v
}
