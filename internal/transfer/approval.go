package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// CheckAllowance returns the USDC amount spender may draw from owner on
// desc's chain as a decimal string. A failed query reads as "0".
func (e *Engine) CheckAllowance(ctx context.Context, owner, spender common.Address, desc network.Descriptor) (string, error) {
	units, decimals, err := e.allowance(ctx, owner, spender, desc)
	if err != nil {
		return "", err
	}
	return chain.FormatDecimalAmount(units, int(decimals)), nil
}

// allowance reads the raw allowance. Only a network without USDC is an
// error; read failures are logged and count as zero.
func (e *Engine) allowance(ctx context.Context, owner, spender common.Address, desc network.Descriptor) (*big.Int, uint8, error) {
	if !desc.HasUSDC() {
		return nil, 0, payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"network": desc.Name,
			"reason":  "USDC is not available on this network",
		})
	}
	if e.wallet.Provider() == nil {
		return nil, 0, payerr.ErrWalletNotFound
	}

	prev := e.enterCheck()
	defer e.leaveCheck(prev)

	decimals, err := e.TokenDecimals(ctx, desc)
	if err != nil {
		e.log.Error("allowance check on %s: %v", desc.Name, err)
		return new(big.Int), 0, nil
	}
	units, err := e.tokens().Allowance(ctx, *desc.USDCAddress, owner, spender)
	if err != nil {
		e.log.Error("allowance check on %s: %v", desc.Name, err)
		return new(big.Int), decimals, nil
	}
	return units, decimals, nil
}

// enterCheck moves an idle engine into checkingAllowance and returns the
// state to restore. A busy engine keeps its state.
func (e *Engine) enterCheck() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.state
	if !e.busy {
		e.state = StateCheckingAllowance
	}
	return prev
}

func (e *Engine) leaveCheck(prev State) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.busy {
		e.state = prev
	}
}

// NeedsApproval reports whether the intent's token payment needs an
// approval first. Native payments never do. The allowance is read again on
// every call, except that an approval this engine saw confirmed for the
// same owner, spender and token covers up to the approved amount.
func (e *Engine) NeedsApproval(ctx context.Context, intent Intent) (bool, error) {
	if intent.Asset != chain.AssetUSDC {
		return false, nil
	}

	amount, _, err := e.tokenUnits(ctx, intent.Amount, intent.Network)
	if err != nil {
		return false, err
	}

	key := approvalKey{
		owner:   intent.Owner,
		spender: intent.Recipient,
		chainID: intent.Network.ChainID,
		token:   *intent.Network.USDCAddress,
	}
	e.mu.Lock()
	approved := e.confirmed[key]
	e.mu.Unlock()
	if approved != nil && approved.Cmp(amount) >= 0 {
		return false, nil
	}

	allowance, _, err := e.allowance(ctx, intent.Owner, intent.Recipient, intent.Network)
	if err != nil {
		return false, err
	}
	return allowance.Cmp(amount) < 0, nil
}

// Approve submits an approval of exactly amount USDC for spender and waits
// for it to confirm.
func (e *Engine) Approve(ctx context.Context, spender common.Address, amount string, desc network.Descriptor) (Result, error) {
	if err := e.begin(StateApproving); err != nil {
		return Result{}, err
	}
	res, err := e.approve(ctx, spender, amount, desc)
	e.finish(err)
	return res, err
}

func (e *Engine) approve(ctx context.Context, spender common.Address, amount string, desc network.Descriptor) (Result, error) {
	owner, err := e.account(desc)
	if err != nil {
		return Result{}, err
	}
	if spender == (common.Address{}) {
		return Result{}, payerr.ErrMisconfiguredRecipient
	}
	units, _, err := e.tokenUnits(ctx, amount, desc)
	if err != nil {
		return Result{}, err
	}

	token := *desc.USDCAddress
	e.log.Debug("approving %s USDC for %s on %s", amount, spender.Hex(), desc.Name)
	res, err := e.submit(ctx, submission{
		kind: metrics.TxApprove,
		from: owner,
		to:   token,
		data: erc20.PackApprove(spender, units),
		desc: desc,
	}, payerr.ErrApprovalRejected, payerr.ErrApprovalReverted)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	e.confirmed[approvalKey{owner: owner, spender: spender, chainID: desc.ChainID, token: token}] = units
	e.mu.Unlock()
	return res, nil
}
