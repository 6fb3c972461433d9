package transfer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// PayNative sends amount of desc's native currency to recipient and waits
// for one confirmation.
func (e *Engine) PayNative(ctx context.Context, recipient common.Address, amount string, desc network.Descriptor) (Result, error) {
	if err := e.begin(StatePaying); err != nil {
		return Result{}, err
	}
	res, err := e.payNative(ctx, recipient, amount, desc)
	e.finish(err)
	return res, err
}

func (e *Engine) payNative(ctx context.Context, recipient common.Address, amount string, desc network.Descriptor) (Result, error) {
	from, err := e.account(desc)
	if err != nil {
		return Result{}, err
	}
	if recipient == (common.Address{}) {
		return Result{}, payerr.ErrMisconfiguredRecipient
	}
	decimals := int(desc.NativeCurrency.Decimals)
	value, err := baseUnits(amount, decimals)
	if err != nil {
		return Result{}, err
	}

	balance, err := e.nativeBalance(ctx, from)
	if err != nil {
		return Result{}, payerr.Wrap(err, "reading %s balance", desc.NativeCurrency.Symbol)
	}
	if balance.Cmp(value) < 0 {
		return Result{}, insufficient(chain.FormatDecimalAmount(balance, decimals), amount, desc.NativeCurrency.Symbol)
	}

	e.log.Debug("paying %s %s to %s on %s", amount, desc.NativeCurrency.Symbol, recipient.Hex(), desc.Name)
	res, err := e.submit(ctx, submission{
		kind:  metrics.TxNative,
		from:  from,
		to:    recipient,
		value: value,
		desc:  desc,
	}, payerr.ErrUserRejected, payerr.ErrTransactionReverted)
	if err != nil {
		return Result{}, err
	}
	e.afterPayment(ctx, from, desc)
	return res, nil
}

// PayToken transfers amount USDC to recipient. The recipient's allowance
// must already cover amount; otherwise nothing is submitted.
func (e *Engine) PayToken(ctx context.Context, recipient common.Address, amount string, desc network.Descriptor) (Result, error) {
	if err := e.begin(StatePaying); err != nil {
		return Result{}, err
	}
	res, err := e.payToken(ctx, recipient, amount, desc)
	e.finish(err)
	return res, err
}

func (e *Engine) payToken(ctx context.Context, recipient common.Address, amount string, desc network.Descriptor) (Result, error) {
	from, err := e.account(desc)
	if err != nil {
		return Result{}, err
	}
	if recipient == (common.Address{}) {
		return Result{}, payerr.ErrMisconfiguredRecipient
	}
	units, decimals, err := e.tokenUnits(ctx, amount, desc)
	if err != nil {
		return Result{}, err
	}

	needs, err := e.NeedsApproval(ctx, Intent{
		Owner:     from,
		Recipient: recipient,
		Amount:    amount,
		Asset:     chain.AssetUSDC,
		Network:   desc,
	})
	if err != nil {
		return Result{}, err
	}
	if needs {
		return Result{}, payerr.WithDetails(payerr.ErrApprovalRequired, map[string]string{
			"amount":  amount,
			"spender": recipient.Hex(),
		})
	}

	token := *desc.USDCAddress
	balance, err := e.tokens().BalanceOf(ctx, token, from)
	if err != nil {
		return Result{}, payerr.Wrap(err, "reading USDC balance")
	}
	if balance.Cmp(units) < 0 {
		return Result{}, insufficient(chain.FormatDecimalAmount(balance, int(decimals)), amount, "USDC")
	}

	e.log.Debug("paying %s USDC to %s on %s", amount, recipient.Hex(), desc.Name)
	res, err := e.submit(ctx, submission{
		kind: metrics.TxToken,
		from: from,
		to:   token,
		data: erc20.PackTransfer(recipient, units),
		desc: desc,
	}, payerr.ErrUserRejected, payerr.ErrTransactionReverted)
	if err != nil {
		return Result{}, err
	}

	e.mu.Lock()
	delete(e.confirmed, approvalKey{owner: from, spender: recipient, chainID: desc.ChainID, token: token})
	e.mu.Unlock()

	e.afterPayment(ctx, from, desc)
	return res, nil
}

func (e *Engine) afterPayment(ctx context.Context, account common.Address, desc network.Descriptor) {
	if e.refresh == nil {
		return
	}
	if err := e.refresh(ctx, account, desc); err != nil {
		e.log.Error("refreshing balances after payment: %v", err)
	}
}

func (e *Engine) nativeBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	raw, err := e.wallet.Provider().Request(ctx, provider.MethodGetBalance, account, "latest")
	if err != nil {
		return nil, err
	}
	var wei hexutil.Big
	if err := json.Unmarshal(raw, &wei); err != nil {
		return nil, payerr.Wrap(err, "decoding balance")
	}
	return wei.ToInt(), nil
}

func insufficient(available, required, symbol string) error {
	return payerr.WithDetails(payerr.ErrInsufficientBalance, map[string]string{
		"available": available + " " + symbol,
		"required":  required + " " + symbol,
	})
}
