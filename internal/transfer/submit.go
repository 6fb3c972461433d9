package transfer

import (
	"context"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/rpc"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// codeInsufficientFunds is the node error code for an unaffordable
// transaction.
const codeInsufficientFunds = -32000

type submission struct {
	kind  string
	from  common.Address
	to    common.Address
	value *big.Int
	data  []byte
	desc  network.Descriptor
}

// submit hands the transaction to the wallet once and waits for its
// receipt. Writes are never retried.
func (e *Engine) submit(ctx context.Context, s submission, rejected, reverted *payerr.PayError) (Result, error) {
	tx := provider.TxRequest{From: &s.from, To: &s.to}
	if s.value != nil {
		tx.Value = (*hexutil.Big)(s.value)
	}
	if len(s.data) > 0 {
		tx.Data = s.data
	}

	raw, err := e.wallet.Provider().Request(ctx, provider.MethodSendTransaction, tx)
	if err != nil {
		return Result{}, submitErr(err, rejected)
	}
	var hash common.Hash
	if err := json.Unmarshal(raw, &hash); err != nil {
		return Result{}, payerr.Wrap(err, "decoding transaction hash")
	}
	e.metrics.RecordTxSubmitted(s.kind, s.desc.ChainID)
	e.log.Debug("submitted %s transaction %s on %s", s.kind, hash.Hex(), s.desc.Name)

	start := time.Now()
	receipt, err := e.waitForReceipt(ctx, hash, s.desc)
	if err != nil {
		return Result{}, err
	}
	e.metrics.RecordTxConfirmed(s.kind, receipt.Succeeded(), time.Since(start))

	res := Result{
		Hash:        hash.Hex(),
		ExplorerURL: s.desc.TxURL(hash.Hex()),
		BlockNumber: uint64(receipt.BlockNumber),
		GasUsed:     uint64(receipt.GasUsed),
	}
	if !receipt.Succeeded() {
		return Result{}, payerr.WithDetails(reverted, map[string]string{
			"hash":     res.Hash,
			"explorer": res.ExplorerURL,
		})
	}
	return res, nil
}

func submitErr(err error, rejected *payerr.PayError) error {
	if provider.IsUserRejected(err) {
		return payerr.WithCause(rejected, err)
	}
	if code, ok := provider.ErrorCode(err); ok && code == codeInsufficientFunds &&
		strings.Contains(strings.ToLower(err.Error()), "insufficient funds") {
		return payerr.WithCause(payerr.ErrInsufficientBalance, err)
	}
	if code, ok := provider.ErrorCode(err); ok && code == provider.CodeUnauthorized {
		return payerr.WithCause(payerr.ErrNotConnected, err)
	}
	return payerr.Wrap(err, "submitting transaction")
}

// waitForReceipt polls until the transaction is mined or the confirm
// timeout passes. Poll errors are logged and polling continues.
func (e *Engine) waitForReceipt(ctx context.Context, hash common.Hash, desc network.Descriptor) (*rpc.Receipt, error) {
	var deadline <-chan time.Time
	if e.confirmTimeout > 0 {
		timer := time.NewTimer(e.confirmTimeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := e.wallet.Provider().Request(ctx, provider.MethodGetReceipt, hash)
		if err == nil {
			receipt, decodeErr := rpc.DecodeReceipt(raw)
			if decodeErr == nil && receipt != nil {
				return receipt, nil
			}
			err = decodeErr
		}
		if err != nil {
			e.log.Error("polling receipt for %s: %v", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, payerr.Wrap(ctx.Err(), "waiting for %s", hash.Hex())
		case <-deadline:
			return nil, payerr.WithDetails(payerr.ErrConfirmationTimeout, map[string]string{
				"hash":     hash.Hex(),
				"explorer": desc.TxURL(hash.Hex()),
			})
		case <-ticker.C:
		}
	}
}
