package provider

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/rpc"
)

const (
	// gasBufferPercent pads node gas estimates.
	gasBufferPercent = 20
	// fallbackTip is used when the node has no eth_maxPriorityFeePerGas.
	fallbackTip = 1_500_000_000
)

// Backend is the node connection a SoftwareWallet signs against.
type Backend interface {
	Call(ctx context.Context, method string, params ...any) (json.RawMessage, error)
	GetTransactionCount(ctx context.Context, address common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg rpc.CallMsg) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	MaxPriorityFeePerGas(ctx context.Context) (*big.Int, error)
	BaseFee(ctx context.Context) (*big.Int, error)
	SendRawTransaction(ctx context.Context, signedTx []byte) (common.Hash, error)
}

// Dialer opens a Backend for a chain endpoint.
type Dialer func(chainID uint64, rpcURL string) Backend

// DialRPC is the default Dialer.
func DialRPC(opts ...rpc.Option) Dialer {
	return func(chainID uint64, rpcURL string) Backend {
		return rpc.NewClient(rpcURL, append([]rpc.Option{rpc.WithChainID(chainID)}, opts...)...)
	}
}

// forwarded lists read methods passed straight to the node.
//
//nolint:gochecknoglobals // Immutable lookup table
var forwarded = map[string]bool{
	MethodGetBalance:           true,
	MethodCall:                 true,
	MethodGetReceipt:           true,
	"eth_blockNumber":          true,
	"eth_estimateGas":          true,
	"eth_gasPrice":             true,
	"eth_getTransactionCount":  true,
	"eth_maxPriorityFeePerGas": true,
	"eth_getBlockByNumber":     true,
}

// SoftwareWallet is an EIP-1193 provider backed by one local key.
type SoftwareWallet struct {
	Emitter

	key     *ecdsa.PrivateKey
	address common.Address
	consent Consent
	dial    Dialer

	mu        sync.Mutex
	chains    map[uint64]string
	active    uint64
	backend   Backend
	permitted bool
	nonces    map[uint64]uint64
}

// WalletOption configures a SoftwareWallet.
type WalletOption func(*SoftwareWallet)

// WithDialer overrides how node connections are opened.
func WithDialer(d Dialer) WalletOption {
	return func(w *SoftwareWallet) { w.dial = d }
}

// WithChain marks an extra chain as known to the wallet.
func WithChain(chainID uint64, rpcURL string) WalletOption {
	return func(w *SoftwareWallet) { w.chains[chainID] = rpcURL }
}

// NewSoftwareWallet creates a wallet connected to chainID at rpcURL.
func NewSoftwareWallet(key *ecdsa.PrivateKey, consent Consent, chainID uint64, rpcURL string, opts ...WalletOption) *SoftwareWallet {
	if consent == nil {
		consent = DenyAll
	}
	w := &SoftwareWallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
		consent: consent,
		dial:    DialRPC(),
		chains:  map[uint64]string{chainID: rpcURL},
		active:  chainID,
		nonces:  make(map[uint64]uint64),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.backend = w.dial(chainID, rpcURL)
	return w
}

// Address returns the wallet's account.
func (w *SoftwareWallet) Address() common.Address {
	return w.address
}

// ChainID returns the active chain.
func (w *SoftwareWallet) ChainID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Lock revokes account access and emits accountsChanged([]).
func (w *SoftwareWallet) Lock() {
	w.mu.Lock()
	was := w.permitted
	w.permitted = false
	w.mu.Unlock()

	if was {
		w.EmitAccountsChanged([]common.Address{})
	}
}

// Request implements Provider.
func (w *SoftwareWallet) Request(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	switch method {
	case MethodChainID:
		return marshal(hexutil.EncodeUint64(w.ChainID()))
	case MethodAccounts:
		return marshal(w.accounts())
	case MethodRequestAccounts:
		return w.requestAccounts(ctx)
	case MethodSwitchChain:
		return w.switchChain(params)
	case MethodAddChain:
		return w.addChain(ctx, params)
	case MethodSendTransaction:
		return w.sendTransaction(ctx, params)
	}

	if forwarded[method] {
		w.mu.Lock()
		backend := w.backend
		w.mu.Unlock()

		result, err := backend.Call(ctx, method, params...)
		return result, translate(err)
	}

	return nil, NewError(CodeUnsupportedMethod, "unsupported method "+method)
}

func (w *SoftwareWallet) accounts() []common.Address {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.permitted {
		return []common.Address{}
	}
	return []common.Address{w.address}
}

func (w *SoftwareWallet) requestAccounts(ctx context.Context) (json.RawMessage, error) {
	w.mu.Lock()
	permitted := w.permitted
	chainID := w.active
	w.mu.Unlock()

	if !permitted {
		ok, err := w.consent.Confirm(ctx, Prompt{Kind: PromptConnect, Account: w.address, ChainID: chainID})
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(CodeUserRejected, "user rejected the request")
		}
		w.mu.Lock()
		w.permitted = true
		w.mu.Unlock()
	}
	return marshal([]common.Address{w.address})
}

func (w *SoftwareWallet) switchChain(params []any) (json.RawMessage, error) {
	var p SwitchChainParams
	if err := DecodeParam(params, 0, &p); err != nil {
		return nil, err
	}
	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return nil, NewError(CodeInternal, "invalid chainId "+p.ChainID)
	}

	w.mu.Lock()
	url, known := w.chains[id]
	if !known {
		w.mu.Unlock()
		return nil, NewError(CodeUnrecognizedChain, "unrecognized chain id "+p.ChainID)
	}
	if id == w.active {
		w.mu.Unlock()
		return marshal(nil)
	}
	w.active = id
	w.backend = w.dial(id, url)
	w.mu.Unlock()

	w.EmitChainChanged(hexutil.EncodeUint64(id))
	return marshal(nil)
}

// addChainParams mirrors the wallet_addEthereumChain object.
type addChainParams struct {
	ChainID        string   `json:"chainId"`
	ChainName      string   `json:"chainName"`
	RPCURLs        []string `json:"rpcUrls"`
	BlockExplorers []string `json:"blockExplorerUrls"`
}

func (w *SoftwareWallet) addChain(ctx context.Context, params []any) (json.RawMessage, error) {
	var p addChainParams
	if err := DecodeParam(params, 0, &p); err != nil {
		return nil, err
	}
	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return nil, NewError(CodeInternal, "invalid chainId "+p.ChainID)
	}
	if len(p.RPCURLs) == 0 || p.RPCURLs[0] == "" {
		return nil, NewError(CodeInternal, "rpcUrls is required")
	}

	ok, err := w.consent.Confirm(ctx, Prompt{Kind: PromptAddChain, Account: w.address, ChainID: id, ChainName: p.ChainName})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewError(CodeUserRejected, "user rejected the request")
	}

	w.mu.Lock()
	w.chains[id] = p.RPCURLs[0]
	w.mu.Unlock()

	return w.switchChain([]any{SwitchChainParams{ChainID: p.ChainID}})
}

func (w *SoftwareWallet) sendTransaction(ctx context.Context, params []any) (json.RawMessage, error) {
	var req TxRequest
	if err := DecodeParam(params, 0, &req); err != nil {
		return nil, err
	}

	w.mu.Lock()
	permitted := w.permitted
	chainID := w.active
	backend := w.backend
	w.mu.Unlock()

	if !permitted {
		return nil, NewError(CodeUnauthorized, "account access not granted")
	}
	if req.From != nil && *req.From != w.address {
		return nil, NewError(CodeUnauthorized, "unknown sender "+req.From.Hex())
	}

	tx, err := w.buildTx(ctx, backend, chainID, req)
	if err != nil {
		return nil, translate(err)
	}

	fee := new(big.Int).Mul(tx.GasFeeCap(), new(big.Int).SetUint64(tx.Gas()))
	ok, err := w.consent.Confirm(ctx, Prompt{
		Kind:    PromptSendTransaction,
		Account: w.address,
		ChainID: chainID,
		To:      tx.To(),
		Value:   tx.Value(),
		Data:    tx.Data(),
		Fee:     fee,
	})
	if err != nil || !ok {
		w.resetNonce(chainID)
		if err != nil {
			return nil, err
		}
		return nil, NewError(CodeUserRejected, "user rejected the transaction")
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(new(big.Int).SetUint64(chainID)), w.key)
	if err != nil {
		w.resetNonce(chainID)
		return nil, NewError(CodeInternal, "signing transaction: "+err.Error())
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		w.resetNonce(chainID)
		return nil, NewError(CodeInternal, "encoding transaction: "+err.Error())
	}

	hash, err := backend.SendRawTransaction(ctx, raw)
	if err != nil {
		w.resetNonce(chainID)
		return nil, translate(err)
	}
	return marshal(hash)
}

func (w *SoftwareWallet) buildTx(ctx context.Context, backend Backend, chainID uint64, req TxRequest) (*types.Transaction, error) {
	value := new(big.Int)
	if req.Value != nil {
		value = req.Value.ToInt()
	}

	pending, err := backend.GetTransactionCount(ctx, w.address)
	if err != nil {
		return nil, err
	}
	nonce := w.nextNonce(chainID, pending)

	var gas uint64
	if req.Gas != nil {
		gas = uint64(*req.Gas)
	} else {
		from := w.address
		estimate, estErr := backend.EstimateGas(ctx, rpc.CallMsg{From: &from, To: req.To, Value: value, Data: req.Data})
		if estErr != nil {
			w.resetNonce(chainID)
			return nil, estErr
		}
		gas = estimate + estimate*gasBufferPercent/100
	}

	baseFee, err := backend.BaseFee(ctx)
	if err != nil {
		w.resetNonce(chainID)
		return nil, err
	}

	if baseFee == nil {
		gasPrice, gpErr := backend.GasPrice(ctx)
		if gpErr != nil {
			w.resetNonce(chainID)
			return nil, gpErr
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       req.To,
			Value:    value,
			Gas:      gas,
			GasPrice: gasPrice,
			Data:     req.Data,
		}), nil
	}

	tip, err := backend.MaxPriorityFeePerGas(ctx)
	if err != nil || tip == nil {
		tip = big.NewInt(fallbackTip)
	}
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tip)

	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chainID),
		Nonce:     nonce,
		To:        req.To,
		Value:     value,
		Gas:       gas,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Data:      req.Data,
	}), nil
}

// nextNonce returns the higher of the node's pending nonce and the locally
// tracked one, so back-to-back sends do not collide.
func (w *SoftwareWallet) nextNonce(chainID, pending uint64) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	nonce := pending
	if local, ok := w.nonces[chainID]; ok && local > pending {
		nonce = local
	}
	w.nonces[chainID] = nonce + 1
	return nonce
}

func (w *SoftwareWallet) resetNonce(chainID uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.nonces, chainID)
}

// translate converts node errors into provider errors.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var ne *rpc.Error
	if errors.As(err, &ne) {
		pe := &RPCError{Code: ne.Code, Message: ne.Message}
		if len(ne.Data) > 0 {
			pe.Data = ne.Data
		}
		return pe
	}
	return err
}

func marshal(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, NewError(CodeInternal, err.Error())
	}
	return raw, nil
}
