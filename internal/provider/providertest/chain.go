// Package providertest provides an in-memory EIP-1193 wallet and chain for
// tests of code built on the provider package.
package providertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/erc20"
	"github.com/mrz1836/chainpay/internal/provider"
)

// DefaultGasUsed is charged for every transaction.
const DefaultGasUsed = 21000

// DefaultGasPrice is the gas price in wei used to compute fees.
const DefaultGasPrice = 1_000_000_000

// Token is a simulated ERC-20 contract.
type Token struct {
	Decimals   uint8
	Symbol     string
	balances   map[common.Address]*big.Int
	allowances map[[2]common.Address]*big.Int
}

// Request is one recorded provider call.
type Request struct {
	Method string
	Params []any
}

// Sent is one transaction accepted by the wallet.
type Sent struct {
	Hash    common.Hash
	ChainID uint64
	Tx      provider.TxRequest
	Call    *erc20.Call
	Status  uint64
}

type receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Chain is a fake wallet connected to a fake multi-chain world.
// The zero value is not usable; call New.
type Chain struct {
	provider.Emitter

	mu          sync.Mutex
	chainID     uint64
	known       map[uint64]bool
	accounts    []common.Address
	permitted   bool
	native      map[uint64]map[common.Address]*big.Int
	tokens      map[uint64]map[common.Address]*Token
	receipts    map[common.Hash]receipt
	pending     map[common.Hash]int
	requests    []Request
	sent        []Sent
	reject      map[string]int
	fail        map[string]error
	revertNext  int
	pendingPoll int
	block       uint64
	nonce       uint64
}

// New creates a chain on chainID with the given wallet accounts.
func New(chainID uint64, accounts ...common.Address) *Chain {
	return &Chain{
		chainID:  chainID,
		known:    map[uint64]bool{chainID: true},
		accounts: accounts,
		native:   make(map[uint64]map[common.Address]*big.Int),
		tokens:   make(map[uint64]map[common.Address]*Token),
		receipts: make(map[common.Hash]receipt),
		pending:  make(map[common.Hash]int),
		reject:   make(map[string]int),
		fail:     make(map[string]error),
		block:    100,
	}
}

// AddKnownChain makes a chain switchable without add-chain.
func (c *Chain) AddKnownChain(chainID uint64) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.known[chainID] = true
	return c
}

// SetNative sets an account's native balance on a chain.
func (c *Chain) SetNative(chainID uint64, account common.Address, wei *big.Int) *Chain {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nativeLocked(chainID)[account] = new(big.Int).Set(wei)
	return c
}

// Native returns an account's native balance on a chain.
func (c *Chain) Native(chainID uint64, account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.balanceLocked(chainID, account))
}

// AddToken deploys a token contract on a chain.
func (c *Chain) AddToken(chainID uint64, address common.Address, decimals uint8, symbol string) *Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens[chainID] == nil {
		c.tokens[chainID] = make(map[common.Address]*Token)
	}
	t := &Token{
		Decimals:   decimals,
		Symbol:     symbol,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[[2]common.Address]*big.Int),
	}
	c.tokens[chainID][address] = t
	return t
}

// SetBalance sets a token balance.
func (t *Token) SetBalance(account common.Address, amount *big.Int) *Token {
	t.balances[account] = new(big.Int).Set(amount)
	return t
}

// SetAllowance sets an allowance.
func (t *Token) SetAllowance(owner, spender common.Address, amount *big.Int) *Token {
	t.allowances[[2]common.Address{owner, spender}] = new(big.Int).Set(amount)
	return t
}

// TokenBalance returns a token balance.
func (c *Chain) TokenBalance(chainID uint64, token, account common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.tokens[chainID][token]
	if t == nil || t.balances[account] == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(t.balances[account])
}

// TokenAllowance returns an allowance.
func (c *Chain) TokenAllowance(chainID uint64, token, owner, spender common.Address) *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.tokens[chainID][token]
	if t == nil {
		return new(big.Int)
	}
	if a := t.allowances[[2]common.Address{owner, spender}]; a != nil {
		return new(big.Int).Set(a)
	}
	return new(big.Int)
}

// RejectNext makes the next call to method fail with 4001.
func (c *Chain) RejectNext(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reject[method]++
}

// FailNext makes the next call to method fail with err.
func (c *Chain) FailNext(method string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[method] = err
}

// RevertNext makes the next submitted transaction revert on chain.
func (c *Chain) RevertNext() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revertNext++
}

// SetPendingPolls makes each new receipt return null n times before it is mined.
func (c *Chain) SetPendingPolls(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingPoll = n
}

// ChainID returns the wallet's active chain.
func (c *Chain) ChainID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.chainID
}

// Requests returns every recorded call.
func (c *Chain) Requests() []Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Request, len(c.requests))
	copy(out, c.requests)
	return out
}

// Count returns how many times method was requested.
func (c *Chain) Count(method string) int {
	n := 0
	for _, r := range c.Requests() {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Sent returns the transactions the wallet accepted.
func (c *Chain) Sent() []Sent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Sent, len(c.sent))
	copy(out, c.sent)
	return out
}

// SwitchExternally simulates the user changing chain inside the wallet.
func (c *Chain) SwitchExternally(chainID uint64) {
	c.mu.Lock()
	c.known[chainID] = true
	c.chainID = chainID
	c.mu.Unlock()
	c.EmitChainChanged(hexutil.EncodeUint64(chainID))
}

// SetAccounts simulates an account switch or lock inside the wallet.
func (c *Chain) SetAccounts(accounts ...common.Address) {
	c.mu.Lock()
	c.accounts = accounts
	c.mu.Unlock()
	if accounts == nil {
		accounts = []common.Address{}
	}
	c.EmitAccountsChanged(accounts)
}

// Request implements provider.Provider.
//
//nolint:gocyclo // Method dispatch table
func (c *Chain) Request(_ context.Context, method string, params ...any) (json.RawMessage, error) {
	c.mu.Lock()
	c.requests = append(c.requests, Request{Method: method, Params: params})
	if err := c.fail[method]; err != nil {
		delete(c.fail, method)
		c.mu.Unlock()
		return nil, err
	}
	if c.reject[method] > 0 {
		c.reject[method]--
		c.mu.Unlock()
		return nil, provider.NewError(provider.CodeUserRejected, "user rejected the request")
	}
	c.mu.Unlock()

	switch method {
	case provider.MethodRequestAccounts:
		c.mu.Lock()
		c.permitted = true
		accounts := append([]common.Address{}, c.accounts...)
		c.mu.Unlock()
		return json.Marshal(accounts)
	case provider.MethodAccounts:
		c.mu.Lock()
		accounts := []common.Address{}
		if c.permitted {
			accounts = append(accounts, c.accounts...)
		}
		c.mu.Unlock()
		return json.Marshal(accounts)
	case provider.MethodChainID:
		return json.Marshal(hexutil.EncodeUint64(c.ChainID()))
	case provider.MethodSwitchChain:
		return c.switchChain(params)
	case provider.MethodAddChain:
		var p struct {
			ChainID string `json:"chainId"`
		}
		if err := provider.DecodeParam(params, 0, &p); err != nil {
			return nil, err
		}
		id, err := hexutil.DecodeUint64(p.ChainID)
		if err != nil {
			return nil, provider.NewError(provider.CodeInternal, err.Error())
		}
		c.AddKnownChain(id)
		return c.switchChain([]any{provider.SwitchChainParams{ChainID: p.ChainID}})
	case provider.MethodGetBalance:
		var account common.Address
		if err := provider.DecodeParam(params, 0, &account); err != nil {
			return nil, err
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		return json.Marshal((*hexutil.Big)(c.balanceLocked(c.chainID, account)))
	case provider.MethodCall:
		return c.ethCall(params)
	case provider.MethodSendTransaction:
		return c.sendTransaction(params)
	case provider.MethodGetReceipt:
		return c.receipt(params)
	}
	return nil, provider.NewError(provider.CodeUnsupportedMethod, "unsupported method "+method)
}

func (c *Chain) switchChain(params []any) (json.RawMessage, error) {
	var p provider.SwitchChainParams
	if err := provider.DecodeParam(params, 0, &p); err != nil {
		return nil, err
	}
	id, err := hexutil.DecodeUint64(p.ChainID)
	if err != nil {
		return nil, provider.NewError(provider.CodeInternal, err.Error())
	}

	c.mu.Lock()
	if !c.known[id] {
		c.mu.Unlock()
		return nil, provider.NewError(provider.CodeUnrecognizedChain, "unrecognized chain "+p.ChainID)
	}
	changed := c.chainID != id
	c.chainID = id
	c.mu.Unlock()

	if changed {
		c.EmitChainChanged(hexutil.EncodeUint64(id))
	}
	return json.Marshal(nil)
}

func (c *Chain) ethCall(params []any) (json.RawMessage, error) {
	var msg struct {
		To   common.Address `json:"to"`
		Data hexutil.Bytes  `json:"data"`
	}
	if err := provider.DecodeParam(params, 0, &msg); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.tokens[c.chainID][msg.To]
	if token == nil {
		return json.Marshal(hexutil.Bytes{})
	}

	call, err := erc20.DecodeCall(msg.Data)
	if err != nil {
		return nil, provider.NewError(provider.CodeExecutionReverted, "execution reverted")
	}

	var out []byte
	switch call.Method {
	case erc20.MethodBalanceOf:
		out, err = erc20.EncodeResult(call.Method, valueOr(token.balances[call.Args[0].(common.Address)]))
	case erc20.MethodAllowance:
		key := [2]common.Address{call.Args[0].(common.Address), call.Args[1].(common.Address)}
		out, err = erc20.EncodeResult(call.Method, valueOr(token.allowances[key]))
	case erc20.MethodDecimals:
		out, err = erc20.EncodeResult(call.Method, token.Decimals)
	case erc20.MethodSymbol:
		out, err = erc20.EncodeResult(call.Method, token.Symbol)
	default:
		return nil, provider.NewError(provider.CodeExecutionReverted, "execution reverted")
	}
	if err != nil {
		return nil, provider.NewError(provider.CodeInternal, err.Error())
	}
	return json.Marshal(hexutil.Bytes(out))
}

//nolint:gocognit // Simulates native and token execution
func (c *Chain) sendTransaction(params []any) (json.RawMessage, error) {
	var tx provider.TxRequest
	if err := provider.DecodeParam(params, 0, &tx); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.permitted || len(c.accounts) == 0 {
		return nil, provider.NewError(provider.CodeUnauthorized, "not connected")
	}
	from := c.accounts[0]
	if tx.From != nil {
		from = *tx.From
	}
	if tx.To == nil {
		return nil, provider.NewError(provider.CodeInternal, "contract creation not supported")
	}

	value := new(big.Int)
	if tx.Value != nil {
		value = tx.Value.ToInt()
	}
	fee := big.NewInt(DefaultGasUsed * DefaultGasPrice)
	balance := c.balanceLocked(c.chainID, from)
	if new(big.Int).Add(value, fee).Cmp(balance) > 0 {
		return nil, provider.NewError(-32000, "insufficient funds for gas * price + value")
	}

	c.nonce++
	c.block++
	hash := crypto.Keccak256Hash([]byte(fmt.Sprintf("%d/%d", c.chainID, c.nonce)))
	status := uint64(1)

	var decoded *erc20.Call
	token := c.tokens[c.chainID][*tx.To]
	if token != nil && len(tx.Data) > 0 {
		call, err := erc20.DecodeCall(tx.Data)
		if err == nil {
			decoded = &call
		}
	}

	reverted := c.revertNext > 0
	if reverted {
		c.revertNext--
		status = 0
	}

	nativeBal := c.nativeLocked(c.chainID)
	nativeBal[from] = new(big.Int).Sub(balance, fee)

	if !reverted {
		switch {
		case decoded != nil && decoded.Method == erc20.MethodApprove:
			spender := decoded.Args[0].(common.Address)
			token.allowances[[2]common.Address{from, spender}] = new(big.Int).Set(decoded.Args[1].(*big.Int))
		case decoded != nil && decoded.Method == erc20.MethodTransfer:
			to := decoded.Args[0].(common.Address)
			amount := decoded.Args[1].(*big.Int)
			have := valueOr(token.balances[from])
			if have.Cmp(amount) < 0 {
				status = 0
				break
			}
			token.balances[from] = new(big.Int).Sub(have, amount)
			token.balances[to] = new(big.Int).Add(valueOr(token.balances[to]), amount)
		default:
			nativeBal[from] = new(big.Int).Sub(nativeBal[from], value)
			nativeBal[*tx.To] = new(big.Int).Add(c.balanceLocked(c.chainID, *tx.To), value)
		}
	}

	c.receipts[hash] = receipt{
		TxHash:      hash,
		Status:      hexutil.Uint64(status),
		BlockNumber: hexutil.Uint64(c.block),
		GasUsed:     DefaultGasUsed,
	}
	c.pending[hash] = c.pendingPoll
	c.sent = append(c.sent, Sent{Hash: hash, ChainID: c.chainID, Tx: tx, Call: decoded, Status: status})

	return json.Marshal(hash)
}

func (c *Chain) receipt(params []any) (json.RawMessage, error) {
	var hash common.Hash
	if err := provider.DecodeParam(params, 0, &hash); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.receipts[hash]
	if !ok {
		return json.Marshal(nil)
	}
	if c.pending[hash] > 0 {
		c.pending[hash]--
		return json.Marshal(nil)
	}
	return json.Marshal(r)
}

func (c *Chain) nativeLocked(chainID uint64) map[common.Address]*big.Int {
	if c.native[chainID] == nil {
		c.native[chainID] = make(map[common.Address]*big.Int)
	}
	return c.native[chainID]
}

func (c *Chain) balanceLocked(chainID uint64, account common.Address) *big.Int {
	return valueOr(c.nativeLocked(chainID)[account])
}

func valueOr(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Ether converts whole units with 18 decimals to wei.
func Ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

// Units converts whole units to base units with the given decimals.
func Units(n int64, decimals uint8) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}
