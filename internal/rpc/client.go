// Package rpc provides a minimal JSON-RPC 2.0 client for EVM nodes.
//
// Read-only methods are rate limited per endpoint and retried on transient
// failures. Methods that change chain state are sent exactly once.
package rpc

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/goccy/go-json"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/metrics"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

var (
	// ErrRPCRequest indicates an RPC request failed.
	ErrRPCRequest = &payerr.PayError{
		Code:     "RPC_REQUEST_FAILED",
		Message:  "RPC request failed",
		ExitCode: payerr.ExitGeneral,
	}

	// ErrRPCResponse indicates an invalid RPC response.
	ErrRPCResponse = &payerr.PayError{
		Code:     "RPC_INVALID_RESPONSE",
		Message:  "invalid RPC response",
		ExitCode: payerr.ExitGeneral,
	}
)

// readOnly lists the methods that may be retried.
//
//nolint:gochecknoglobals // Immutable lookup table
var readOnly = map[string]bool{
	"eth_chainId":               true,
	"eth_blockNumber":           true,
	"eth_getBalance":            true,
	"eth_call":                  true,
	"eth_estimateGas":           true,
	"eth_gasPrice":              true,
	"eth_maxPriorityFeePerGas":  true,
	"eth_getTransactionCount":   true,
	"eth_getTransactionReceipt": true,
	"eth_getBlockByNumber":      true,
}

// IsReadOnly reports whether method only reads chain state.
func IsReadOnly(method string) bool {
	return readOnly[method]
}

// Client is a minimal EVM JSON-RPC client.
type Client struct {
	url        string
	chainID    uint64
	httpClient *http.Client
	limiter    *chain.RateLimiter
	retry      chain.RetryConfig
	metrics    *metrics.Metrics
	idCounter  atomic.Uint64
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimiter shares a rate limiter across clients.
func WithRateLimiter(rl *chain.RateLimiter) Option {
	return func(c *Client) { c.limiter = rl }
}

// WithRetry sets the retry policy for read-only methods.
func WithRetry(cfg chain.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithChainID labels the client's metrics with a chain id.
func WithChainID(id uint64) Option {
	return func(c *Client) { c.chainID = id }
}

// NewClient creates a new RPC client.
func NewClient(url string, opts ...Option) *Client {
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    chain.DefaultRateLimiter(),
		retry:      chain.DefaultRetryConfig(),
		metrics:    metrics.Global,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client talks to.
func (c *Client) URL() string {
	return c.url
}

// request represents a JSON-RPC 2.0 request.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

// response represents a JSON-RPC 2.0 response.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object returned by the node.
// Data carries revert payloads when the node supplies them.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// Call performs a JSON-RPC call.
func (c *Client) Call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if !IsReadOnly(method) {
		return c.call(ctx, method, params)
	}
	return chain.RetryRead(ctx, c.retry, func() (json.RawMessage, error) {
		return c.call(ctx, method, params)
	})
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx, c.url); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := c.do(ctx, method, params)
	if c.metrics != nil {
		c.metrics.RecordRPCCall(method, c.chainID, time.Since(start), err)
	}
	return result, err
}

func (c *Client) do(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}

	req := request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.idCounter.Add(1),
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, chain.WrapRetryable(payerr.WithCause(ErrRPCRequest, err))
	}
	// Body.Close error is intentionally ignored as it only fails if the
	// connection is already broken, and there's no recovery action.
	defer func() { _ = httpResp.Body.Close() }()

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, payerr.WithDetails(chain.ErrRateLimited, map[string]string{
			"retry_after": chain.ParseRetryAfter(httpResp.Header.Get("Retry-After")).String(),
		})
	case httpResp.StatusCode >= http.StatusInternalServerError:
		return nil, chain.WrapRetryable(payerr.WithDetails(ErrRPCRequest, map[string]string{
			"status": httpResp.Status,
		}))
	}

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	var resp response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, payerr.WithCause(ErrRPCResponse, err)
	}

	if resp.Error != nil {
		return nil, resp.Error
	}

	return resp.Result, nil
}

// ChainID returns the chain ID.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "eth_chainId")
}

// BlockNumber returns the latest block number.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	return c.callUint64(ctx, "eth_blockNumber")
}

// GetBalance returns the balance of an address in wei.
func (c *Client) GetBalance(ctx context.Context, address common.Address) (*big.Int, error) {
	return c.callBig(ctx, "eth_getBalance", address, "latest")
}

// GetTransactionCount returns the pending nonce for an address.
func (c *Client) GetTransactionCount(ctx context.Context, address common.Address) (uint64, error) {
	return c.callUint64(ctx, "eth_getTransactionCount", address, "pending")
}

// GasPrice returns the current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_gasPrice")
}

// MaxPriorityFeePerGas returns the node's suggested EIP-1559 tip.
func (c *Client) MaxPriorityFeePerGas(ctx context.Context) (*big.Int, error) {
	return c.callBig(ctx, "eth_maxPriorityFeePerGas")
}

// BaseFee returns the latest block's base fee, or nil on pre-London chains.
func (c *Client) BaseFee(ctx context.Context) (*big.Int, error) {
	result, err := c.Call(ctx, "eth_getBlockByNumber", "latest", false)
	if err != nil {
		return nil, err
	}

	var header struct {
		BaseFee *hexutil.Big `json:"baseFeePerGas"`
	}
	if err := json.Unmarshal(result, &header); err != nil {
		return nil, payerr.WithCause(ErrRPCResponse, err)
	}
	if header.BaseFee == nil {
		return nil, nil //nolint:nilnil // legacy chains report no base fee
	}
	return header.BaseFee.ToInt(), nil
}

// CallMsg represents the parameters for eth_call and eth_estimateGas.
type CallMsg struct {
	From  *common.Address
	To    *common.Address
	Gas   uint64
	Value *big.Int
	Data  []byte
}

// MarshalJSON implements custom JSON marshaling for CallMsg.
func (m CallMsg) MarshalJSON() ([]byte, error) {
	type callMsgJSON struct {
		From  *common.Address `json:"from,omitempty"`
		To    *common.Address `json:"to,omitempty"`
		Gas   string          `json:"gas,omitempty"`
		Value string          `json:"value,omitempty"`
		Data  string          `json:"data,omitempty"`
	}

	msg := callMsgJSON{
		From: m.From,
		To:   m.To,
	}

	if m.Gas > 0 {
		msg.Gas = hexutil.EncodeUint64(m.Gas)
	}
	if m.Value != nil && m.Value.Sign() > 0 {
		msg.Value = hexutil.EncodeBig(m.Value)
	}
	if len(m.Data) > 0 {
		msg.Data = hexutil.Encode(m.Data)
	}

	return json.Marshal(msg)
}

// EthCall performs an eth_call against the latest block.
func (c *Client) EthCall(ctx context.Context, msg CallMsg) ([]byte, error) {
	result, err := c.Call(ctx, "eth_call", msg, "latest")
	if err != nil {
		return nil, err
	}

	var out hexutil.Bytes
	if err := json.Unmarshal(result, &out); err != nil {
		return nil, payerr.WithCause(ErrRPCResponse, err)
	}
	return out, nil
}

// EstimateGas estimates the gas needed for a transaction.
func (c *Client) EstimateGas(ctx context.Context, msg CallMsg) (uint64, error) {
	return c.callUint64(ctx, "eth_estimateGas", msg)
}

// SendRawTransaction sends a signed transaction.
// Returns the transaction hash.
func (c *Client) SendRawTransaction(ctx context.Context, signedTx []byte) (common.Hash, error) {
	result, err := c.Call(ctx, "eth_sendRawTransaction", hexutil.Encode(signedTx))
	if err != nil {
		return common.Hash{}, err
	}

	var txHash common.Hash
	if err := json.Unmarshal(result, &txHash); err != nil {
		return common.Hash{}, payerr.WithCause(ErrRPCResponse, err)
	}
	return txHash, nil
}

// Receipt is the subset of a transaction receipt the payment flow needs.
type Receipt struct {
	TxHash      common.Hash    `json:"transactionHash"`
	Status      hexutil.Uint64 `json:"status"`
	BlockNumber hexutil.Uint64 `json:"blockNumber"`
	GasUsed     hexutil.Uint64 `json:"gasUsed"`
}

// Succeeded reports whether the receipt carries status 1.
func (r *Receipt) Succeeded() bool {
	return r.Status == 1
}

// DecodeReceipt decodes an eth_getTransactionReceipt result.
// A null result yields (nil, nil): the transaction is not mined yet.
func DecodeReceipt(raw json.RawMessage) (*Receipt, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil //nolint:nilnil // pending transaction
	}
	var r Receipt
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, payerr.WithCause(ErrRPCResponse, err)
	}
	return &r, nil
}

// TransactionReceipt fetches a receipt; nil means still pending.
func (c *Client) TransactionReceipt(ctx context.Context, hash common.Hash) (*Receipt, error) {
	result, err := c.Call(ctx, "eth_getTransactionReceipt", hash)
	if err != nil {
		return nil, err
	}
	return DecodeReceipt(result)
}

func (c *Client) callBig(ctx context.Context, method string, params ...any) (*big.Int, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return nil, err
	}

	var v hexutil.Big
	if err := json.Unmarshal(result, &v); err != nil {
		return nil, payerr.WithCause(ErrRPCResponse, fmt.Errorf("%s: %w", method, err))
	}
	return v.ToInt(), nil
}

func (c *Client) callUint64(ctx context.Context, method string, params ...any) (uint64, error) {
	result, err := c.Call(ctx, method, params...)
	if err != nil {
		return 0, err
	}

	var v hexutil.Uint64
	if err := json.Unmarshal(result, &v); err != nil {
		return 0, payerr.WithCause(ErrRPCResponse, fmt.Errorf("%s: %w", method, err))
	}
	return uint64(v), nil
}
