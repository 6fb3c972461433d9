package provider_test

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/rpc"
)

// fakeBackend records what the wallet sends to the node.
type fakeBackend struct {
	mu       sync.Mutex
	chainID  uint64
	url      string
	baseFee  *big.Int
	nonce    uint64
	gas      uint64
	estErr   error
	sendErr  error
	raw      [][]byte
	forwards []string
}

func (b *fakeBackend) Call(_ context.Context, method string, _ ...any) (json.RawMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.forwards = append(b.forwards, method)
	return json.RawMessage(`"0x1"`), nil
}

func (b *fakeBackend) GetTransactionCount(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) EstimateGas(context.Context, rpc.CallMsg) (uint64, error) {
	return b.gas, b.estErr
}

func (b *fakeBackend) GasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(5_000_000_000), nil
}

func (b *fakeBackend) MaxPriorityFeePerGas(context.Context) (*big.Int, error) {
	return big.NewInt(2_000_000_000), nil
}

func (b *fakeBackend) BaseFee(context.Context) (*big.Int, error) {
	return b.baseFee, nil
}

func (b *fakeBackend) SendRawTransaction(_ context.Context, raw []byte) (common.Hash, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sendErr != nil {
		return common.Hash{}, b.sendErr
	}
	b.raw = append(b.raw, raw)
	return crypto.Keccak256Hash(raw), nil
}

type walletFixture struct {
	wallet   *provider.SoftwareWallet
	backends map[uint64]*fakeBackend
	prompts  []provider.Prompt
	answer   bool
}

func newWallet(t *testing.T, baseFee *big.Int, opts ...provider.WalletOption) *walletFixture {
	t.Helper()
	key, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	f := &walletFixture{backends: map[uint64]*fakeBackend{}, answer: true}
	dial := func(chainID uint64, url string) provider.Backend {
		b := &fakeBackend{chainID: chainID, url: url, baseFee: baseFee, nonce: 7, gas: 50_000}
		f.backends[chainID] = b
		return b
	}
	consent := provider.ConsentFunc(func(_ context.Context, p provider.Prompt) (bool, error) {
		f.prompts = append(f.prompts, p)
		return f.answer, nil
	})

	opts = append([]provider.WalletOption{provider.WithDialer(dial)}, opts...)
	f.wallet = provider.NewSoftwareWallet(key, consent, 1, "https://eth.example", opts...)
	return f
}

func TestSoftwareWallet_RequestAccounts(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	ctx := context.Background()

	raw, err := f.wallet.Request(ctx, provider.MethodAccounts)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))

	f.answer = false
	_, err = f.wallet.Request(ctx, provider.MethodRequestAccounts)
	assert.True(t, provider.IsUserRejected(err))

	f.answer = true
	raw, err = f.wallet.Request(ctx, provider.MethodRequestAccounts)
	require.NoError(t, err)
	var accounts []common.Address
	require.NoError(t, json.Unmarshal(raw, &accounts))
	assert.Equal(t, []common.Address{f.wallet.Address()}, accounts)

	// Already permitted: no second prompt.
	_, err = f.wallet.Request(ctx, provider.MethodRequestAccounts)
	require.NoError(t, err)
	assert.Len(t, f.prompts, 2)
}

func TestSoftwareWallet_ChainID(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	raw, err := f.wallet.Request(context.Background(), provider.MethodChainID)
	require.NoError(t, err)
	assert.JSONEq(t, `"0x1"`, string(raw))
}

func TestSoftwareWallet_SwitchChain(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil, provider.WithChain(8453, "https://base.example"))
	ctx := context.Background()

	var events []string
	f.wallet.OnChainChanged(func(id string) { events = append(events, id) })

	_, err := f.wallet.Request(ctx, provider.MethodSwitchChain, provider.SwitchChainParams{ChainID: "0x89"})
	code, ok := provider.ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, provider.CodeUnrecognizedChain, code)

	_, err = f.wallet.Request(ctx, provider.MethodSwitchChain, map[string]any{"chainId": "0x2105"})
	require.NoError(t, err)
	assert.Equal(t, uint64(8453), f.wallet.ChainID())
	assert.Equal(t, []string{"0x2105"}, events)
	assert.Equal(t, "https://base.example", f.backends[8453].url)

	// Switching to the active chain emits nothing.
	_, err = f.wallet.Request(ctx, provider.MethodSwitchChain, provider.SwitchChainParams{ChainID: "0x2105"})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestSoftwareWallet_AddChain(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	ctx := context.Background()

	params := map[string]any{
		"chainId":           "0x89",
		"chainName":         "Polygon",
		"rpcUrls":           []string{"https://polygon.example"},
		"blockExplorerUrls": []string{"https://polygonscan.com"},
	}

	f.answer = false
	_, err := f.wallet.Request(ctx, provider.MethodAddChain, params)
	assert.True(t, provider.IsUserRejected(err))
	assert.Equal(t, uint64(1), f.wallet.ChainID())

	f.answer = true
	_, err = f.wallet.Request(ctx, provider.MethodAddChain, params)
	require.NoError(t, err)
	assert.Equal(t, uint64(137), f.wallet.ChainID())
	assert.Equal(t, "https://polygon.example", f.backends[137].url)
	assert.Equal(t, provider.PromptAddChain, f.prompts[len(f.prompts)-1].Kind)
	assert.Equal(t, "Polygon", f.prompts[len(f.prompts)-1].ChainName)
}

func TestSoftwareWallet_ForwardsReads(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	_, err := f.wallet.Request(context.Background(), provider.MethodGetBalance, f.wallet.Address(), "latest")
	require.NoError(t, err)
	assert.Equal(t, []string{provider.MethodGetBalance}, f.backends[1].forwards)

	_, err = f.wallet.Request(context.Background(), "personal_sign")
	code, _ := provider.ErrorCode(err)
	assert.Equal(t, provider.CodeUnsupportedMethod, code)
}

func TestSoftwareWallet_SendTransaction_RequiresPermission(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to})
	code, ok := provider.ErrorCode(err)
	require.True(t, ok)
	assert.Equal(t, provider.CodeUnauthorized, code)
}

func connect(t *testing.T, f *walletFixture) {
	t.Helper()
	_, err := f.wallet.Request(context.Background(), provider.MethodRequestAccounts)
	require.NoError(t, err)
}

func decodeSent(t *testing.T, raw []byte) *types.Transaction {
	t.Helper()
	tx := new(types.Transaction)
	require.NoError(t, tx.UnmarshalBinary(raw))
	return tx
}

func TestSoftwareWallet_SendTransaction_DynamicFee(t *testing.T) {
	t.Parallel()
	f := newWallet(t, big.NewInt(10_000_000_000))
	connect(t, f)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	raw, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{
		To:    &to,
		Value: (*hexutil.Big)(big.NewInt(1000)),
	})
	require.NoError(t, err)

	var hash common.Hash
	require.NoError(t, json.Unmarshal(raw, &hash))

	require.Len(t, f.backends[1].raw, 1)
	tx := decodeSent(t, f.backends[1].raw[0])
	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.Equal(t, uint64(7), tx.Nonce())
	assert.Equal(t, uint64(60_000), tx.Gas())
	assert.Equal(t, int64(2_000_000_000), tx.GasTipCap().Int64())
	assert.Equal(t, int64(22_000_000_000), tx.GasFeeCap().Int64())
	assert.Equal(t, to, *tx.To())

	sender, err := types.Sender(types.LatestSignerForChainID(big.NewInt(1)), tx)
	require.NoError(t, err)
	assert.Equal(t, f.wallet.Address(), sender)

	last := f.prompts[len(f.prompts)-1]
	assert.Equal(t, provider.PromptSendTransaction, last.Kind)
	assert.Equal(t, int64(1000), last.Value.Int64())
}

func TestSoftwareWallet_SendTransaction_Legacy(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	connect(t, f)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	gas := hexutil.Uint64(21000)

	_, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to, Gas: &gas})
	require.NoError(t, err)

	tx := decodeSent(t, f.backends[1].raw[0])
	assert.Equal(t, uint8(types.LegacyTxType), tx.Type())
	assert.Equal(t, uint64(21000), tx.Gas())
	assert.Equal(t, int64(5_000_000_000), tx.GasPrice().Int64())
	assert.Equal(t, int64(1), tx.ChainId().Int64())
}

func TestSoftwareWallet_SendTransaction_TracksNonce(t *testing.T) {
	t.Parallel()
	f := newWallet(t, big.NewInt(1))
	connect(t, f)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	for i := 0; i < 2; i++ {
		_, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to})
		require.NoError(t, err)
	}
	assert.Equal(t, uint64(7), decodeSent(t, f.backends[1].raw[0]).Nonce())
	assert.Equal(t, uint64(8), decodeSent(t, f.backends[1].raw[1]).Nonce())
}

func TestSoftwareWallet_SendTransaction_Rejected(t *testing.T) {
	t.Parallel()
	f := newWallet(t, big.NewInt(1))
	connect(t, f)
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	f.answer = false
	_, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to})
	assert.True(t, provider.IsUserRejected(err))
	assert.Empty(t, f.backends[1].raw)

	// A rejected prompt does not burn a nonce.
	f.answer = true
	_, err = f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), decodeSent(t, f.backends[1].raw[0]).Nonce())
}

func TestSoftwareWallet_SendTransaction_EstimateRevert(t *testing.T) {
	t.Parallel()
	f := newWallet(t, big.NewInt(1))
	connect(t, f)
	f.backends[1].estErr = &rpc.Error{Code: 3, Message: "execution reverted"}
	to := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	_, err := f.wallet.Request(context.Background(), provider.MethodSendTransaction, provider.TxRequest{To: &to})
	var pe *provider.RPCError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, provider.CodeExecutionReverted, pe.Code)
}

func TestSoftwareWallet_Lock(t *testing.T) {
	t.Parallel()
	f := newWallet(t, nil)
	connect(t, f)

	var got []common.Address
	called := false
	f.wallet.OnAccountsChanged(func(a []common.Address) {
		called = true
		got = a
	})

	f.wallet.Lock()
	assert.True(t, called)
	assert.Empty(t, got)

	raw, err := f.wallet.Request(context.Background(), provider.MethodAccounts)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(raw))
}
