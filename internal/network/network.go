// Package network holds the table of chains the payment flow supports.
package network

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// NativeCurrency describes a chain's base asset.
type NativeCurrency struct {
	Name     string `json:"name" yaml:"name" validate:"required"`
	Symbol   string `json:"symbol" yaml:"symbol" validate:"required,max=11"`
	Decimals int    `json:"decimals" yaml:"decimals" validate:"gte=0,lte=36"`
}

// Descriptor is one supported chain.
// USDCAddress and EscrowAddress are nil when the chain has no USDC
// integration or no escrow contract.
type Descriptor struct {
	ChainID          uint64 `validate:"gt=0"`
	ChainIDHex       string `validate:"required,hexadecimal"`
	Slug             string `validate:"required,lowercase"`
	Name             string `validate:"required"`
	NativeCurrency   NativeCurrency
	RPCURL           string `validate:"required,url"`
	BlockExplorerURL string `validate:"required,url"`
	USDCAddress      *common.Address
	EscrowAddress    *common.Address
}

// HasUSDC reports whether USDC is deployed on this chain.
func (d Descriptor) HasUSDC() bool {
	return d.USDCAddress != nil && *d.USDCAddress != (common.Address{})
}

// HasEscrow reports whether an escrow contract is configured.
func (d Descriptor) HasEscrow() bool {
	return d.EscrowAddress != nil && *d.EscrowAddress != (common.Address{})
}

// TxURL returns the explorer link for a transaction hash.
func (d Descriptor) TxURL(hash string) string {
	return strings.TrimRight(d.BlockExplorerURL, "/") + "/tx/" + hash
}

// String returns the display name.
func (d Descriptor) String() string {
	return d.Name
}

// AddChainParams is the parameter object for wallet_addEthereumChain.
type AddChainParams struct {
	ChainID           string         `json:"chainId"`
	ChainName         string         `json:"chainName"`
	NativeCurrency    NativeCurrency `json:"nativeCurrency"`
	RPCURLs           []string       `json:"rpcUrls"`
	BlockExplorerURLs []string       `json:"blockExplorerUrls"`
}

// AddChainParams builds the add-chain request for this descriptor.
func (d Descriptor) AddChainParams() AddChainParams {
	return AddChainParams{
		ChainID:           d.ChainIDHex,
		ChainName:         d.Name,
		NativeCurrency:    d.NativeCurrency,
		RPCURLs:           []string{d.RPCURL},
		BlockExplorerURLs: []string{d.BlockExplorerURL},
	}
}

// ToHex encodes a chain id the way wallet RPC methods expect it.
func ToHex(chainID uint64) string {
	return hexutil.EncodeUint64(chainID)
}

// ParseHex decodes a hex chain id. The 0x prefix is required; letter case
// and leading zeros are tolerated.
func ParseHex(s string) (uint64, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	if !strings.HasPrefix(raw, "0x") {
		return 0, invalidHex(s)
	}
	digits := strings.TrimLeft(raw[2:], "0")
	if digits == "" {
		if len(raw) == 2 {
			return 0, invalidHex(s)
		}
		digits = "0"
	}

	id, err := hexutil.DecodeUint64("0x" + digits)
	if err != nil {
		return 0, payerr.WithCause(payerr.ErrInvalidInput, err)
	}
	return id, nil
}

func invalidHex(s string) error {
	return payerr.WithDetails(payerr.ErrInvalidInput, map[string]string{
		"chain_id": s,
		"reason":   "expected 0x-prefixed hex",
	})
}
