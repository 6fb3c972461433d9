package network

import "github.com/ethereum/go-ethereum/common"

// Well-known chain ids.
const (
	Ethereum = 1
	Sepolia  = 11155111
	Polygon  = 137
	BSC      = 56
	Base     = 8453
	Arbitrum = 42161
)

func addr(hex string) *common.Address {
	a := common.HexToAddress(hex)
	return &a
}

// DefaultDescriptors returns the built-in network table.
// No chain ships with an escrow contract; those come from configuration.
func DefaultDescriptors() []Descriptor {
	eth := NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}
	return []Descriptor{
		{
			ChainID:          Ethereum,
			Slug:             "ethereum",
			Name:             "Ethereum",
			NativeCurrency:   eth,
			RPCURL:           "https://ethereum-rpc.publicnode.com",
			BlockExplorerURL: "https://etherscan.io",
			USDCAddress:      addr("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		},
		{
			ChainID:          Sepolia,
			Slug:             "sepolia",
			Name:             "Sepolia",
			NativeCurrency:   NativeCurrency{Name: "Sepolia Ether", Symbol: "ETH", Decimals: 18},
			RPCURL:           "https://ethereum-sepolia-rpc.publicnode.com",
			BlockExplorerURL: "https://sepolia.etherscan.io",
			USDCAddress:      addr("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238"),
		},
		{
			ChainID:          Polygon,
			Slug:             "polygon",
			Name:             "Polygon",
			NativeCurrency:   NativeCurrency{Name: "POL", Symbol: "POL", Decimals: 18},
			RPCURL:           "https://polygon-rpc.com",
			BlockExplorerURL: "https://polygonscan.com",
			USDCAddress:      addr("0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359"),
		},
		{
			ChainID:          BSC,
			Slug:             "bsc",
			Name:             "BNB Smart Chain",
			NativeCurrency:   NativeCurrency{Name: "BNB", Symbol: "BNB", Decimals: 18},
			RPCURL:           "https://bsc-dataseed.binance.org",
			BlockExplorerURL: "https://bscscan.com",
			USDCAddress:      addr("0x8AC76a51cc950d9822D68b83fE1Ad97B32Cd580d"),
		},
		{
			ChainID:          Base,
			Slug:             "base",
			Name:             "Base",
			NativeCurrency:   eth,
			RPCURL:           "https://mainnet.base.org",
			BlockExplorerURL: "https://basescan.org",
			USDCAddress:      addr("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"),
		},
		{
			ChainID:          Arbitrum,
			Slug:             "arbitrum",
			Name:             "Arbitrum One",
			NativeCurrency:   eth,
			RPCURL:           "https://arb1.arbitrum.io/rpc",
			BlockExplorerURL: "https://arbiscan.io",
			USDCAddress:      addr("0xaf88d065e77c8cC2239327C5EDb3A432268e5831"),
		},
	}
}

// Default returns a registry of the built-in networks.
func Default() *Registry {
	r, err := NewRegistry(DefaultDescriptors()...)
	if err != nil {
		panic(err) // built-in table is static
	}
	return r
}
