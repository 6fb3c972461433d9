package config

import (
	"time"

	"github.com/mrz1836/chainpay/internal/chain"
)

// Payment timing defaults.
const (
	DefaultPollInterval   = 2 * time.Second
	DefaultConfirmTimeout = 10 * time.Minute
	DefaultAutoCloseDelay = 3 * time.Second
)

// DefaultNetwork is the network used when none is configured.
const DefaultNetwork = "ethereum"

// Defaults returns the default configuration.
func Defaults() *Config {
	return &Config{
		Version:  1,
		Home:     "~/.chainpay",
		Network:  DefaultNetwork,
		Networks: map[string]NetworkOverride{},
		Wallet: WalletConfig{
			Keystore: "~/.chainpay/keystore.json",
		},
		Payment: PaymentConfig{
			PollInterval:   DefaultPollInterval,
			ConfirmTimeout: DefaultConfirmTimeout,
			AutoCloseDelay: DefaultAutoCloseDelay,
		},
		RPC: RPCConfig{
			RateLimit: chain.DefaultRatePerSecond,
			Burst:     chain.DefaultBurst,
		},
		Output: OutputConfig{
			DefaultFormat: "auto",
			Color:         "auto",
			Verbose:       false,
		},
		Logging: LoggingConfig{
			Level: "error",
			File:  "~/.chainpay/chainpay.log",
		},
	}
}
