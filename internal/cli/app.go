package cli

import (
	"context"
	"crypto/ecdsa"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/mrz1836/chainpay/internal/balance"
	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/config"
	"github.com/mrz1836/chainpay/internal/metrics"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/rpc"
	"github.com/mrz1836/chainpay/internal/transfer"
	"github.com/mrz1836/chainpay/internal/wallet"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Signing key sources read from the environment.
const (
	EnvPrivateKey = "CHAINPAY_PRIVATE_KEY" //nolint:gosec // G101: variable name, not a credential
	EnvPassphrase = "CHAINPAY_KEYSTORE_PASSPHRASE"
)

// ProviderFactory opens the wallet provider for a command. The wallet starts
// on home, the configured network.
type ProviderFactory func(ctx context.Context, reg *network.Registry, home network.Descriptor) (provider.Provider, error)

// providerFactory is replaced in tests with an in-memory chain.
//
//nolint:gochecknoglobals // Swappable for tests
var providerFactory ProviderFactory = openSoftwareWallet

// app wires one command's payment stack against a single wallet session.
type app struct {
	registry *network.Registry
	home     network.Descriptor
	manager  *wallet.Manager
	switcher *wallet.Switcher
	oracle   *balance.Oracle
	engine   *transfer.Engine
}

// newApp builds the registry from configuration and opens the provider.
func newApp(ctx context.Context) (*app, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	home, err := reg.ByName(cfg.Network)
	if err != nil {
		return nil, payerr.WithSuggestion(err, "set network in config.yaml or "+config.EnvNetwork)
	}

	p, err := providerFactory(ctx, reg, home)
	if err != nil {
		return nil, err
	}

	m := wallet.NewManager(p, reg, wallet.WithLogger(logger))
	oracle := balance.NewOracle(p, balance.WithLogger(logger))
	engine := transfer.NewEngine(m,
		transfer.WithLogger(logger),
		transfer.WithPollInterval(cfg.Payment.PollInterval),
		transfer.WithConfirmTimeout(cfg.Payment.ConfirmTimeout),
		transfer.WithRefresher(func(ctx context.Context, account common.Address, desc network.Descriptor) error {
			_, err := oracle.Refresh(ctx, account, desc)
			return err
		}),
	)

	return &app{
		registry: reg,
		home:     home,
		manager:  m,
		switcher: wallet.NewSwitcher(m),
		oracle:   oracle,
		engine:   engine,
	}, nil
}

// close ends the wallet session.
func (a *app) close() {
	a.manager.Disconnect()
}

// target resolves the --network flag, defaulting to the configured network.
func (a *app) target() (network.Descriptor, error) {
	if networkName == "" {
		return a.home, nil
	}
	return a.registry.ByName(networkName)
}

// connect asks the wallet for account access and moves it to desc when it
// is on another network.
func (a *app) connect(ctx context.Context, desc network.Descriptor) (wallet.Session, error) {
	s, err := a.manager.Connect(ctx)
	if err != nil {
		return wallet.Session{}, err
	}

	if s.ChainID == nil || *s.ChainID != desc.ChainID {
		formatter.Notice("Switching wallet to %s...", desc.Name)
		if err := a.switcher.SwitchNetwork(ctx, desc.ChainIDHex); err != nil {
			return wallet.Session{}, err
		}
		s = a.manager.Session()
	}
	if !s.Connected || s.ChainID == nil || *s.ChainID != desc.ChainID {
		return wallet.Session{}, payerr.WithDetails(payerr.ErrUnsupportedNetwork, map[string]string{
			"network": desc.Name,
		})
	}
	logger.Debug("connected %s on %s", s.Account.Hex(), desc.Slug)
	return s, nil
}

// connectTarget connects on the --network target.
func (a *app) connectTarget(ctx context.Context) (wallet.Session, network.Descriptor, error) {
	desc, err := a.target()
	if err != nil {
		return wallet.Session{}, network.Descriptor{}, err
	}
	s, err := a.connect(ctx, desc)
	return s, desc, err
}

// openSoftwareWallet loads the signing key and starts a SoftwareWallet
// talking to home's RPC endpoint through the rate-limited client.
func openSoftwareWallet(_ context.Context, reg *network.Registry, home network.Descriptor) (provider.Provider, error) {
	key, err := loadKey()
	if err != nil {
		return nil, err
	}

	var consent provider.Consent = newTerminalConsent(os.Stdin, os.Stderr, reg)
	if assumeYes {
		consent = provider.AutoApprove
	}

	limiter := chain.NewRateLimiter(cfg.RPC.RateLimit, cfg.RPC.Burst)
	dial := provider.DialRPC(rpc.WithRateLimiter(limiter), rpc.WithMetrics(metrics.Global))

	return provider.NewSoftwareWallet(key, consent, home.ChainID, home.RPCURL, provider.WithDialer(dial)), nil
}

// loadKey reads a raw hex key from the environment or decrypts the
// configured keystore, prompting for its passphrase when none is set.
func loadKey() (*ecdsa.PrivateKey, error) {
	if raw := os.Getenv(EnvPrivateKey); raw != "" {
		return provider.ParsePrivateKey(raw)
	}

	path := cfg.GetKeystore()
	passphrase := os.Getenv(EnvPassphrase)
	if passphrase == "" {
		pw, err := promptPasswordFn("Keystore passphrase: ")
		if err != nil {
			return nil, err
		}
		passphrase = string(pw)
		clear(pw)
	}
	return provider.LoadKeystore(path, passphrase)
}
