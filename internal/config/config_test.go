package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/config"
	"github.com/mrz1836/chainpay/internal/network"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

func TestDefaults(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, "ethereum", cfg.Network)
	assert.Equal(t, 2*time.Second, cfg.Payment.PollInterval)
	assert.Equal(t, 10*time.Minute, cfg.Payment.ConfirmTimeout)
	assert.Equal(t, 3*time.Second, cfg.Payment.AutoCloseDelay)
	assert.Equal(t, "auto", cfg.GetOutputFormat())
	assert.Equal(t, "error", cfg.GetLoggingLevel())
	assert.False(t, cfg.IsVerbose())
	require.NoError(t, cfg.Validate())
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Parallel()
	path := config.Path(t.TempDir())

	cfg := config.Defaults()
	cfg.Network = "polygon"
	cfg.Payment.ConfirmTimeout = 90 * time.Second
	cfg.Networks["base"] = config.NetworkOverride{
		RPC:    "https://base.example.org",
		Escrow: "0x00000000000000000000000000000000000e5c70",
	}
	require.NoError(t, config.Save(cfg, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("network: base\npayment:\n  confirm_timeout: 5m\n"), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "base", cfg.Network)
	assert.Equal(t, 5*time.Minute, cfg.Payment.ConfirmTimeout)
	assert.Equal(t, config.DefaultPollInterval, cfg.Payment.PollInterval)
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	_, err := config.Load(filepath.Join(dir, "missing.yaml"))
	require.ErrorIs(t, err, payerr.ErrConfigNotFound)

	cfg, err := config.LoadOrDefault(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Defaults(), cfg)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("network: [unclosed"), 0o600))
	_, err = config.Load(bad)
	require.ErrorIs(t, err, payerr.ErrConfigInvalid)
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"bad format", func(c *config.Config) { c.Output.DefaultFormat = "xml" }},
		{"bad color", func(c *config.Config) { c.Output.Color = "sometimes" }},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }},
		{"zero poll interval", func(c *config.Config) { c.Payment.PollInterval = 0 }},
		{"negative timeout", func(c *config.Config) { c.Payment.ConfirmTimeout = -time.Second }},
		{"bad override url", func(c *config.Config) {
			c.Networks["ethereum"] = config.NetworkOverride{RPC: "not a url"}
		}},
		{"bad override address", func(c *config.Config) {
			c.Networks["ethereum"] = config.NetworkOverride{USDC: "0x1234"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := config.Defaults()
			tt.mutate(cfg)
			require.ErrorIs(t, cfg.Validate(), payerr.ErrConfigInvalid)
		})
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()
	escrow := common.HexToAddress("0x00000000000000000000000000000000000e5c70")

	cfg := config.Defaults()
	cfg.Networks["polygon"] = config.NetworkOverride{
		RPC:    "https://polygon.example.org",
		Escrow: escrow.Hex(),
	}
	cfg.Networks["8453"] = config.NetworkOverride{
		Explorer: "https://explorer.example.org",
		USDC:     common.Address{}.Hex(),
	}

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, network.Default().Len(), reg.Len())

	polygon, ok := reg.ByChainID(network.Polygon)
	require.True(t, ok)
	assert.Equal(t, "https://polygon.example.org", polygon.RPCURL)
	require.True(t, polygon.HasEscrow())
	assert.Equal(t, escrow, *polygon.EscrowAddress)
	assert.True(t, polygon.HasUSDC())

	base, ok := reg.ByChainID(network.Base)
	require.True(t, ok)
	assert.Equal(t, "https://explorer.example.org", base.BlockExplorerURL)
	assert.False(t, base.HasUSDC())

	eth, ok := reg.ByChainID(network.Ethereum)
	require.True(t, ok)
	assert.False(t, eth.HasEscrow())
}

func TestRegistry_UnknownNetwork(t *testing.T) {
	t.Parallel()
	cfg := config.Defaults()
	cfg.Networks["dogechain"] = config.NetworkOverride{RPC: "https://example.org"}

	_, err := cfg.Registry()
	require.ErrorIs(t, err, payerr.ErrConfigInvalid)
}

func TestExpandHome(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "/abs/path", config.ExpandHome("/abs/path"))
	assert.Equal(t, "relative", config.ExpandHome("relative"))

	home, err := os.UserHomeDir()
	if err == nil {
		assert.Equal(t, filepath.Join(home, "x", "y"), config.ExpandHome("~/x/y"))
	}
}
