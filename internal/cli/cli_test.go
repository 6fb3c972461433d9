package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/config"
	"github.com/mrz1836/chainpay/internal/network"
	"github.com/mrz1836/chainpay/internal/provider"
	"github.com/mrz1836/chainpay/internal/provider/providertest"
)

//nolint:gochecknoglobals // Shared test fixtures
var (
	testAccount   = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testRecipient = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testEscrow    = common.HexToAddress("0x52908400098527886E0F7030069857D2E4169EE7")
	ethUSDC       = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
)

// setupCLI points chainpay at a temporary home with a fast-polling config
// and an in-memory wallet on Ethereum. Commands share package state, so
// these tests do not run in parallel.
func setupCLI(t *testing.T) *providertest.Chain {
	t.Helper()

	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvLogLevel, "off")
	t.Setenv(config.EnvNetwork, "")
	t.Setenv(EnvPrivateKey, "")

	c := config.Defaults()
	c.Home = home
	c.Payment.PollInterval = 5 * time.Millisecond
	c.Payment.ConfirmTimeout = 5 * time.Second
	c.Networks = map[string]config.NetworkOverride{
		"ethereum": {Escrow: testEscrow.Hex()},
	}
	require.NoError(t, config.Save(c, config.Path(home)))

	fake := providertest.New(network.Ethereum, testAccount)
	origFactory := providerFactory
	providerFactory = func(context.Context, *network.Registry, network.Descriptor) (provider.Provider, error) {
		return fake, nil
	}
	t.Cleanup(func() {
		providerFactory = origFactory
		resetFlags()
	})
	resetFlags()
	return fake
}

// resetFlags restores every flag to its default between runs.
func resetFlags() {
	walkCommands(rootCmd, func(cmd *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		cmd.Flags().VisitAll(reset)
		cmd.PersistentFlags().VisitAll(reset)
	})
}

// runCLI executes chainpay with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// runJSON executes chainpay with -o json and decodes stdout into v.
func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	stdout, stderr, err := runCLI(t, append(args, "-o", "json")...)
	require.NoError(t, err, stderr)
	require.NoError(t, json.Unmarshal([]byte(stdout), v), stdout)
}
