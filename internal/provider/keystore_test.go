package provider_test

import (
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/chainpay/internal/provider"
)

const testKeyHex = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestLoadKeystore(t *testing.T) {
	t.Parallel()
	priv, err := crypto.HexToECDSA(testKeyHex)
	require.NoError(t, err)

	ks := keystore.NewKeyStore(t.TempDir(), keystore.LightScryptN, keystore.LightScryptP)
	acct, err := ks.ImportECDSA(priv, "hunter2")
	require.NoError(t, err)

	loaded, err := provider.LoadKeystore(acct.URL.Path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, acct.Address, crypto.PubkeyToAddress(loaded.PublicKey))

	_, err = provider.LoadKeystore(acct.URL.Path, "wrong")
	require.ErrorIs(t, err, provider.ErrKeyUnavailable)

	_, err = provider.LoadKeystore(filepath.Join(t.TempDir(), "missing.json"), "x")
	require.ErrorIs(t, err, provider.ErrKeyUnavailable)
}

func TestParsePrivateKey(t *testing.T) {
	t.Parallel()
	a, err := provider.ParsePrivateKey(testKeyHex)
	require.NoError(t, err)
	b, err := provider.ParsePrivateKey("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(a.PublicKey), crypto.PubkeyToAddress(b.PublicKey))

	_, err = provider.ParsePrivateKey("zz")
	require.ErrorIs(t, err, provider.ErrKeyUnavailable)
}
