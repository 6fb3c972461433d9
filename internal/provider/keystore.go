package provider

import (
	"crypto/ecdsa"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"

	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// ErrKeyUnavailable indicates the signing key could not be loaded.
var ErrKeyUnavailable = &payerr.PayError{
	Code:       "KEY_UNAVAILABLE",
	Message:    "signing key could not be loaded",
	Suggestion: "check the keystore path and passphrase",
	ExitCode:   payerr.ExitPermission,
}

// LoadKeystore decrypts a Web3 Secret Storage (v3) key file.
func LoadKeystore(path, passphrase string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from user configuration
	if err != nil {
		return nil, payerr.WithDetails(payerr.WithCause(ErrKeyUnavailable, err), map[string]string{"path": path})
	}
	return DecryptKeystore(data, passphrase)
}

// DecryptKeystore decrypts keystore JSON.
func DecryptKeystore(data []byte, passphrase string) (*ecdsa.PrivateKey, error) {
	key, err := keystore.DecryptKey(data, passphrase)
	if err != nil {
		return nil, payerr.WithCause(ErrKeyUnavailable, err)
	}
	return key.PrivateKey, nil
}

// ParsePrivateKey parses a hex-encoded secp256k1 key, with or without 0x.
func ParsePrivateKey(s string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, payerr.WithCause(ErrKeyUnavailable, err)
	}
	return key, nil
}
