// Package config provides configuration management for chainpay.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/chainpay/internal/chain"
	"github.com/mrz1836/chainpay/internal/fileutil"
	"github.com/mrz1836/chainpay/internal/network"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Config represents the application configuration.
type Config struct {
	Version  int                        `yaml:"version" validate:"gte=1"`
	Home     string                     `yaml:"home"`
	Network  string                     `yaml:"network"`
	Networks map[string]NetworkOverride `yaml:"networks,omitempty" validate:"dive"`
	Wallet   WalletConfig               `yaml:"wallet"`
	Payment  PaymentConfig              `yaml:"payment"`
	RPC      RPCConfig                  `yaml:"rpc"`
	Output   OutputConfig               `yaml:"output"`
	Logging  LoggingConfig              `yaml:"logging"`
}

// NetworkOverride replaces fields of a built-in network. Keys in
// Config.Networks are network slugs or decimal chain ids.
// An empty field keeps the built-in value; the zero address removes a
// contract address.
type NetworkOverride struct {
	RPC      string `yaml:"rpc,omitempty" validate:"omitempty,url"`
	Explorer string `yaml:"explorer,omitempty" validate:"omitempty,url"`
	USDC     string `yaml:"usdc,omitempty" validate:"omitempty,eth_addr"`
	Escrow   string `yaml:"escrow,omitempty" validate:"omitempty,eth_addr"`
}

// WalletConfig defines the local signing wallet.
type WalletConfig struct {
	Keystore string `yaml:"keystore"`
}

// PaymentConfig defines confirmation and dialog timing.
type PaymentConfig struct {
	PollInterval   time.Duration `yaml:"poll_interval" validate:"gt=0"`
	ConfirmTimeout time.Duration `yaml:"confirm_timeout" validate:"gte=0"`
	AutoCloseDelay time.Duration `yaml:"auto_close_delay" validate:"gte=0"`
}

// RPCConfig defines per-endpoint request limits.
type RPCConfig struct {
	RateLimit float64 `yaml:"rate_limit" validate:"gte=0"`
	Burst     int     `yaml:"burst" validate:"gte=0"`
}

// OutputConfig defines output formatting settings.
type OutputConfig struct {
	DefaultFormat string `yaml:"default_format" validate:"oneof=auto text json"`
	Color         string `yaml:"color" validate:"oneof=auto always never"`
	Verbose       bool   `yaml:"verbose"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=off none error warn info debug"`
	File  string `yaml:"file"`
}

// Load reads configuration from the specified file.
// A missing file yields ErrConfigNotFound.
func Load(path string) (*Config, error) {
	// #nosec G304 -- config file path is from validated user input
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, payerr.WithDetails(payerr.ErrConfigNotFound, map[string]string{"path": path})
		}
		return nil, err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, payerr.WithDetails(payerr.WithCause(payerr.ErrConfigInvalid, err), map[string]string{"path": path})
	}

	return cfg, nil
}

// LoadOrDefault reads path, falling back to the defaults when it does
// not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, payerr.ErrConfigNotFound) {
		return Defaults(), nil
	}
	return cfg, err
}

// Save writes configuration to the specified file, creating its directory.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return fileutil.WriteFile(path, data, 0o600)
}

// Path returns the default config file path.
func Path(home string) string {
	return filepath.Join(home, "config.yaml")
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return payerr.WithCause(payerr.ErrConfigInvalid, err)
	}
	return nil
}

// Registry builds the network registry from the built-in table and the
// configured overrides.
func (c *Config) Registry() (*network.Registry, error) {
	descs := network.DefaultDescriptors()
	index := make(map[string]int, 2*len(descs))
	for i, d := range descs {
		index[d.Slug] = i
		index[strconv.FormatUint(d.ChainID, 10)] = i
	}

	for key, o := range c.Networks {
		i, ok := index[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			return nil, payerr.WithDetails(payerr.ErrConfigInvalid, map[string]string{
				"network": key,
				"reason":  "unknown network in overrides",
			})
		}
		if err := o.apply(&descs[i]); err != nil {
			return nil, payerr.WithDetails(err, map[string]string{"network": key})
		}
	}

	return network.NewRegistry(descs...)
}

func (o NetworkOverride) apply(d *network.Descriptor) error {
	if o.RPC != "" {
		d.RPCURL = o.RPC
	}
	if o.Explorer != "" {
		d.BlockExplorerURL = o.Explorer
	}
	if o.USDC != "" {
		addr, err := chain.OptionalAddress(o.USDC)
		if err != nil {
			return payerr.WithCause(payerr.ErrConfigInvalid, err)
		}
		d.USDCAddress = addr
	}
	if o.Escrow != "" {
		addr, err := chain.OptionalAddress(o.Escrow)
		if err != nil {
			return payerr.WithCause(payerr.ErrConfigInvalid, err)
		}
		d.EscrowAddress = addr
	}
	return nil
}

// GetHome returns the chainpay home directory path.
func (c *Config) GetHome() string {
	return c.Home
}

// GetKeystore returns the keystore path with the home directory expanded.
func (c *Config) GetKeystore() string {
	return ExpandHome(c.Wallet.Keystore)
}

// GetLoggingLevel returns the configured logging level.
func (c *Config) GetLoggingLevel() string {
	return c.Logging.Level
}

// GetLoggingFile returns the configured log file path.
func (c *Config) GetLoggingFile() string {
	return c.Logging.File
}

// GetOutputFormat returns the default output format.
func (c *Config) GetOutputFormat() string {
	return c.Output.DefaultFormat
}

// IsVerbose returns true if verbose output is enabled.
func (c *Config) IsVerbose() bool {
	return c.Output.Verbose
}

// DefaultHome returns the default chainpay home directory.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chainpay"
	}
	return filepath.Join(home, ".chainpay")
}

// ExpandHome expands a leading "~/" to the user's home directory.
func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
