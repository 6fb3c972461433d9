// Package cli implements the chainpay command-line interface.
//
// Cobra commands share package-level state initialized in PersistentPreRunE
// and released in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/config"
	"github.com/mrz1836/chainpay/internal/output"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

// Command groups shown in root help.
const (
	groupPayment = "payment"
	groupWallet  = "wallet"
	groupConfig  = "config"
)

var (
	// Global flags
	homeDir      string
	outputFormat string
	networkName  string
	verbose      bool
	assumeYes    bool

	// Global state initialized in PersistentPreRunE
	cfg       *config.Config
	logger    *config.Logger
	formatter *output.Formatter
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "chainpay",
	Short: "Pay freelance contracts on EVM chains",
	Long: `chainpay settles marketplace contracts on-chain from the terminal.

It signs with a local keystore, pays in a chain's native currency or in USDC,
handles the ERC-20 approval step, switches networks on request and waits for
each transaction to confirm before reporting the explorer link.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return initGlobals(cmd)
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command. An interrupt cancels the command context,
// which stops any confirmation wait in progress.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	walkCommands(rootCmd, enrichParentLong)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		format := output.FormatText
		if formatter != nil {
			format = formatter.Format()
		}
		_ = output.FormatError(rootCmd.ErrOrStderr(), err, format)
		return err
	}
	return nil
}

// ExitCode returns the appropriate exit code for an error.
func ExitCode(err error) int {
	return payerr.ExitCode(err)
}

// initGlobals loads configuration and builds the logger and formatter.
// A missing config file falls back to defaults; an invalid one is an error.
func initGlobals(cmd *cobra.Command) error {
	home := homeDir
	if home == "" {
		home = os.Getenv(config.EnvHome)
	}
	if home == "" {
		home = config.DefaultHome()
	}

	var err error
	cfg, err = config.Load(config.Path(home))
	if err != nil {
		if !errors.Is(err, payerr.ErrConfigNotFound) {
			return err
		}
		cfg = config.Defaults()
	}
	cfg.Home = home

	config.ApplyEnvironment(cfg)

	if homeDir != "" {
		cfg.Home = homeDir
	}
	if verbose {
		cfg.Output.Verbose = true
		cfg.Logging.Level = "debug"
	}
	if outputFormat != "" && outputFormat != "auto" {
		cfg.Output.DefaultFormat = outputFormat
	}
	if err = cfg.Validate(); err != nil {
		return err
	}

	logger, err = config.NewLogger(config.ParseLogLevel(cfg.Logging.Level), cfg.GetLoggingFile())
	if err != nil {
		logger = config.NullLogger()
	}

	explicit := output.ParseFormat(cfg.Output.DefaultFormat)
	formatter = output.NewFormatter(output.DetectFormat(cmd.OutOrStdout(), explicit), cmd.OutOrStdout()).
		WithStatus(cmd.ErrOrStderr())

	return nil
}

// cleanup releases resources.
func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

// Config returns the global configuration.
func Config() *config.Config {
	return cfg
}

// Logger returns the global logger.
func Logger() *config.Logger {
	return logger
}

// Formatter returns the global output formatter.
func Formatter() *output.Formatter {
	return formatter
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for flag registration
func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: groupPayment, Title: "Payment Operations:"},
		&cobra.Group{ID: groupWallet, Title: "Wallet & Networks:"},
		&cobra.Group{ID: groupConfig, Title: "Configuration:"},
	)
	rootCmd.SetHelpCommandGroupID(groupConfig)

	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "chainpay data directory (default: ~/.chainpay)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "auto", "output format: text, json, auto")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", "", "target network by name, slug or chain id (default: configured network)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&assumeYes, "yes", "y", false, "approve every wallet prompt without asking")
}
