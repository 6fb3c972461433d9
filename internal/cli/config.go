package cli

import (
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mrz1836/chainpay/internal/config"
	"github.com/mrz1836/chainpay/internal/output"
	payerr "github.com/mrz1836/chainpay/pkg/errors"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configForce bool

// configCmd is the parent command for configuration operations.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configCmd = &cobra.Command{
	Use:     "config",
	Short:   "Manage configuration",
	Long:    `View and create the chainpay configuration file.`,
	GroupID: groupConfig,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Create config.yaml in the chainpay home directory with default settings.
An existing file is left untouched unless --force is given.`,
	Example: `  chainpay config init
  chainpay config init --home /tmp/chainpay --force`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Print the configuration after defaults, the config file and environment
overrides are applied.`,
	Example: `  chainpay config show
  chainpay config show -o json`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var configPathCmd = &cobra.Command{
	Use:     "path",
	Short:   "Print the configuration file path",
	Long:    `Print where chainpay reads config.yaml from.`,
	Example: `  chainpay config path`,
	Args:    cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		return formatter.Println(config.Path(cfg.GetHome()))
	},
}

func runConfigInit(_ *cobra.Command, _ []string) error {
	path := config.Path(cfg.GetHome())
	if _, err := os.Stat(path); err == nil && !configForce {
		return payerr.WithSuggestion(
			payerr.WithDetails(payerr.ErrInvalidInput, map[string]string{"path": path, "reason": "config file already exists"}),
			"use --force to overwrite",
		)
	}

	defaults := config.Defaults()
	defaults.Home = cfg.GetHome()
	if err := config.Save(defaults, path); err != nil {
		return err
	}
	logger.Info("wrote default config to %s", path)
	return output.FormatSuccess(formatter.Writer(), "Configuration written to "+path, formatter.Format())
}

func runConfigShow(_ *cobra.Command, _ []string) error {
	if formatter.IsJSON() {
		return formatter.Print(cfg)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return payerr.Wrap(err, "encoding configuration")
	}
	_, err = formatter.Writer().Write(data)
	return err
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd)
}
