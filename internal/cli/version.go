package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/chainpay/internal/version"
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	versionCheck bool
	// releaseClient is replaced in tests.
	releaseClient = version.NewClient()
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show build information",
	Long: `Print the chainpay version, commit and build date. With --check the latest
GitHub release is fetched and compared against the running build.`,
	Example: `  chainpay version
  chainpay version --check -o json`,
	Args:    cobra.NoArgs,
	GroupID: groupConfig,
	RunE:    runVersion,
}

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	version.Build

	Latest *version.Check `json:"latest,omitempty"`
}

func runVersion(cmd *cobra.Command, _ []string) error {
	info := VersionInfo{Build: version.Current()}

	if versionCheck {
		ctx, cancel := contextWithTimeout(cmd, version.DefaultTimeout)
		defer cancel()
		check, err := releaseClient.CheckLatest(ctx, info.Build)
		if err != nil {
			return err
		}
		info.Latest = &check
	}

	if formatter.IsJSON() {
		return formatter.Print(info)
	}

	_ = formatter.Printf("chainpay %s\n", info.Build)
	_ = formatter.Printf("%s %s/%s\n", info.Go, info.OS, info.Arch)
	if info.Latest != nil {
		if info.Latest.Newer {
			return formatter.Printf("A newer release is available: %s (%s)\n", info.Latest.Latest, info.Latest.URL)
		}
		return formatter.Printf("Up to date (latest release %s)\n", info.Latest.Latest)
	}
	return nil
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	versionCmd.Flags().BoolVar(&versionCheck, "check", false, "compare against the latest GitHub release")
	rootCmd.AddCommand(versionCmd)
}
