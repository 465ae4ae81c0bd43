package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"dfxvm/internal/download"
	"dfxvm/internal/installer"
	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
	"dfxvm/internal/selfupdate"
	"dfxvm/internal/settings"
)

// version is the dfxvm release this binary was built from.
// Release builds override it with -ldflags "-X dfxvm/cmd.version=...".
var version = "0.1.0"

// debug flag indicates whether debug logging should be enabled.
// It can be toggled via the `--debug` flag or DFXVM_DEBUG.
var debug bool

// rootCmd is the base command for `dfxvm`, the version manager.
var rootCmd = &cobra.Command{
	Use:           "dfxvm",
	Short:         "The dfx version manager",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,

	// PersistentPreRunE runs before any subcommand. It sets up logging and
	// removes a binary left behind by an interrupted self-update.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		loc, err := resolveLocations()
		if err != nil {
			return err
		}
		return selfupdate.CleanupSelfUpdater(loc)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

func initLogging() {
	logger.Init(debug || os.Getenv("DFXVM_DEBUG") != "")
}

func resolveLocations() (*locations.Locations, error) {
	return locations.Resolve(locations.EnvironmentFromOS())
}

// loadStore reads the settings file and returns a Store over the real paths.
func loadStore() (*installer.Store, error) {
	loc, err := resolveLocations()
	if err != nil {
		return nil, err
	}
	s, err := settings.LoadOrDefault(loc.SettingsPath())
	if err != nil {
		return nil, err
	}
	return installer.NewStore(loc, s, download.New()), nil
}
