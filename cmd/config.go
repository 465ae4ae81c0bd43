package cmd

import (
	"github.com/spf13/cobra"

	"dfxvm/internal/config"
	"dfxvm/internal/settings"
)

// configCmd prints the settings in effect, defaults included.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective dfxvm settings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := resolveLocations()
		if err != nil {
			return err
		}
		s, err := settings.LoadOrDefault(loc.SettingsPath())
		if err != nil {
			return err
		}
		out, err := config.FromSettings(loc.SettingsPath(), s).Marshal()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
