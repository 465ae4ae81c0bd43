package cmd

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

// listAvailable and listLimit back the `list` flags.
var (
	listAvailable bool
	listLimit     int
)

// defaultCmd shows or changes the dfx version used outside of projects.
var defaultCmd = &cobra.Command{
	Use:   "default [version]",
	Short: "Show or set the default dfx version",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return store.DisplayDefault(cmd.OutOrStdout())
		}
		v, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		return store.SetDefault(cmd.Context(), v)
	},
}

// installCmd installs one dfx version without changing the default.
var installCmd = &cobra.Command{
	Use:   "install <version>",
	Short: "Install a dfx version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		store, err := loadStore()
		if err != nil {
			return err
		}
		return store.Install(cmd.Context(), v)
	},
}

// uninstallCmd removes one installed dfx version.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall <version>",
	Short: "Uninstall a dfx version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseVersion(args[0])
		if err != nil {
			return err
		}
		store, err := loadStore()
		if err != nil {
			return err
		}
		return store.Uninstall(v)
	},
}

// listCmd lists installed versions, or published ones with --available.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed dfx versions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		if !listAvailable {
			return store.WriteInstalled(cmd.OutOrStdout())
		}
		versions, err := store.ListAvailable(cmd.Context(), listLimit)
		if err != nil {
			return err
		}
		for _, v := range versions {
			fmt.Fprintln(cmd.OutOrStdout(), v)
		}
		return nil
	},
}

// updateCmd installs the latest dfx and makes it the default.
var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Install the latest dfx and make it the default",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := loadStore()
		if err != nil {
			return err
		}
		return store.Update(cmd.Context())
	},
}

func parseVersion(s string) (*semver.Version, error) {
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid dfx version %q: %w", s, err)
	}
	return v, nil
}

func init() {
	listCmd.Flags().BoolVar(&listAvailable, "available", false, "List versions available to install")
	listCmd.Flags().IntVar(&listLimit, "limit", 10, "Maximum number of available versions to list (negative for all)")

	rootCmd.AddCommand(defaultCmd, installCmd, uninstallCmd, listCmd, updateCmd)
	rootCmd.SetOut(os.Stdout)
}
