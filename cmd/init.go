package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"dfxvm/internal/download"
	"dfxvm/internal/initplan"
	"dfxvm/internal/installation"
	"dfxvm/internal/installer"
	"dfxvm/internal/selfupdate"
	"dfxvm/internal/settings"
)

// Flags of `dfxvm-init`.
var (
	initDfxVersion   string
	initYes          bool
	initNoModifyPath bool
	initSelfReplace  bool
)

// initCmd is the first-run installer. It runs under any executable name
// starting with "dfxvm-init".
var initCmd = &cobra.Command{
	Use:           "dfxvm-init",
	Short:         "Install dfxvm and dfx",
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		initLogging()
		loc, err := resolveLocations()
		if err != nil {
			return err
		}

		// A self-update execs the freshly downloaded binary with this flag.
		if initSelfReplace {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("failed to locate the running executable: %w", err)
			}
			return selfupdate.SelfReplace(loc, exe)
		}

		dfxVersion, err := initplan.ParseDfxVersion(initDfxVersion)
		if err != nil {
			return err
		}
		s, err := settings.LoadOrDefault(loc.SettingsPath())
		if err != nil {
			return err
		}

		var ui initplan.UI = initplan.NewHuhUI()
		if initYes {
			ui = initplan.AssumeYesUI{}
		}
		in := &initplan.Initializer{
			Locations: loc,
			ShellEnv:  installation.ShellEnvFromOS(loc.Home()),
			Versions:  installer.NewStore(loc, s, download.New()),
			UI:        ui,
			Out:       cmd.OutOrStdout(),
		}
		options := initplan.DefaultOptions()
		options.DfxVersion = dfxVersion
		options.ModifyPath = !initNoModifyPath
		_, err = in.Run(cmd.Context(), options)
		return err
	},
}

func init() {
	initCmd.Flags().StringVar(&initDfxVersion, "dfx-version", "latest", "dfx version to install and make the default")
	initCmd.Flags().BoolVarP(&initYes, "yes", "y", false, "Install with the default options without prompting")
	initCmd.Flags().BoolVar(&initNoModifyPath, "no-modify-path", false, "Do not add the dfxvm bin directory to PATH")
	initCmd.Flags().BoolVar(&initSelfReplace, selfupdate.SelfReplaceFlag[2:], false, "Replace the installed dfxvm with this binary")
	_ = initCmd.Flags().MarkHidden(selfupdate.SelfReplaceFlag[2:])
	initCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	initCmd.SetOut(os.Stdout)
}
