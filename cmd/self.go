package cmd

import (
	"errors"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"dfxvm/internal/download"
	"dfxvm/internal/initplan"
	"dfxvm/internal/installation"
	"dfxvm/internal/logger"
	"dfxvm/internal/selfupdate"
	"dfxvm/internal/settings"
	"dfxvm/internal/uninstall"
)

// assumeYes skips the confirmation prompt of `self uninstall`.
var assumeYes bool

// confirmUninstall asks before anything is deleted. Tests replace it.
var confirmUninstall = func() (bool, error) {
	if !isatty.IsTerminal(os.Stdin.Fd()) && !isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return false, &initplan.InteractError{Err: errors.New("stdin is not a terminal; pass --yes to uninstall without confirmation")}
	}
	confirmed := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Really uninstall dfxvm and every installed version of dfx?").
			Affirmative("Uninstall").
			Negative("Cancel").
			Value(&confirmed),
	))
	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, &initplan.InteractError{Err: err}
	}
	return confirmed, nil
}

// selfCmd groups the commands that act on dfxvm itself.
var selfCmd = &cobra.Command{
	Use:   "self",
	Short: "Manage the dfxvm installation",
}

// selfUpdateCmd replaces dfxvm with its latest release.
var selfUpdateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update dfxvm to the latest version",
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
		updater := &selfupdate.Updater{
			Locations:      loc,
			Settings:       s,
			Downloader:     download.New(),
			CurrentVersion: version,
		}
		return updater.SelfUpdate(cmd.Context())
	},
}

// selfUninstallCmd removes dfxvm, every dfx and the PATH setup.
var selfUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall dfxvm and all versions of dfx",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !assumeYes {
			confirmed, err := confirmUninstall()
			if err != nil {
				return err
			}
			if !confirmed {
				logger.Info("[INFO] Aborting uninstall\n")
				return nil
			}
		}
		loc, err := resolveLocations()
		if err != nil {
			return err
		}
		u := &uninstall.Uninstaller{
			Locations: loc,
			ShellEnv:  installation.ShellEnvFromOS(loc.Home()),
			Out:       cmd.OutOrStdout(),
		}
		return u.Run(cmd.Context())
	},
}

func init() {
	selfUninstallCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Uninstall without asking for confirmation")

	selfCmd.AddCommand(selfUpdateCmd, selfUninstallCmd)
	rootCmd.AddCommand(selfCmd)
}
