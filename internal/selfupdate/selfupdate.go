// Package selfupdate replaces the installed dfxvm with the latest release.
//
// A running executable cannot safely overwrite its own file, so the work is
// split in two. SelfUpdate downloads the new release to a side path and execs
// it with --self-replace. The new process, running from that side path, then
// calls SelfReplace to install itself over the old binaries.
package selfupdate

import (
	"context"
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"golang.org/x/sys/unix"

	"dfxvm/internal/download"
	"dfxvm/internal/installation"
	"dfxvm/internal/installer"
	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
	"dfxvm/internal/settings"
)

// SelfReplaceFlag is the private flag that tells a freshly downloaded dfxvm to install itself.
const SelfReplaceFlag = "--self-replace"

const appName = "dfxvm"

// NoReleaseError means the dist manifest lists no dfxvm release.
type NoReleaseError struct {
	URL string
}

func (e *NoReleaseError) Error() string {
	return fmt.Sprintf("no dfxvm release found in %s", e.URL)
}

type distManifest struct {
	Releases []struct {
		AppName    string `json:"app_name"`
		AppVersion string `json:"app_version"`
	} `json:"releases"`
}

// Updater checks for and installs new dfxvm releases.
type Updater struct {
	Locations  *locations.Locations
	Settings   *settings.Settings
	Downloader *download.Downloader
	// CurrentVersion is the version of the running binary.
	CurrentVersion string
	// Exec replaces the current process. nil means unix.Exec.
	Exec func(argv0 string, argv []string, envv []string) error
}

// DistManifestURL is the manifest describing the latest dfxvm release.
func (u *Updater) DistManifestURL() string {
	return u.Settings.DfxvmLatestDownloadRoot() + "/dist-manifest.json"
}

// TarballURL is the dfxvm release archive for this platform.
func (u *Updater) TarballURL() string {
	return u.Settings.DfxvmLatestDownloadRoot() + "/dfxvm-" + installer.PlatformTriple() + ".tar.gz"
}

// LatestVersion asks the dist manifest for the newest dfxvm version.
func (u *Updater) LatestVersion(ctx context.Context) (string, error) {
	url := u.DistManifestURL()
	var manifest distManifest
	if err := u.Downloader.FetchJSON(ctx, url, &manifest); err != nil {
		return "", err
	}
	for _, release := range manifest.Releases {
		if release.AppName == appName {
			return release.AppVersion, nil
		}
	}
	return "", &NoReleaseError{URL: url}
}

// SelfUpdate installs the latest dfxvm if it differs from the running one.
// On success it does not return: the process becomes the new binary.
func (u *Updater) SelfUpdate(ctx context.Context) error {
	logger.Info("[INFO] Checking for self-update\n")
	latest, err := u.LatestVersion(ctx)
	if err != nil {
		return err
	}
	if sameVersion(latest, u.CurrentVersion) {
		logger.Info("[INFO] dfxvm unchanged - %s\n", latest)
		return nil
	}

	logger.Info("[INFO] Updating to %s\n", latest)
	target := u.Locations.SelfUpdatePath()
	if err := u.downloadLatestBinary(ctx, target); err != nil {
		return err
	}

	exec := u.Exec
	if exec == nil {
		exec = unix.Exec
	}
	argv := []string{target, SelfReplaceFlag}
	if err := exec(target, argv, os.Environ()); err != nil {
		return fmt.Errorf("failed to exec %s %s: %w", target, SelfReplaceFlag, err)
	}
	return nil
}

func (u *Updater) downloadLatestBinary(ctx context.Context, target string) error {
	dataDir := u.Locations.DataLocalDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dataDir, err)
	}
	downloadDir, err := os.MkdirTemp(dataDir, "dfxvm-download")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory in %s: %w", dataDir, err)
	}
	defer func() {
		if err := os.RemoveAll(downloadDir); err != nil {
			logger.Warn("[WARN] Failed to remove temporary directory %s: %v\n", downloadDir, err)
		}
	}()

	archive, err := u.Downloader.DownloadVerified(ctx, u.TarballURL(), downloadDir)
	if err != nil {
		return fmt.Errorf("failed to download dfxvm: %w", err)
	}
	format, err := installer.FormatFromPath(archive.Path)
	if err != nil {
		return err
	}
	if err := installer.ExtractFile(archive.Path, format, appName, target); err != nil {
		return err
	}
	if err := os.Chmod(target, 0o755); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", target, err)
	}
	return nil
}

// SelfReplace installs exePath, the running self-update binary, as dfxvm and dfx.
func SelfReplace(loc *locations.Locations, exePath string) error {
	if err := installation.InstallBinaries(loc.BinDir(), exePath); err != nil {
		return fmt.Errorf("failed to replace dfxvm: %w", err)
	}
	logger.Info("[INFO] dfxvm updated\n")
	return nil
}

// CleanupSelfUpdater removes a binary left behind by an earlier self-update.
func CleanupSelfUpdater(loc *locations.Locations) error {
	path := loc.SelfUpdatePath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// sameVersion compares semantically when both sides parse, textually otherwise.
func sameVersion(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Equal(vb)
	}
	return a == b
}
