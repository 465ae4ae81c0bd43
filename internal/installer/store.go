package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/Masterminds/semver/v3"

	"dfxvm/internal/download"
	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
	"dfxvm/internal/settings"
)

// renameFn is the commit step of an install. Tests replace it to simulate a
// failure between extraction and commit.
var renameFn = os.Rename

// Store manages the versions directory: one subdirectory per installed dfx.
type Store struct {
	locations  *locations.Locations
	settings   *settings.Settings
	downloader *download.Downloader
}

// NewStore builds a Store over the given paths, settings and downloader.
func NewStore(loc *locations.Locations, s *settings.Settings, d *download.Downloader) *Store {
	return &Store{locations: loc, settings: s, downloader: d}
}

// IsInstalled reports whether dfx v has a committed version directory.
func (s *Store) IsInstalled(v *semver.Version) bool {
	return isDir(s.locations.VersionDir(v))
}

// DownloadURL is where the release archive for v is fetched from.
func (s *Store) DownloadURL(v *semver.Version) string {
	return formatDownloadURL(s.settings.DownloadURLTemplate(), v, TarballBasename(), s.settings.ArchiveFormat())
}

// Install downloads, verifies and unpacks dfx v. The version directory appears
// through a single rename of a fully extracted sibling, so it either does not
// exist or is complete.
func (s *Store) Install(ctx context.Context, v *semver.Version) error {
	if s.IsInstalled(v) {
		logger.Info("[INFO] dfx %s is already installed\n", v)
		return nil
	}
	versionsDir := s.locations.VersionsDir()
	if err := os.MkdirAll(versionsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", versionsDir, err)
	}

	logger.Info("[INFO] Installing dfx %s\n", v)

	downloadDir, err := os.MkdirTemp("", "dfxvm-download")
	if err != nil {
		return fmt.Errorf("failed to create temporary download directory: %w", err)
	}
	defer removeAllLogged(downloadDir)

	archive, err := s.downloader.DownloadVerified(ctx, s.DownloadURL(v), downloadDir)
	if err != nil {
		return fmt.Errorf("failed to download dfx %s: %w", v, err)
	}

	installDir, err := os.MkdirTemp(versionsDir, ".install")
	if err != nil {
		return fmt.Errorf("failed to create temporary directory in %s: %w", versionsDir, err)
	}
	defer removeAllLogged(installDir)

	logger.Info("[INFO] Extracting archive\n")
	if err := ExtractArchiveAs(archive.Path, s.settings.ArchiveFormat(), installDir); err != nil {
		return err
	}

	extracted := filepath.Join(installDir, TarballBasename())
	if !isDir(extracted) {
		return fmt.Errorf("archive %s does not contain directory %s", archive.Path, TarballBasename())
	}

	versionDir := s.locations.VersionDir(v)
	if err := renameFn(extracted, versionDir); err != nil {
		if s.IsInstalled(v) {
			logger.Info("[INFO] dfx %s was installed by another process\n", v)
			return nil
		}
		return fmt.Errorf("failed to rename %s to %s: %w", extracted, versionDir, err)
	}

	logger.Info("[INFO] Installed dfx %s\n", v)
	return nil
}

// Uninstall removes dfx v. The directory is first renamed to a marker so that
// nothing ever observes a half-deleted version under the canonical name.
func (s *Store) Uninstall(v *semver.Version) error {
	versionDir := s.locations.VersionDir(v)
	if !s.IsInstalled(v) {
		logger.Info("[INFO] dfx %s is not installed\n", v)
		return nil
	}

	logger.Info("[INFO] Uninstalling dfx %s\n", v)
	marker := s.locations.UninstallMarker(v)
	if err := os.RemoveAll(marker); err != nil {
		return fmt.Errorf("failed to remove stale %s: %w", marker, err)
	}
	if err := os.Rename(versionDir, marker); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", versionDir, marker, err)
	}
	if err := os.RemoveAll(marker); err != nil {
		return fmt.Errorf("failed to remove %s: %w", marker, err)
	}
	logger.Info("[INFO] Uninstalled dfx %s\n", v)
	return nil
}

// List returns the installed versions in ascending semantic-version order.
// Entries whose names are not versions are ignored.
func (s *Store) List() ([]*semver.Version, error) {
	versionsDir := s.locations.VersionsDir()
	entries, err := os.ReadDir(versionsDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", versionsDir, err)
	}

	var versions semver.Collection
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		v, err := semver.StrictNewVersion(entry.Name())
		if err != nil {
			logger.Debug("[DEBUG] Ignoring %s in versions directory\n", entry.Name())
			continue
		}
		versions = append(versions, v)
	}
	sort.Sort(versions)
	return versions, nil
}
