package installer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Masterminds/semver/v3"

	"dfxvm/internal/logger"
	"dfxvm/internal/settings"
)

// ErrNoDefaultVersion is returned when asked for the default before one was set.
var ErrNoDefaultVersion = errors.New("no default dfx version is configured; run 'dfxvm default <version>' or 'dfxvm update'")

// SetDefault installs v if needed and records it as the default version.
func (s *Store) SetDefault(ctx context.Context, v *semver.Version) error {
	if s.IsInstalled(v) {
		logger.Info("[INFO] Using existing install for dfx %s\n", v)
	} else if err := s.Install(ctx, v); err != nil {
		return err
	}

	if s.settings.DefaultVersion != nil && s.settings.DefaultVersion.Equal(v) {
		logger.Info("[INFO] dfx %s is already the default version\n", v)
		return nil
	}
	s.settings.DefaultVersion = v
	if err := settings.Save(s.locations.SettingsPath(), s.settings); err != nil {
		return err
	}
	logger.Info("[INFO] Set default version to dfx %s\n", v)
	return nil
}

// DisplayDefault writes the default version to w.
func (s *Store) DisplayDefault(w io.Writer) error {
	if s.settings.DefaultVersion == nil {
		return ErrNoDefaultVersion
	}
	_, err := fmt.Fprintln(w, s.settings.DefaultVersion)
	return err
}

// Update makes the newest published dfx the default.
func (s *Store) Update(ctx context.Context) error {
	logger.Info("[INFO] Fetching %s\n", s.settings.ManifestURL())
	manifest, err := s.FetchManifest(ctx)
	if err != nil {
		return err
	}
	logger.Info("[INFO] Latest dfx version is %s\n", manifest.Latest)
	return s.SetDefault(ctx, manifest.Latest)
}

// ListAvailable returns up to limit published versions, newest first.
func (s *Store) ListAvailable(ctx context.Context, limit int) ([]*semver.Version, error) {
	logger.Info("[INFO] Fetching %s\n", s.settings.ManifestURL())
	manifest, err := s.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	n := len(manifest.Versions)
	if limit >= 0 && limit < n {
		n = limit
	}
	available := make([]*semver.Version, 0, n)
	for i := len(manifest.Versions) - 1; i >= 0 && len(available) < n; i-- {
		available = append(available, manifest.Versions[i])
	}
	return available, nil
}

// WriteInstalled prints installed versions to w, marking the default.
func (s *Store) WriteInstalled(w io.Writer) error {
	versions, err := s.List()
	if err != nil {
		return err
	}
	for _, v := range versions {
		marker := ""
		if s.settings.DefaultVersion != nil && s.settings.DefaultVersion.Equal(v) {
			marker = " (default)"
		}
		if _, err := fmt.Fprintf(w, "%s%s\n", v, marker); err != nil {
			return err
		}
	}
	return nil
}
