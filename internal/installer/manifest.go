package installer

import (
	"context"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ManifestError reports a release manifest that could not be fetched or understood.
type ManifestError struct {
	URL string
	Err error
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("failed to read release manifest %s: %v", e.URL, e.Err)
}

func (e *ManifestError) Unwrap() error { return e.Err }

// manifestDocument is the wire shape of the dfx release manifest.
type manifestDocument struct {
	Tags struct {
		Latest string `json:"latest"`
	} `json:"tags"`
	Versions []string `json:"versions"`
}

// ReleaseManifest lists the published dfx versions.
type ReleaseManifest struct {
	Latest *semver.Version
	// Versions in manifest order, oldest first.
	Versions []*semver.Version
}

// FetchManifest downloads and validates the release manifest named in settings.
func (s *Store) FetchManifest(ctx context.Context) (*ReleaseManifest, error) {
	url := s.settings.ManifestURL()
	var doc manifestDocument
	if err := s.downloader.FetchJSON(ctx, url, &doc); err != nil {
		return nil, &ManifestError{URL: url, Err: err}
	}

	latest, err := semver.StrictNewVersion(doc.Tags.Latest)
	if err != nil {
		return nil, &ManifestError{URL: url, Err: fmt.Errorf("tags.latest %q: %w", doc.Tags.Latest, err)}
	}
	m := &ReleaseManifest{Latest: latest}
	for _, raw := range doc.Versions {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			return nil, &ManifestError{URL: url, Err: fmt.Errorf("version %q: %w", raw, err)}
		}
		m.Versions = append(m.Versions, v)
	}
	return m, nil
}
