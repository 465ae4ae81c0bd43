// Package config renders the settings dfxvm is actually running with.
package config

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"

	"dfxvm/internal/settings"
)

// Effective is the settings document with every default filled in.
type Effective struct {
	SettingsPath            string         `yaml:"settings_path"`
	DefaultVersion          string         `yaml:"default_version,omitempty"`
	DownloadURLTemplate     string         `yaml:"download_url_template"`
	ManifestURL             string         `yaml:"manifest_url"`
	DfxvmLatestDownloadRoot string         `yaml:"dfxvm_latest_download_root"`
	ArchiveFormat           string         `yaml:"archive_format"`
	Extras                  map[string]any `yaml:"extras,omitempty"`
}

// FromSettings resolves s, loaded from path, into its effective values.
// Fields this version does not know are listed under extras.
func FromSettings(path string, s *settings.Settings) *Effective {
	e := &Effective{
		SettingsPath:            path,
		DownloadURLTemplate:     s.DownloadURLTemplate(),
		ManifestURL:             s.ManifestURL(),
		DfxvmLatestDownloadRoot: s.DfxvmLatestDownloadRoot(),
		ArchiveFormat:           s.ArchiveFormat(),
	}
	if s.DefaultVersion != nil {
		e.DefaultVersion = s.DefaultVersion.String()
	}
	for _, extra := range s.Extras {
		if e.Extras == nil {
			e.Extras = make(map[string]any)
		}
		// JSON is a subset of YAML, so the raw bytes decode directly.
		var v any
		if err := yaml.Unmarshal([]byte(extra.Raw), &v); err != nil {
			v = extra.Raw
		}
		e.Extras[extra.Key] = v
	}
	return e
}

// Marshal renders e as YAML.
func (e *Effective) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("failed to render settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to render settings: %w", err)
	}
	return buf.Bytes(), nil
}
