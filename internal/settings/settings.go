package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"dfxvm/internal/logger"
)

// Defaults used when the corresponding field is absent from the settings file.
const (
	DefaultDownloadURLTemplate     = "https://github.com/dfinity/sdk/releases/download/{{version}}/{{basename}}.{{archive-format}}"
	DefaultManifestURL             = "https://sdk.dfinity.org/manifest.json"
	DefaultDfxvmLatestDownloadRoot = "https://github.com/dfinity/dfxvm/releases/latest/download"
	DefaultArchiveFormat           = "tar.gz"
)

// Keys of the fields this version of dfxvm understands.
const (
	keyDefaultVersion          = "default_version"
	keyDownloadURLTemplate     = "download_url_template"
	keyManifestURL             = "manifest_url"
	keyDfxvmLatestDownloadRoot = "dfxvm_latest_download_root"
	keyArchiveFormat           = "archive_format"
)

var knownKeys = map[string]bool{
	keyDefaultVersion:          true,
	keyDownloadURLTemplate:     true,
	keyManifestURL:             true,
	keyDfxvmLatestDownloadRoot: true,
	keyArchiveFormat:           true,
}

// ParseError reports a settings file that exists but cannot be interpreted.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse settings file %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Extra is one field unknown to this version, kept as the exact bytes it was read as.
type Extra struct {
	Key string
	Raw string
}

// Settings is the persisted settings document.
// Unknown fields are carried in Extras and written back unchanged.
type Settings struct {
	DefaultVersion *semver.Version

	downloadURLTemplate     string
	manifestURL             string
	dfxvmLatestDownloadRoot string
	archiveFormat           string

	Extras []Extra
}

// LoadOrDefault reads the settings file at path.
// A missing file yields default settings; malformed content yields a *ParseError.
func LoadOrDefault(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Debug("[DEBUG] No settings file at %s, using defaults\n", path)
		return &Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return s, nil
}

// Parse interprets a settings document.
func Parse(data []byte) (*Settings, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON")
	}
	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, fmt.Errorf("expected a JSON object")
	}

	s := &Settings{}
	var parseErr error
	doc.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if !knownKeys[name] {
			s.Extras = append(s.Extras, Extra{Key: name, Raw: value.Raw})
			return true
		}
		if value.Type == gjson.Null {
			return true
		}
		if value.Type != gjson.String {
			parseErr = fmt.Errorf("field %q must be a string", name)
			return false
		}
		switch name {
		case keyDefaultVersion:
			v, err := semver.StrictNewVersion(value.String())
			if err != nil {
				parseErr = fmt.Errorf("field %q: invalid version %q: %w", name, value.String(), err)
				return false
			}
			s.DefaultVersion = v
		case keyDownloadURLTemplate:
			s.downloadURLTemplate = value.String()
		case keyManifestURL:
			s.manifestURL = value.String()
		case keyDfxvmLatestDownloadRoot:
			s.dfxvmLatestDownloadRoot = value.String()
		case keyArchiveFormat:
			s.archiveFormat = value.String()
		}
		return true
	})
	if parseErr != nil {
		return nil, parseErr
	}
	return s, nil
}

// Save writes s to path in a single whole-file write, creating the parent directory.
func Save(path string, s *Settings) error {
	data, err := s.Marshal()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	logger.Debug("[DEBUG] Writing settings to %s:\n%s", path, data)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings file %s: %w", path, err)
	}
	return nil
}

// Marshal serializes the known fields that differ from their defaults,
// followed by every preserved unknown field in its original order.
func (s *Settings) Marshal() ([]byte, error) {
	doc := []byte("{}")
	var err error

	set := func(key, value, def string) {
		if err != nil || value == "" || value == def {
			return
		}
		doc, err = sjson.SetBytes(doc, key, value)
	}
	if s.DefaultVersion != nil {
		set(keyDefaultVersion, s.DefaultVersion.String(), "")
	}
	set(keyDownloadURLTemplate, s.downloadURLTemplate, DefaultDownloadURLTemplate)
	set(keyManifestURL, s.manifestURL, DefaultManifestURL)
	set(keyDfxvmLatestDownloadRoot, s.dfxvmLatestDownloadRoot, DefaultDfxvmLatestDownloadRoot)
	set(keyArchiveFormat, s.archiveFormat, DefaultArchiveFormat)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize settings: %w", err)
	}

	for _, extra := range s.Extras {
		if extra.Key == "" {
			logger.Warn("[WARN] Dropping settings field with an empty name\n")
			continue
		}
		doc, err = sjson.SetRawBytes(doc, escapeKey(extra.Key), []byte(extra.Raw))
		if err != nil {
			return nil, fmt.Errorf("failed to serialize settings field %q: %w", extra.Key, err)
		}
	}
	return append(doc, '\n'), nil
}

// DownloadURLTemplate returns the dfx tarball URL template.
// Placeholders: {{version}}, {{basename}}, {{archive-format}}.
func (s *Settings) DownloadURLTemplate() string {
	return valueOr(s.downloadURLTemplate, DefaultDownloadURLTemplate)
}

// ManifestURL returns the URL of the dfx release manifest.
func (s *Settings) ManifestURL() string {
	return valueOr(s.manifestURL, DefaultManifestURL)
}

// DfxvmLatestDownloadRoot returns the URL directory holding the latest dfxvm release.
func (s *Settings) DfxvmLatestDownloadRoot() string {
	return strings.TrimSuffix(valueOr(s.dfxvmLatestDownloadRoot, DefaultDfxvmLatestDownloadRoot), "/")
}

// ArchiveFormat returns the dfx archive extension substituted for {{archive-format}}.
func (s *Settings) ArchiveFormat() string {
	return valueOr(s.archiveFormat, DefaultArchiveFormat)
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// escapeKey turns a literal object key into an sjson path component.
func escapeKey(key string) string {
	var b strings.Builder
	allDigits := true
	for _, r := range key {
		if r < '0' || r > '9' {
			allDigits = false
		}
		switch r {
		case '.', '*', '?', '|', '#', '@', '\\', ':', '!', '=', '<', '>', '%':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	if allDigits {
		return ":" + b.String()
	}
	return b.String()
}
