// Package proxy runs the dfx version a project or user has selected.
package proxy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/gjson"
	"golang.org/x/sys/unix"

	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
	"dfxvm/internal/selfupdate"
	"dfxvm/internal/settings"
)

// ErrUpgradeUnsupported is returned for `dfx upgrade`, which dfxvm replaces.
var ErrUpgradeUnsupported = errors.New("the command `dfx upgrade` doesn't work with dfxvm; to upgrade dfx, run: dfxvm update")

// ErrNoVersion is returned when nothing selects a dfx version.
var ErrNoVersion = errors.New("unable to determine which dfx version to call; to set a default version, run: dfxvm default <version>")

// NotInstalledError means the selected version has no dfx binary.
type NotInstalledError struct {
	Version *semver.Version
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("dfx %s is not installed; to install it, run: dfxvm install %s", e.Version, e.Version)
}

// VersionSource names where a version came from.
type VersionSource string

const (
	FromCommandLine VersionSource = "command line"
	FromEnvironment VersionSource = "DFX_VERSION"
	FromDfxJSON     VersionSource = "dfx.json"
	FromSettings    VersionSource = "default version"
)

// Proxy resolves a dfx version and replaces the current process with it.
type Proxy struct {
	Locations *locations.Locations
	// Getenv reads the environment. nil means os.Getenv.
	Getenv func(string) string
	// Getwd returns the directory dfx.json lookup starts from. nil means os.Getwd.
	Getwd func() (string, error)
	// Environ is the environment passed on to dfx. nil means os.Environ.
	Environ func() []string
	// Exec replaces the current process. nil means unix.Exec.
	Exec func(argv0 string, argv []string, envv []string) error
}

func (p *Proxy) getenv(key string) string {
	if p.Getenv == nil {
		return os.Getenv(key)
	}
	return p.Getenv(key)
}

// Run execs the selected dfx with args, which exclude the program name.
// It only returns on failure.
func (p *Proxy) Run(args []string) error {
	if IsUpgradeCommand(args) {
		return ErrUpgradeUnsupported
	}
	if err := selfupdate.CleanupSelfUpdater(p.Locations); err != nil {
		return err
	}

	version, source, rest, err := p.ResolveVersion(args)
	if err != nil {
		return err
	}
	if version == nil {
		return ErrNoVersion
	}
	logger.Debug("[DEBUG] Using dfx %s from %s\n", version, source)

	binPath := p.Locations.DfxBinPath(version)
	if _, err := os.Stat(binPath); err != nil {
		if os.IsNotExist(err) {
			return &NotInstalledError{Version: version}
		}
		return fmt.Errorf("failed to stat %s: %w", binPath, err)
	}

	environ := p.Environ
	if environ == nil {
		environ = os.Environ
	}
	env := setEnv(environ(), "DFX_VERSION", version.String())
	env = setEnv(env, "PATH", p.Locations.VersionDir(version)+string(os.PathListSeparator)+p.getenv("PATH"))

	exec := p.Exec
	if exec == nil {
		exec = unix.Exec
	}
	argv := append([]string{binPath}, rest...)
	if err := exec(binPath, argv, env); err != nil {
		return fmt.Errorf("failed to execute %s: %w", binPath, err)
	}
	return nil
}

// ResolveVersion walks the selection chain: a leading +<version> argument,
// then DFX_VERSION, then the nearest dfx.json, then the persisted default.
// It returns the arguments left for dfx. A nil version means nothing matched.
func (p *Proxy) ResolveVersion(args []string) (*semver.Version, VersionSource, []string, error) {
	if len(args) > 0 && strings.HasPrefix(args[0], "+") {
		v, err := semver.StrictNewVersion(args[0][1:])
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to parse version %q from the command line: %w", args[0][1:], err)
		}
		return v, FromCommandLine, args[1:], nil
	}

	if raw := strings.TrimSpace(p.getenv("DFX_VERSION")); raw != "" {
		v, err := semver.StrictNewVersion(raw)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to parse DFX_VERSION %q: %w", raw, err)
		}
		return v, FromEnvironment, args, nil
	}

	getwd := p.Getwd
	if getwd == nil {
		getwd = os.Getwd
	}
	cwd, err := getwd()
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to get the current directory: %w", err)
	}
	v, err := VersionFromDfxJSON(cwd)
	if err != nil {
		return nil, "", nil, err
	}
	if v != nil {
		return v, FromDfxJSON, args, nil
	}

	s, err := settings.LoadOrDefault(p.Locations.SettingsPath())
	if err != nil {
		return nil, "", nil, err
	}
	if s.DefaultVersion != nil {
		return s.DefaultVersion, FromSettings, args, nil
	}
	return nil, "", args, nil
}

// VersionFromDfxJSON reads the "dfx" field of the dfx.json nearest to dir,
// searching dir and then its ancestors. It returns nil when no dfx.json is
// found or the field is absent.
func VersionFromDfxJSON(dir string) (*semver.Version, error) {
	path, err := findDfxJSON(dir)
	if err != nil || path == "" {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse %s: invalid JSON", path)
	}
	field := gjson.GetBytes(data, "dfx")
	switch field.Type {
	case gjson.Null:
		return nil, nil
	case gjson.String:
	default:
		return nil, fmt.Errorf("failed to parse %s: field \"dfx\" must be a string", path)
	}
	v, err := semver.StrictNewVersion(field.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse dfx version %q in %s: %w", field.String(), path, err)
	}
	return v, nil
}

func findDfxJSON(dir string) (string, error) {
	dir, err := filepath.EvalSymlinks(dir)
	if err != nil {
		return "", fmt.Errorf("failed to canonicalize %s: %w", dir, err)
	}
	for {
		candidate := filepath.Join(dir, "dfx.json")
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}

// IsUpgradeCommand reports whether the first word of args that is not a
// flag or a flag value is "upgrade".
func IsUpgradeCommand(args []string) bool {
	skipNext := false
	for _, arg := range args {
		if skipNext {
			skipNext = false
			continue
		}
		if strings.HasPrefix(arg, "-") {
			switch arg {
			case "--identity", "--network", "--logfile":
				skipNext = true
			}
			continue
		}
		return arg == "upgrade"
	}
	return false
}

func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, prefix) {
			out = append(out, kv)
		}
	}
	return append(out, prefix+value)
}
