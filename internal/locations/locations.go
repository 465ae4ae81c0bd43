package locations

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Masterminds/semver/v3"
	"github.com/mitchellh/go-homedir"
)

// ErrNoHomeDirectory is returned when the home directory cannot be determined.
var ErrNoHomeDirectory = errors.New("unable to determine home directory")

const (
	settingsFilename   = "version-manager.json"
	selfUpdateFilename = "dfxvm-init-self-update"
)

// Environment is the subset of the process environment that paths derive from.
// Tests build one directly instead of mutating the real environment.
type Environment struct {
	Home        string // $HOME
	XDGDataHome string // $XDG_DATA_HOME, honoured only when absolute
	GOOS        string // runtime.GOOS unless overridden
}

// EnvironmentFromOS captures the current process environment.
func EnvironmentFromOS() Environment {
	home, err := homedir.Dir()
	if err != nil {
		home = ""
	}
	return Environment{
		Home:        home,
		XDGDataHome: os.Getenv("XDG_DATA_HOME"),
		GOOS:        runtime.GOOS,
	}
}

// Locations holds every on-disk path the manager uses.
// It is computed once and never mutated.
type Locations struct {
	home         string
	dataLocalDir string
	configDir    string
	cacheDir     string
	useXDG       bool
	goos         string
}

// FromOS resolves Locations from the current process environment.
func FromOS() (*Locations, error) {
	return Resolve(EnvironmentFromOS())
}

// Resolve computes all paths from env. It fails only when there is no home directory.
func Resolve(env Environment) (*Locations, error) {
	if env.Home == "" {
		return nil, ErrNoHomeDirectory
	}
	goos := env.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	l := &Locations{
		home:      env.Home,
		configDir: filepath.Join(env.Home, ".config", "dfx"),
		cacheDir:  filepath.Join(env.Home, ".cache", "dfinity"),
		goos:      goos,
	}
	switch {
	case goos == "darwin":
		l.dataLocalDir = filepath.Join(env.Home, "Library", "Application Support", "org.dfinity.dfx")
	case env.XDGDataHome != "" && filepath.IsAbs(env.XDGDataHome):
		l.useXDG = true
		l.dataLocalDir = filepath.Join(env.XDGDataHome, "dfx")
	default:
		l.dataLocalDir = filepath.Join(env.Home, ".local", "share", "dfx")
	}
	return l, nil
}

// Home returns the home directory the paths were derived from.
func (l *Locations) Home() string { return l.home }

// DataLocalDir is the root of all manager-owned state.
func (l *Locations) DataLocalDir() string { return l.dataLocalDir }

// BinDir holds the dfxvm and dfx executables.
func (l *Locations) BinDir() string { return filepath.Join(l.dataLocalDir, "bin") }

// VersionsDir holds one directory per installed dfx version.
func (l *Locations) VersionsDir() string { return filepath.Join(l.dataLocalDir, "versions") }

// VersionDir is the install location of one dfx version.
func (l *Locations) VersionDir(v *semver.Version) string {
	return filepath.Join(l.VersionsDir(), v.String())
}

// DfxBinPath is the dfx executable inside a version directory.
func (l *Locations) DfxBinPath(v *semver.Version) string {
	return filepath.Join(l.VersionDir(v), "dfx")
}

// UninstallMarker is the sibling a version directory is renamed to before deletion.
func (l *Locations) UninstallMarker(v *semver.Version) string {
	return filepath.Join(l.VersionsDir(), ".uninstall-"+v.String())
}

// DfxvmPath is the installed manager binary.
func (l *Locations) DfxvmPath() string { return filepath.Join(l.BinDir(), "dfxvm") }

// DfxProxyPath is the installed dfx proxy, a hard link to DfxvmPath.
func (l *Locations) DfxProxyPath() string { return filepath.Join(l.BinDir(), "dfx") }

// SelfUpdatePath is where a freshly downloaded dfxvm waits to replace the installed one.
// Its name starts with "dfxvm-init" so that executing it dispatches into init mode.
func (l *Locations) SelfUpdatePath() string {
	return filepath.Join(l.dataLocalDir, selfUpdateFilename)
}

// EnvPath is the shell snippet that puts BinDir on PATH.
func (l *Locations) EnvPath() string { return filepath.Join(l.dataLocalDir, "env") }

// NetworkDir holds dfx's shared local network state.
func (l *Locations) NetworkDir() string { return filepath.Join(l.dataLocalDir, "network") }

// CacheDir is dfx's shared cache, also used by the legacy installer.
func (l *Locations) CacheDir() string { return l.cacheDir }

// LegacyUninstallScript is left behind by the pre-dfxvm installer.
func (l *Locations) LegacyUninstallScript() string {
	return filepath.Join(l.cacheDir, "uninstall.sh")
}

// ConfigDir is the user configuration directory. The manager never deletes it.
func (l *Locations) ConfigDir() string { return l.configDir }

// SettingsPath is the persisted settings document.
func (l *Locations) SettingsPath() string { return filepath.Join(l.configDir, settingsFilename) }

// DataLocalDirUserFacing is DataLocalDir spelled with shell variables,
// so it can be written into profile scripts.
func (l *Locations) DataLocalDirUserFacing() string {
	switch {
	case l.goos == "darwin":
		return "$HOME/Library/Application Support/org.dfinity.dfx"
	case l.useXDG:
		return "$XDG_DATA_HOME/dfx"
	default:
		return "$HOME/.local/share/dfx"
	}
}

// BinDirUserFacing is BinDir spelled with shell variables.
func (l *Locations) BinDirUserFacing() string {
	return l.DataLocalDirUserFacing() + "/bin"
}

// EnvPathUserFacing is EnvPath spelled with shell variables.
func (l *Locations) EnvPathUserFacing() string {
	return l.DataLocalDirUserFacing() + "/env"
}
