package initplan

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"dfxvm/internal/installation"
	"dfxvm/internal/locations"
)

// DfxVersion is either "latest" (Specific == nil) or a pinned version.
type DfxVersion struct {
	Specific *semver.Version
}

// Latest selects whatever the release manifest reports as newest.
var Latest = DfxVersion{}

// Pinned selects a specific version.
func Pinned(v *semver.Version) DfxVersion { return DfxVersion{Specific: v} }

// IsLatest reports whether no version is pinned.
func (d DfxVersion) IsLatest() bool { return d.Specific == nil }

func (d DfxVersion) String() string {
	if d.Specific == nil {
		return "latest"
	}
	return d.Specific.String()
}

// ParseDfxVersion accepts "latest" or a semantic version.
func ParseDfxVersion(s string) (DfxVersion, error) {
	if s == "latest" {
		return Latest, nil
	}
	v, err := semver.StrictNewVersion(s)
	if err != nil {
		return DfxVersion{}, fmt.Errorf(`please specify either a valid semver or "latest": %w`, err)
	}
	return Pinned(v), nil
}

// PlanOptions are the choices a user can customize before installing.
type PlanOptions struct {
	DfxVersion      DfxVersion
	ModifyPath      bool
	DeleteDfxOnPath bool
}

// DefaultOptions installs the latest dfx, edits profiles and deletes legacy binaries.
func DefaultOptions() PlanOptions {
	return PlanOptions{DfxVersion: Latest, ModifyPath: true, DeleteDfxOnPath: true}
}

// Plan describes a pending first-run installation.
type Plan struct {
	Options PlanOptions

	BinDir  string
	EnvPath string
	// EnvPathUserFacing is EnvPath with $HOME or $XDG_DATA_HOME left for the
	// shell to expand. It is what profile scripts source.
	EnvPathUserFacing string
	BinDirUserFacing  string

	DfxOnPath      []string
	ProfileScripts []installation.ProfileScript
}

// NewPlan probes the system and builds a plan with the given options.
func NewPlan(options PlanOptions, loc *locations.Locations, env installation.ShellEnv) (*Plan, error) {
	legacy, err := installation.FindLegacyBinaries(env.Path, loc.DfxProxyPath())
	if err != nil {
		return nil, err
	}
	return &Plan{
		Options:           options,
		BinDir:            loc.BinDir(),
		EnvPath:           loc.EnvPath(),
		EnvPathUserFacing: loc.EnvPathUserFacing(),
		BinDirUserFacing:  loc.BinDirUserFacing(),
		DfxOnPath:         legacy,
		ProfileScripts:    installation.DetectedProfileScripts(env),
	}, nil
}
