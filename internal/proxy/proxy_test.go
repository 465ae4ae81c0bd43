package proxy

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dfxvm/internal/locations"
)

type execCall struct {
	argv0 string
	argv  []string
	env   []string
}

type fixture struct {
	loc   *locations.Locations
	env   map[string]string
	cwd   string
	calls []execCall
}

func newFixture(t *testing.T) *fixture {
	home := t.TempDir()
	loc, err := locations.Resolve(locations.Environment{Home: home, GOOS: "linux"})
	require.NoError(t, err)
	return &fixture{loc: loc, env: map[string]string{"PATH": "/usr/bin"}, cwd: t.TempDir()}
}

func (f *fixture) proxy() *Proxy {
	return &Proxy{
		Locations: f.loc,
		Getenv:    func(k string) string { return f.env[k] },
		Getwd:     func() (string, error) { return f.cwd, nil },
		Environ:   func() []string { return []string{"PATH=/usr/bin", "DFX_VERSION=stale", "HOME=/home/u"} },
		Exec: func(argv0 string, argv, env []string) error {
			f.calls = append(f.calls, execCall{argv0, argv, env})
			return nil
		},
	}
}

func (f *fixture) install(t *testing.T, version string) {
	v := semver.MustParse(version)
	require.NoError(t, os.MkdirAll(f.loc.VersionDir(v), 0o755))
	require.NoError(t, os.WriteFile(f.loc.DfxBinPath(v), []byte("dfx"), 0o755))
}

func (f *fixture) setDefault(t *testing.T, version string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(f.loc.SettingsPath()), 0o755))
	require.NoError(t, os.WriteFile(f.loc.SettingsPath(), []byte(`{"default_version":"`+version+`"}`), 0o644))
}

func TestRunExecsCommandLineVersion(t *testing.T) {
	f := newFixture(t)
	f.install(t, "0.7.1")
	f.setDefault(t, "0.6.0")

	require.NoError(t, f.proxy().Run([]string{"+0.7.1", "deploy", "--network", "ic"}))
	require.Len(t, f.calls, 1)
	bin := f.loc.DfxBinPath(semver.MustParse("0.7.1"))
	assert.Equal(t, bin, f.calls[0].argv0)
	assert.Equal(t, []string{bin, "deploy", "--network", "ic"}, f.calls[0].argv)
	assert.Contains(t, f.calls[0].env, "DFX_VERSION=0.7.1")
	assert.NotContains(t, f.calls[0].env, "DFX_VERSION=stale")
	assert.Contains(t, f.calls[0].env, "PATH="+f.loc.VersionDir(semver.MustParse("0.7.1"))+":/usr/bin")
	assert.Contains(t, f.calls[0].env, "HOME=/home/u")
}

func TestResolveVersionOrder(t *testing.T) {
	f := newFixture(t)
	f.setDefault(t, "0.1.0")
	p := f.proxy()

	v, source, _, err := p.ResolveVersion([]string{"build"})
	require.NoError(t, err)
	assert.Equal(t, "0.1.0", v.String())
	assert.Equal(t, FromSettings, source)

	project := filepath.Join(f.cwd, "src", "app")
	require.NoError(t, os.MkdirAll(project, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(f.cwd, "dfx.json"), []byte(`{"dfx":"0.2.0","canisters":{}}`), 0o644))
	f.cwd = project
	v, source, _, err = p.ResolveVersion([]string{"build"})
	require.NoError(t, err)
	assert.Equal(t, "0.2.0", v.String())
	assert.Equal(t, FromDfxJSON, source)

	f.env["DFX_VERSION"] = "0.3.0"
	v, source, rest, err := p.ResolveVersion([]string{"build"})
	require.NoError(t, err)
	assert.Equal(t, "0.3.0", v.String())
	assert.Equal(t, FromEnvironment, source)
	assert.Equal(t, []string{"build"}, rest)

	v, source, rest, err = p.ResolveVersion([]string{"+0.4.0", "build"})
	require.NoError(t, err)
	assert.Equal(t, "0.4.0", v.String())
	assert.Equal(t, FromCommandLine, source)
	assert.Equal(t, []string{"build"}, rest)
}

func TestResolveVersionIgnoresBlankEnvironment(t *testing.T) {
	f := newFixture(t)
	f.env["DFX_VERSION"] = "  "
	v, _, _, err := f.proxy().ResolveVersion(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestResolveVersionRejectsBadVersions(t *testing.T) {
	f := newFixture(t)
	_, _, _, err := f.proxy().ResolveVersion([]string{"+latest"})
	assert.ErrorContains(t, err, "command line")

	f.env["DFX_VERSION"] = "one"
	_, _, _, err = f.proxy().ResolveVersion(nil)
	assert.ErrorContains(t, err, "DFX_VERSION")
}

func TestVersionFromDfxJSON(t *testing.T) {
	dir := t.TempDir()
	v, err := VersionFromDfxJSON(dir)
	require.NoError(t, err)
	assert.Nil(t, v)

	path := filepath.Join(dir, "dfx.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"canisters":{}}`), 0o644))
	v, err = VersionFromDfxJSON(dir)
	require.NoError(t, err)
	assert.Nil(t, v)

	require.NoError(t, os.WriteFile(path, []byte(`{"dfx":7}`), 0o644))
	_, err = VersionFromDfxJSON(dir)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`{"dfx":`), 0o644))
	_, err = VersionFromDfxJSON(dir)
	assert.ErrorContains(t, err, "invalid JSON")
}

func TestRunWithoutVersion(t *testing.T) {
	f := newFixture(t)
	err := f.proxy().Run([]string{"build"})
	assert.ErrorIs(t, err, ErrNoVersion)
	assert.Empty(t, f.calls)
}

func TestRunVersionNotInstalled(t *testing.T) {
	f := newFixture(t)
	f.setDefault(t, "0.7.1")
	err := f.proxy().Run([]string{"build"})
	var notInstalled *NotInstalledError
	require.ErrorAs(t, err, &notInstalled)
	assert.Equal(t, "0.7.1", notInstalled.Version.String())
	assert.Contains(t, err.Error(), "dfxvm install 0.7.1")
	assert.Empty(t, f.calls)
}

func TestRunRefusesUpgrade(t *testing.T) {
	f := newFixture(t)
	f.install(t, "0.7.1")
	f.setDefault(t, "0.7.1")
	err := f.proxy().Run([]string{"--network", "ic", "upgrade"})
	assert.ErrorIs(t, err, ErrUpgradeUnsupported)
	assert.Empty(t, f.calls)
}

func TestRunCleansUpSelfUpdater(t *testing.T) {
	f := newFixture(t)
	f.install(t, "0.7.1")
	f.setDefault(t, "0.7.1")
	require.NoError(t, os.MkdirAll(f.loc.DataLocalDir(), 0o755))
	require.NoError(t, os.WriteFile(f.loc.SelfUpdatePath(), []byte("stale"), 0o755))

	require.NoError(t, f.proxy().Run(nil))
	assert.NoFileExists(t, f.loc.SelfUpdatePath())
}

func TestRunReportsExecFailure(t *testing.T) {
	f := newFixture(t)
	f.install(t, "0.7.1")
	p := f.proxy()
	p.Exec = func(string, []string, []string) error { return errors.New("exec format error") }
	err := p.Run([]string{"+0.7.1"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "exec format error"))
}

func TestIsUpgradeCommand(t *testing.T) {
	cases := []struct {
		args []string
		want bool
	}{
		{[]string{"upgrade"}, true},
		{[]string{"--identity", "alice", "upgrade"}, true},
		{[]string{"-q", "upgrade"}, true},
		{[]string{"--logfile", "upgrade", "build"}, false},
		{[]string{"deploy", "upgrade"}, false},
		{[]string{"+0.7.1", "upgrade"}, false},
		{nil, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, IsUpgradeCommand(c.args), "%v", c.args)
	}
}
