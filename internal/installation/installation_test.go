package installation

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLine = `. "$HOME/.local/share/dfx/env"`

func TestUpdateProfileIsIdempotent(t *testing.T) {
	tests := map[string]string{
		"missing file":      "",
		"empty":             "",
		"trailing newline":  "export A=1\n",
		"no trailing break": "export A=1",
	}
	for name, initial := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ".profile")
			if name != "missing file" {
				require.NoError(t, os.WriteFile(path, []byte(initial), 0o600))
			}

			require.NoError(t, UpdateProfile(path, testLine))
			once, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, UpdateProfile(path, testLine))
			twice, err := os.ReadFile(path)
			require.NoError(t, err)

			assert.Equal(t, once, twice)
			assert.Equal(t, 1, strings.Count(string(once), testLine))
			assert.True(t, strings.HasSuffix(string(once), testLine+"\n"))
			assert.True(t, strings.HasPrefix(string(once), initial))
		})
	}
}

func TestUpdateProfileSeparatesFromUnterminatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bashrc")
	require.NoError(t, os.WriteFile(path, []byte("alias ll='ls -l'"), 0o644))

	require.NoError(t, UpdateProfile(path, testLine))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alias ll='ls -l'\n"+testLine+"\n", string(content))
}

func TestRevertRestoresOriginal(t *testing.T) {
	tests := []string{
		"export A=1\n",
		"\n\n# comment\n\n",
	}
	for _, initial := range tests {
		path := filepath.Join(t.TempDir(), ".zshenv")
		require.NoError(t, os.WriteFile(path, []byte(initial), 0o640))

		require.NoError(t, UpdateProfile(path, testLine))
		require.NoError(t, RevertProfile(path, testLine))

		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, initial, string(content))

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}
}

func TestRevertLeavesSurroundingContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".profile")
	require.NoError(t, os.WriteFile(path, []byte("before\n\n"+testLine+"\n\nafter\n"), 0o644))

	require.NoError(t, RevertProfile(path, testLine))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "before\n\n\nafter\n", string(content))
}

func TestRevertRemovesScriptItCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".profile")

	require.NoError(t, UpdateProfile(path, testLine))
	require.FileExists(t, path)
	require.NoError(t, RevertProfile(path, testLine))

	assert.NoFileExists(t, path)
}

func TestRevertKeepsSeparatorAfterUnterminatedLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".bashrc")
	require.NoError(t, os.WriteFile(path, []byte("alias ll='ls -l'"), 0o644))

	require.NoError(t, UpdateProfile(path, testLine))
	require.NoError(t, RevertProfile(path, testLine))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "alias ll='ls -l'\n", string(content))
}

func TestRevertOnlyRemovesWholeLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".profile")
	embedded := testLine + " && echo ready\n"
	require.NoError(t, os.WriteFile(path, []byte(embedded+testLine+"\n# "+testLine+"\n"+testLine), 0o644))

	require.NoError(t, RevertProfile(path, testLine))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, embedded+"# "+testLine+"\n", string(content))
}

func TestRevertMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".profile")
	require.NoError(t, RevertProfile(path, testLine))
	assert.NoFileExists(t, path)
}

func noZsh() string { return "" }

func TestDetectedProfileScripts(t *testing.T) {
	home := t.TempDir()
	env := ShellEnv{Home: home, Shell: "/bin/bash", Path: t.TempDir(), QueryZshZDotDir: noZsh}

	// Only .profile when no bash rc file exists and zsh is absent.
	assert.Equal(t, []ProfileScript{{Path: filepath.Join(home, ".profile"), Shell: "posix"}}, DetectedProfileScripts(env))

	require.NoError(t, os.WriteFile(filepath.Join(home, ".bashrc"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".bash_profile"), nil, 0o644))
	assert.Equal(t, []ProfileScript{
		{Path: filepath.Join(home, ".profile"), Shell: "posix"},
		{Path: filepath.Join(home, ".bash_profile"), Shell: "bash"},
		{Path: filepath.Join(home, ".bashrc"), Shell: "bash"},
	}, DetectedProfileScripts(env))
}

func TestZshRCSelection(t *testing.T) {
	home := t.TempDir()
	zdot := t.TempDir()
	env := ShellEnv{Home: home, Shell: "/usr/bin/zsh", ZDotDir: zdot}
	zsh := zshShell{}

	require.True(t, zsh.Exists(env))
	assert.Equal(t, []string{filepath.Join(zdot, ".zshenv"), filepath.Join(home, ".zshenv")}, zsh.RCFiles(env))

	// Neither exists: create under ZDOTDIR.
	assert.Equal(t, []string{filepath.Join(zdot, ".zshenv")}, zsh.UpdateRCs(env))

	// Only $HOME/.zshenv exists: edit it.
	require.NoError(t, os.WriteFile(filepath.Join(home, ".zshenv"), nil, 0o644))
	assert.Equal(t, []string{filepath.Join(home, ".zshenv")}, zsh.UpdateRCs(env))

	// $ZDOTDIR/.zshenv exists: it wins.
	require.NoError(t, os.WriteFile(filepath.Join(zdot, ".zshenv"), nil, 0o644))
	assert.Equal(t, []string{filepath.Join(zdot, ".zshenv")}, zsh.UpdateRCs(env))
}

func TestZshDetectedOnPathQueriesZDotDir(t *testing.T) {
	home := t.TempDir()
	pathDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(pathDir, "zsh"), nil, 0o755))
	env := ShellEnv{
		Home:            home,
		Shell:           "/bin/bash",
		ZDotDir:         "/ignored/when/not/zsh",
		Path:            pathDir,
		QueryZshZDotDir: func() string { return "/from/zsh" },
	}
	zsh := zshShell{}

	assert.True(t, zsh.Exists(env))
	assert.Equal(t, []string{"/from/zsh/.zshenv", filepath.Join(home, ".zshenv")}, zsh.RCFiles(env))
}

func TestAllProfileScripts(t *testing.T) {
	home := "/home/u"
	env := ShellEnv{Home: home, Shell: "/bin/sh", QueryZshZDotDir: noZsh}
	var paths []string
	for _, s := range AllProfileScripts(env) {
		paths = append(paths, s.Path)
	}
	assert.Equal(t, []string{
		"/home/u/.profile",
		"/home/u/.bash_profile",
		"/home/u/.bash_login",
		"/home/u/.bashrc",
		"/home/u/.zshenv",
	}, paths)
}

func TestEnvFileContents(t *testing.T) {
	contents := EnvFileContents("$HOME/.local/share/dfx/bin")
	assert.Contains(t, contents, `*:"$HOME/.local/share/dfx/bin":*)`)
	assert.Contains(t, contents, `export PATH="$HOME/.local/share/dfx/bin:$PATH"`)

	path := filepath.Join(t.TempDir(), "dfx", "env")
	require.NoError(t, WriteEnvFile(path, "$HOME/.local/share/dfx/bin"))
	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, contents, string(written))
}

func writeExe(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dfxvm-init")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestInstallBinaries(t *testing.T) {
	binDir := filepath.Join(t.TempDir(), "bin")
	require.NoError(t, os.MkdirAll(binDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "dfxvm"), []byte("old"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(binDir, "dfx"), []byte("old"), 0o755))

	require.NoError(t, InstallBinaries(binDir, writeExe(t, "new manager")))

	for _, name := range []string{"dfxvm", "dfx"} {
		content, err := os.ReadFile(filepath.Join(binDir, name))
		require.NoError(t, err)
		assert.Equal(t, "new manager", string(content))
	}
	info, err := os.Stat(filepath.Join(binDir, "dfxvm"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())
	assert.NoFileExists(t, filepath.Join(binDir, "dfxvm-init"))

	managerInfo, err := os.Stat(filepath.Join(binDir, "dfxvm"))
	require.NoError(t, err)
	proxyInfo, err := os.Stat(filepath.Join(binDir, "dfx"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(managerInfo, proxyInfo))
}

func TestInstallBinariesFallsBackToCopy(t *testing.T) {
	linkFn = func(string, string) error { return errors.New("cross-device link") }
	t.Cleanup(func() { linkFn = os.Link })

	binDir := t.TempDir()
	require.NoError(t, InstallBinaries(binDir, writeExe(t, "manager")))

	managerInfo, err := os.Stat(filepath.Join(binDir, "dfxvm"))
	require.NoError(t, err)
	proxyInfo, err := os.Stat(filepath.Join(binDir, "dfx"))
	require.NoError(t, err)
	assert.False(t, os.SameFile(managerInfo, proxyInfo))
	assert.Equal(t, os.FileMode(0o755), proxyInfo.Mode().Perm())
}

func TestFindLegacyBinaries(t *testing.T) {
	legacyDir := t.TempDir()
	linkDir := t.TempDir()
	binDir := t.TempDir()
	emptyDir := t.TempDir()

	legacy := filepath.Join(legacyDir, "dfx")
	require.NoError(t, os.WriteFile(legacy, []byte("old dfx"), 0o755))
	require.NoError(t, os.Symlink(legacy, filepath.Join(linkDir, "dfx")))
	proxy := filepath.Join(binDir, "dfx")
	require.NoError(t, os.WriteFile(proxy, []byte("proxy"), 0o755))

	pathEnv := strings.Join([]string{binDir, emptyDir, legacyDir, linkDir}, string(os.PathListSeparator))
	found, err := FindLegacyBinaries(pathEnv, proxy)
	require.NoError(t, err)

	canonicalLegacy, err := filepath.EvalSymlinks(legacy)
	require.NoError(t, err)
	assert.Equal(t, []string{canonicalLegacy}, found)
}

func TestRemoveLegacyBinaries(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, nil, 0o755))

	remaining := RemoveLegacyBinaries([]string{a, filepath.Join(dir, "missing")})
	assert.Empty(t, remaining)
	assert.NoFileExists(t, a)
}

func TestSudoRemoveRunsOneCommand(t *testing.T) {
	var got [][]string
	sudoCommand = func(paths []string) *exec.Cmd {
		got = append(got, paths)
		return exec.Command("true")
	}
	t.Cleanup(func() {
		sudoCommand = func(paths []string) *exec.Cmd {
			return exec.Command("sudo", append([]string{"rm", "-f"}, paths...)...)
		}
	})

	require.NoError(t, SudoRemove([]string{"/usr/local/bin/dfx", "/opt/bin/dfx"}))
	assert.Equal(t, [][]string{{"/usr/local/bin/dfx", "/opt/bin/dfx"}}, got)
}
