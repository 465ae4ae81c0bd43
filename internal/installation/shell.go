package installation

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dfxvm/internal/logger"
)

// ShellEnv is the part of the process environment that shell detection reads.
type ShellEnv struct {
	Home    string // $HOME
	Shell   string // $SHELL
	ZDotDir string // $ZDOTDIR
	Path    string // $PATH

	// QueryZshZDotDir asks an installed zsh what ZDOTDIR it would use.
	// nil runs `zsh -c 'echo -n $ZDOTDIR'`.
	QueryZshZDotDir func() string
}

// ShellEnvFromOS captures the current environment for the given home directory.
func ShellEnvFromOS(home string) ShellEnv {
	return ShellEnv{
		Home:    home,
		Shell:   os.Getenv("SHELL"),
		ZDotDir: os.Getenv("ZDOTDIR"),
		Path:    os.Getenv("PATH"),
	}
}

// Shell is one shell dialect whose startup files may put the bin directory on PATH.
type Shell interface {
	// Name identifies the shell in log output.
	Name() string
	// Exists reports whether the shell looks installed. Any trace counts.
	Exists(env ShellEnv) bool
	// RCFiles lists every startup file of this shell the manager could have touched.
	RCFiles(env ShellEnv) []string
	// UpdateRCs lists the startup files that should receive the source line.
	UpdateRCs(env ShellEnv) []string
}

// Shells returns the supported dialects.
func Shells() []Shell {
	return []Shell{posixShell{}, bashShell{}, zshShell{}}
}

// ProfileScript is a shell startup file paired with the dialect it belongs to.
type ProfileScript struct {
	Path  string
	Shell string
}

// DetectedProfileScripts returns the files to edit for every shell present on the system.
func DetectedProfileScripts(env ShellEnv) []ProfileScript {
	var scripts []ProfileScript
	for _, sh := range Shells() {
		if !sh.Exists(env) {
			continue
		}
		for _, rc := range sh.UpdateRCs(env) {
			scripts = append(scripts, ProfileScript{Path: rc, Shell: sh.Name()})
		}
	}
	return scripts
}

// AllProfileScripts returns every startup file of every dialect, present or not.
func AllProfileScripts(env ShellEnv) []ProfileScript {
	var scripts []ProfileScript
	for _, sh := range Shells() {
		for _, rc := range sh.RCFiles(env) {
			scripts = append(scripts, ProfileScript{Path: rc, Shell: sh.Name()})
		}
	}
	return scripts
}

type posixShell struct{}

func (posixShell) Name() string { return "posix" }

func (posixShell) Exists(ShellEnv) bool { return true }

func (posixShell) RCFiles(env ShellEnv) []string {
	return []string{filepath.Join(env.Home, ".profile")}
}

// .profile is written even when absent; it is the one rc file every POSIX shell reads.
func (s posixShell) UpdateRCs(env ShellEnv) []string { return s.RCFiles(env) }

type bashShell struct{}

func (bashShell) Name() string { return "bash" }

func (s bashShell) Exists(env ShellEnv) bool { return len(s.UpdateRCs(env)) > 0 }

func (bashShell) RCFiles(env ShellEnv) []string {
	var files []string
	for _, rc := range []string{".bash_profile", ".bash_login", ".bashrc"} {
		files = append(files, filepath.Join(env.Home, rc))
	}
	return files
}

func (s bashShell) UpdateRCs(env ShellEnv) []string {
	var files []string
	for _, rc := range s.RCFiles(env) {
		if isFile(rc) {
			files = append(files, rc)
		}
	}
	return files
}

type zshShell struct{}

func (zshShell) Name() string { return "zsh" }

func (zshShell) Exists(env ShellEnv) bool {
	return strings.Contains(env.Shell, "zsh") || findOnPath(env.Path, "zsh")
}

// RCFiles lists $ZDOTDIR/.zshenv (when ZDOTDIR resolves) then $HOME/.zshenv.
func (zshShell) RCFiles(env ShellEnv) []string {
	var files []string
	if dir := zdotdir(env); dir != "" {
		files = append(files, filepath.Join(dir, ".zshenv"))
	}
	return append(files, filepath.Join(env.Home, ".zshenv"))
}

// UpdateRCs picks the first .zshenv that exists, else the first candidate.
// ZDOTDIR may itself be set from $HOME/.zshenv, so an existing file there wins
// over creating one under ZDOTDIR.
func (s zshShell) UpdateRCs(env ShellEnv) []string {
	candidates := s.RCFiles(env)
	for _, rc := range candidates {
		if isFile(rc) {
			return []string{rc}
		}
	}
	return candidates[:1]
}

func zdotdir(env ShellEnv) string {
	if strings.Contains(env.Shell, "zsh") {
		return env.ZDotDir
	}
	query := env.QueryZshZDotDir
	if query == nil {
		query = queryZshZDotDir
	}
	return query()
}

func queryZshZDotDir() string {
	out, err := exec.Command("zsh", "-c", "echo -n $ZDOTDIR").Output()
	if err != nil {
		logger.Debug("[DEBUG] Could not ask zsh for ZDOTDIR: %v\n", err)
		return ""
	}
	return string(out)
}

func findOnPath(pathEnv, name string) bool {
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
