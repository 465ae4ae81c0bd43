// Package uninstall removes dfxvm, every installed dfx and the shell setup
// that dfxvm-init added. The user configuration directory is left alone.
package uninstall

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"dfxvm/internal/installation"
	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
)

const (
	defaultMaxKillRounds = 50
	defaultKillInterval  = 100 * time.Millisecond
)

// ProcessKiller terminates processes running from a directory.
type ProcessKiller interface {
	// KillUnder kills every process whose executable lies inside dir and
	// returns how many it found.
	KillUnder(ctx context.Context, dir string) (int, error)
}

// SystemKiller enumerates processes with gopsutil.
type SystemKiller struct{}

// KillUnder implements ProcessKiller.
func (SystemKiller) KillUnder(ctx context.Context, dir string) (int, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list processes: %w", err)
	}
	prefix := filepath.Clean(dir) + string(os.PathSeparator)
	self := int32(os.Getpid())
	found := 0
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil || !strings.HasPrefix(exe, prefix) {
			continue
		}
		found++
		logger.Info("[INFO] Killing %s (pid %d)\n", exe, p.Pid)
		if err := p.KillWithContext(ctx); err != nil {
			logger.Warn("[WARN] Failed to kill pid %d: %v\n", p.Pid, err)
		}
	}
	return found, nil
}

// Uninstaller reverses everything dfxvm-init and dfxvm did.
type Uninstaller struct {
	Locations *locations.Locations
	ShellEnv  installation.ShellEnv
	// Killer stops running dfx processes. nil means SystemKiller.
	Killer ProcessKiller
	// Out receives the closing note. nil means os.Stdout.
	Out io.Writer
	// MaxKillRounds bounds the kill loop. Zero means 50.
	MaxKillRounds int
	// KillInterval is the pause between kill rounds. Zero means 100ms.
	KillInterval time.Duration
}

// Run removes everything, continuing past individual failures. It returns
// every failure joined together.
func (u *Uninstaller) Run(ctx context.Context) error {
	loc := u.Locations
	var errs []error
	record := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	if err := u.killProcesses(ctx); err != nil {
		return err
	}

	for _, path := range []string{loc.NetworkDir(), loc.CacheDir(), loc.VersionsDir(), loc.DfxProxyPath()} {
		record(installation.RemoveAllIfExists(path))
	}
	record(u.removeDataDirExcept(filepath.Base(loc.BinDir()), filepath.Base(loc.EnvPath())))

	line := installation.SourceLine(loc.EnvPathUserFacing())
	for _, script := range installation.AllProfileScripts(u.ShellEnv) {
		record(installation.RevertProfile(script.Path, line))
	}
	record(installation.RemoveAllIfExists(loc.EnvPath()))

	// The running dfxvm binary goes last.
	record(u.removeBinDir())
	u.removeEmptyDataDirs()

	out := u.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "dfxvm is uninstalled.\n\n")
	fmt.Fprintf(out, "%s was not removed. It holds your dfx identities and other\n", loc.ConfigDir())
	fmt.Fprintf(out, "configuration that is not owned by dfxvm. Delete it yourself if you no longer need it.\n")

	return errors.Join(errs...)
}

// killProcesses repeats until no dfx process is left or the round limit is hit.
func (u *Uninstaller) killProcesses(ctx context.Context) error {
	killer := u.Killer
	if killer == nil {
		killer = SystemKiller{}
	}
	rounds := u.MaxKillRounds
	if rounds <= 0 {
		rounds = defaultMaxKillRounds
	}
	interval := u.KillInterval
	if interval <= 0 {
		interval = defaultKillInterval
	}

	dir := u.Locations.VersionsDir()
	for round := 0; round < rounds; round++ {
		found, err := killer.KillUnder(ctx, dir)
		if err != nil {
			logger.Warn("[WARN] Could not stop running dfx processes: %v\n", err)
			return nil
		}
		if found == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	logger.Warn("[WARN] dfx processes were still running after %d attempts; continuing\n", rounds)
	return nil
}

func (u *Uninstaller) removeDataDirExcept(keep ...string) error {
	dataDir := u.Locations.DataLocalDir()
	entries, err := os.ReadDir(dataDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", dataDir, err)
	}
	var errs []error
	for _, entry := range entries {
		if slices.Contains(keep, entry.Name()) {
			continue
		}
		if err := installation.RemoveAllIfExists(filepath.Join(dataDir, entry.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (u *Uninstaller) removeBinDir() error {
	binDir := u.Locations.BinDir()
	entries, err := os.ReadDir(binDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", binDir, err)
	}
	manager := filepath.Base(u.Locations.DfxvmPath())
	for _, entry := range entries {
		if entry.Name() == manager {
			continue
		}
		if err := installation.RemoveAllIfExists(filepath.Join(binDir, entry.Name())); err != nil {
			return err
		}
	}
	if err := installation.RemoveAllIfExists(u.Locations.DfxvmPath()); err != nil {
		return err
	}
	removeIfEmpty(binDir)
	return nil
}

// removeEmptyDataDirs removes the data directory and then each parent left
// empty by that, stopping at the home directory.
func (u *Uninstaller) removeEmptyDataDirs() {
	dir := u.Locations.DataLocalDir()
	if !removeIfEmpty(dir) {
		return
	}
	home := filepath.Clean(u.Locations.Home()) + string(os.PathSeparator)
	for dir = filepath.Dir(dir); strings.HasPrefix(dir, home); dir = filepath.Dir(dir) {
		if !removeIfEmpty(dir) {
			return
		}
	}
}

// removeIfEmpty removes a directory that has nothing left in it and reports
// whether it is gone.
func removeIfEmpty(dir string) bool {
	if err := os.Remove(dir); err != nil && !os.IsNotExist(err) {
		logger.Debug("[DEBUG] Leaving %s in place: %v\n", dir, err)
		return false
	}
	return true
}
