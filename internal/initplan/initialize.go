// Package initplan drives the first-run installation of dfxvm.
//
// A Plan is built from the system (Building), shown to the user and refined
// until they proceed or cancel (Reviewing), then executed once (Executed) or
// dropped without side effects (Cancelled).
package initplan

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Masterminds/semver/v3"

	"dfxvm/internal/installation"
	"dfxvm/internal/locations"
	"dfxvm/internal/logger"
)

// State is where the installer is in its lifecycle.
type State int

const (
	Building State = iota
	Reviewing
	Executed
	Cancelled
)

func (s State) String() string {
	switch s {
	case Building:
		return "building"
	case Reviewing:
		return "reviewing"
	case Executed:
		return "executed"
	case Cancelled:
		return "cancelled"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// VersionInstaller installs dfx and records the default version.
type VersionInstaller interface {
	Update(ctx context.Context) error
	SetDefault(ctx context.Context, v *semver.Version) error
}

// Initializer carries everything a first-run installation touches.
type Initializer struct {
	Locations *locations.Locations
	ShellEnv  installation.ShellEnv
	Versions  VersionInstaller
	UI        UI
	// Out receives the plan display. nil means os.Stdout.
	Out io.Writer
	// Executable locates the running binary. nil means os.Executable.
	Executable func() (string, error)
	// SudoRemove deletes files with elevated privileges. nil means installation.SudoRemove.
	SudoRemove func(paths []string) error
}

func (in *Initializer) out() io.Writer {
	if in.Out == nil {
		return os.Stdout
	}
	return in.Out
}

// Run builds the plan, reviews it with the UI and executes it if confirmed.
// It returns the terminal state.
func (in *Initializer) Run(ctx context.Context, options PlanOptions) (State, error) {
	state := Building
	plan, err := NewPlan(options, in.Locations, in.ShellEnv)
	if err != nil {
		return state, err
	}
	Introduction(in.out(), plan)

	state = Reviewing
	for state == Reviewing {
		Options(in.out(), plan)
		confirmation, err := in.UI.Confirm()
		if err != nil {
			return state, err
		}
		switch confirmation {
		case Proceed:
			if err := in.Execute(ctx, plan); err != nil {
				return state, err
			}
			state = Executed
		case Customize:
			if err := in.UI.Customize(plan); err != nil {
				return state, err
			}
		case Cancel:
			logger.Info("[INFO] Aborting installation\n")
			state = Cancelled
		}
	}

	if state == Executed {
		Success(in.out(), plan)
	}
	return state, nil
}

// Execute carries out a confirmed plan. Nothing is rolled back on failure.
func (in *Initializer) Execute(ctx context.Context, plan *Plan) error {
	if err := removeLegacyUninstallScript(in.Locations.LegacyUninstallScript()); err != nil {
		return err
	}
	if plan.Options.DeleteDfxOnPath {
		if err := in.deleteLegacyBinaries(plan.DfxOnPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(plan.BinDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", plan.BinDir, err)
	}
	if err := installation.WriteEnvFile(plan.EnvPath, plan.BinDirUserFacing); err != nil {
		return err
	}

	executable := in.Executable
	if executable == nil {
		executable = os.Executable
	}
	exe, err := executable()
	if err != nil {
		return fmt.Errorf("failed to locate the running executable: %w", err)
	}
	if err := installation.InstallBinaries(plan.BinDir, exe); err != nil {
		return err
	}

	if plan.Options.DfxVersion.IsLatest() {
		err = in.Versions.Update(ctx)
	} else {
		err = in.Versions.SetDefault(ctx, plan.Options.DfxVersion.Specific)
	}
	if err != nil {
		return err
	}

	if plan.Options.ModifyPath {
		line := installation.SourceLine(plan.EnvPathUserFacing)
		for _, script := range plan.ProfileScripts {
			if err := installation.UpdateProfile(script.Path, line); err != nil {
				return err
			}
		}
	}
	return nil
}

// deleteLegacyBinaries removes what it can directly, then keeps offering the
// user a strategy for the rest until none remain or they choose to skip.
func (in *Initializer) deleteLegacyBinaries(paths []string) error {
	remaining := installation.RemoveLegacyBinaries(paths)
	for len(remaining) > 0 {
		NeedToDeleteOldDfx(in.out(), remaining)
		strategy, err := in.UI.SelectDeletionStrategy()
		if err != nil {
			return err
		}
		switch strategy {
		case DontDelete:
			return nil
		case CallSudo:
			sudoRemove := in.SudoRemove
			if sudoRemove == nil {
				sudoRemove = installation.SudoRemove
			}
			if err := sudoRemove(remaining); err != nil {
				logger.Error("[ERROR] %v\n", err)
			}
		case Manual:
		}
		remaining = stillPresent(remaining)
	}
	return nil
}

func stillPresent(paths []string) []string {
	var out []string
	for _, p := range paths {
		if installation.Exists(p) {
			out = append(out, p)
		}
	}
	return out
}

func removeLegacyUninstallScript(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	} else if err == nil {
		logger.Info("[INFO] Removed legacy uninstall script %s\n", path)
	}
	return nil
}
