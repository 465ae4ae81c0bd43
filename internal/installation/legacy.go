package installation

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"dfxvm/internal/logger"
)

// FindLegacyBinaries returns every dfx executable reachable through pathEnv,
// resolved to its canonical path and deduplicated, except the dfxvm proxy itself.
func FindLegacyBinaries(pathEnv, proxyPath string) ([]string, error) {
	excluded := ""
	if _, err := os.Stat(proxyPath); err == nil {
		canonical, err := filepath.EvalSymlinks(proxyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to canonicalize %s: %w", proxyPath, err)
		}
		excluded = canonical
	}

	seen := map[string]bool{}
	var found []string
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		candidate := filepath.Join(dir, proxyName)
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		canonical, err := filepath.EvalSymlinks(candidate)
		if err != nil {
			return nil, fmt.Errorf("failed to canonicalize %s: %w", candidate, err)
		}
		if canonical == excluded || seen[canonical] {
			continue
		}
		seen[canonical] = true
		found = append(found, canonical)
	}
	return found, nil
}

// RemoveLegacyBinaries deletes each path directly and returns those still present.
func RemoveLegacyBinaries(paths []string) []string {
	var remaining []string
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logger.Debug("[DEBUG] Could not remove %s: %v\n", p, err)
		} else if err == nil {
			logger.Info("[INFO] Deleted %s\n", p)
		}
		if Exists(p) {
			remaining = append(remaining, p)
		}
	}
	return remaining
}

// sudoCommand builds the privileged removal. Tests swap it for a harmless command.
var sudoCommand = func(paths []string) *exec.Cmd {
	return exec.Command("sudo", append([]string{"rm", "-f"}, paths...)...)
}

// SudoRemove runs a single `sudo rm -f` for all paths, with the terminal attached
// so sudo can ask for a password.
func SudoRemove(paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	for _, p := range paths {
		logger.Info("[INFO] Removing matched binary: %s\n", p)
	}
	cmd := sudoCommand(paths)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("sudo rm failed: %w", err)
	}
	return nil
}

// Exists reports whether anything is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}
