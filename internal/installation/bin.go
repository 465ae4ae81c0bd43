package installation

import (
	"fmt"
	"os"
	"path/filepath"

	"dfxvm/internal/logger"
)

const (
	pendingName = "dfxvm-init"
	managerName = "dfxvm"
	proxyName   = "dfx"
)

// linkFn creates the dfx proxy. Tests replace it to exercise the copy fallback.
var linkFn = os.Link

// InstallBinaries installs exePath into binDir as the dfxvm manager and the dfx proxy.
//
// The executable is first copied to binDir/dfxvm-init and made executable, then
// renamed onto binDir/dfxvm in the same directory. dfx becomes a hard link to
// dfxvm, or a full copy where hard links are not available.
func InstallBinaries(binDir, exePath string) error {
	pending := filepath.Join(binDir, pendingName)
	manager := filepath.Join(binDir, managerName)
	proxy := filepath.Join(binDir, proxyName)

	logger.Info("[INFO] Installing dfxvm into %s\n", binDir)
	if err := removeIfExists(pending); err != nil {
		return err
	}
	if err := copyFile(exePath, pending); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", exePath, pending, err)
	}
	if err := makeExecutable(pending); err != nil {
		return err
	}

	if err := removeIfExists(manager); err != nil {
		return err
	}
	if err := os.Rename(pending, manager); err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", pending, manager, err)
	}

	if err := removeIfExists(proxy); err != nil {
		return err
	}
	if err := linkFn(manager, proxy); err != nil {
		logger.Debug("[DEBUG] Hard link %s -> %s failed (%v), copying instead\n", proxy, manager, err)
		if err := copyFile(manager, proxy); err != nil {
			return fmt.Errorf("failed to copy %s to %s: %w", manager, proxy, err)
		}
	}
	return nil
}

// makeExecutable sets rwxr-xr-x, keeping any non-permission mode bits.
func makeExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	mode := info.Mode()
	newMode := mode&^0o777 | 0o755
	if mode == newMode {
		return nil
	}
	if err := os.Chmod(path, newMode); err != nil {
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	return nil
}
