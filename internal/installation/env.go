package installation

import (
	"fmt"
	"os"
	"path/filepath"

	"dfxvm/internal/logger"
)

// EnvFileContents is a POSIX snippet that prepends binDirUserFacing to PATH
// unless PATH already contains it.
func EnvFileContents(binDirUserFacing string) string {
	return fmt.Sprintf(`#!/bin/sh
# dfxvm shell setup
# affix colons on either side of $PATH to simplify matching
case ":${PATH}:" in
    *:"%[1]s":*)
        ;;
    *)
        # Prepending path in case a system-installed dfx needs to be overridden
        export PATH="%[1]s:$PATH"
        ;;
esac
`, binDirUserFacing)
}

// WriteEnvFile creates or replaces the env snippet at path.
func WriteEnvFile(path, binDirUserFacing string) error {
	logger.Info("[INFO] Creating %s\n", path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(EnvFileContents(binDirUserFacing)), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
