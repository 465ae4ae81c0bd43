package installation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"dfxvm/internal/logger"
)

// copyFile copies a file from src to dst, preserving permissions.
// It creates any missing directories in the destination path.
// Returns an error if any step in the process fails.
func copyFile(src, dst string) (err error) {
	// Open the source file
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source failed: %w", err)
	}
	defer in.Close()

	// Ensure the destination directory exists
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("mkdir failed: %w", err)
	}

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create target failed: %w", err)
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy failed: %w", err)
	}

	// Preserve the source mode
	stat, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source failed: %w", err)
	}
	return os.Chmod(dst, stat.Mode().Perm())
}

// removeIfExists deletes a file, treating "already gone" as success.
func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RemoveAllIfExists deletes a file or directory tree and logs what it removed.
func RemoveAllIfExists(path string) error {
	if _, err := os.Lstat(path); os.IsNotExist(err) {
		return nil
	}
	logger.Info("[INFO] Removing %s\n", path)
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}
