package installer

import (
	"os"
	"runtime"
	"strings"

	"github.com/Masterminds/semver/v3"

	"dfxvm/internal/logger"
)

// PlatformTriple names the running platform the way release artifacts do,
// e.g. x86_64-unknown-linux-gnu.
func PlatformTriple() string {
	arch := runtime.GOARCH
	switch arch {
	case "amd64":
		arch = "x86_64"
	case "arm64":
		arch = "aarch64"
	}
	platform := "unknown-linux-gnu"
	if runtime.GOOS == "darwin" {
		platform = "apple-darwin"
	}
	return arch + "-" + platform
}

// TarballBasename is the platform part of a dfx release archive name, and
// also the single top-level directory inside that archive.
func TarballBasename() string {
	return "dfx-" + PlatformTriple()
}

// formatDownloadURL fills the {{version}}, {{basename}} and {{archive-format}} placeholders.
func formatDownloadURL(template string, v *semver.Version, basename, archiveFormat string) string {
	return strings.NewReplacer(
		"{{version}}", v.String(),
		"{{basename}}", basename,
		"{{archive-format}}", archiveFormat,
	).Replace(template)
}

// removeAllLogged deletes a scratch directory, reporting but not returning failures.
func removeAllLogged(path string) {
	if err := os.RemoveAll(path); err != nil {
		logger.Warn("[WARN] Failed to remove temporary directory %s: %v\n", path, err)
	}
}

// isDir reports whether path exists and is a directory.
func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
