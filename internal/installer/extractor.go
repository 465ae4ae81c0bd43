package installer

import (
	"archive/tar"    // For reading .tar archives
	"archive/zip"    // For reading .zip archives
	"compress/bzip2" // For reading .bz2 compressed data
	"compress/gzip"  // For reading .gz compressed data
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // For reading .7z archives
	"github.com/xi2/xz"          // For reading .xz compressed data

	"dfxvm/internal/logger"
)

// archiveEntry is one member of an archive, independent of the container format.
type archiveEntry struct {
	name string
	mode fs.FileMode
	open func() (io.ReadCloser, error)
}

// errStopWalk ends a walk early without reporting an error.
var errStopWalk = errors.New("stop walking archive")

// FormatFromPath infers the archive format from a file name suffix.
func FormatFromPath(path string) (string, error) {
	for _, format := range []string{"tar.gz", "tgz", "tar.bz2", "tar.xz", "tar", "zip", "7z"} {
		if strings.HasSuffix(path, "."+format) {
			return format, nil
		}
	}
	return "", fmt.Errorf("unsupported archive format: %s", path)
}

// ExtractArchiveAs unpacks every member of src, read as the given format, into dest.
// Members keep their permission bits. A member whose path would land outside
// dest fails the whole extraction.
func ExtractArchiveAs(src, format, dest string) error {
	logger.Debug("[DEBUG] Extracting %s archive %s to %s\n", format, src, dest)
	return walkArchive(src, format, func(e archiveEntry) error {
		target, err := safeJoin(dest, e.name)
		if err != nil {
			return err
		}
		if e.mode.IsDir() {
			return os.MkdirAll(target, dirMode(e.mode))
		}
		if !e.mode.IsRegular() {
			logger.Debug("[DEBUG] Skipping non-regular archive member %s\n", e.name)
			return nil
		}
		return writeEntry(e, target)
	})
}

// ExtractFile writes the first member of src whose path ends in suffix to dest.
func ExtractFile(src, format, suffix, dest string) error {
	found := false
	err := walkArchive(src, format, func(e archiveEntry) error {
		if !e.mode.IsRegular() || !strings.HasSuffix(e.name, suffix) {
			return nil
		}
		logger.Debug("[DEBUG] Extracting %s from %s to %s\n", e.name, src, dest)
		if err := writeEntry(e, dest); err != nil {
			return err
		}
		found = true
		return errStopWalk
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("archive %s has no entry ending in %q", src, suffix)
	}
	return nil
}

// walkArchive calls fn for each member in archive order.
func walkArchive(src, format string, fn func(archiveEntry) error) error {
	var err error
	switch format {
	case "zip":
		logger.Debug("[DEBUG] compression type is zip\n")
		err = walkZip(src, fn)
	case "7z":
		logger.Debug("[DEBUG] compression type is 7z\n")
		err = walk7z(src, fn)
	case "tar", "tar.gz", "tgz", "tar.bz2", "tar.xz":
		logger.Debug("[DEBUG] compression type is %s\n", format)
		err = walkTar(src, format, fn)
	default:
		return fmt.Errorf("unsupported archive format: %s", format)
	}
	if errors.Is(err, errStopWalk) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", src, err)
	}
	return nil
}

// walkTar handles tar and compressed tar variants
func walkTar(src, format string, fn func(archiveEntry) error) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()

	var reader io.Reader = f
	switch format {
	case "tar.gz", "tgz":
		gr, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gr.Close()
		reader = gr
	case "tar.bz2":
		reader = bzip2.NewReader(f)
	case "tar.xz":
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return err
		}
		reader = xzr
	}

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		mode := hdr.FileInfo().Mode()
		entry := archiveEntry{
			name: hdr.Name,
			mode: mode,
			open: func() (io.ReadCloser, error) { return io.NopCloser(tr), nil },
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
}

func walkZip(src string, fn func(archiveEntry) error) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if err := fn(archiveEntry{name: f.Name, mode: f.Mode(), open: f.Open}); err != nil {
			return err
		}
	}
	return nil
}

func walk7z(src string, fn func(archiveEntry) error) error {
	r, err := sevenzip.OpenReader(src)
	if err != nil {
		return fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if err := fn(archiveEntry{name: f.Name, mode: f.Mode(), open: f.Open}); err != nil {
			return err
		}
	}
	return nil
}

// writeEntry copies a regular member to target with the member's permission bits.
func writeEntry(e archiveEntry, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := e.open()
	if err != nil {
		return err
	}
	defer rc.Close()

	perm := e.mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	// OpenFile is subject to the umask; the archive's bits win.
	return os.Chmod(target, perm)
}

// safeJoin resolves name under dest and refuses anything that escapes it.
func safeJoin(dest, name string) (string, error) {
	root := filepath.Clean(dest)
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return "", fmt.Errorf("archive member %q escapes %s", name, dest)
	}
	return target, nil
}

func dirMode(mode fs.FileMode) fs.FileMode {
	if perm := mode.Perm(); perm != 0 {
		return perm | 0o700
	}
	return 0o755
}
