package installation

import (
	"bytes"
	"fmt"
	"os"

	"dfxvm/internal/logger"
)

// SourceLine is the statement added to profile scripts. envPathUserFacing is
// written verbatim so the shell expands $HOME or $XDG_DATA_HOME itself.
func SourceLine(envPathUserFacing string) string {
	return fmt.Sprintf(`. "%s"`, envPathUserFacing)
}

// UpdateProfile appends line to the script at path unless it is already there.
// The line is preceded by a newline when the file does not end in one.
func UpdateProfile(path, line string) error {
	content, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if bytes.Contains(content, []byte(line)) {
		logger.Info("[INFO] Already updates PATH: %s\n", path)
		return nil
	}

	logger.Info("[INFO] Updating %s\n", path)
	toAppend := line + "\n"
	if len(content) > 0 && content[len(content)-1] != '\n' {
		toAppend = "\n" + toAppend
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			logger.Error("[ERROR] Failed to close %s: %s\n", path, cerr)
		}
	}()
	if _, err := f.WriteString(toAppend); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", path, err)
	}
	return nil
}

// RevertProfile removes every line of the script at path that is exactly line.
// Everything else is left byte for byte. A script whose whole content was the
// line, as created by UpdateProfile, is deleted. A missing file is not an error.
func RevertProfile(path, line string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if string(content) == line+"\n" {
		logger.Info("[INFO] Removing %s\n", path)
		if err := os.Remove(path); err != nil {
			return fmt.Errorf("failed to remove %s: %w", path, err)
		}
		return nil
	}
	reverted := removeLine(content, []byte(line))
	if bytes.Equal(reverted, content) {
		return nil
	}
	logger.Info("[INFO] Removing dfxvm from %s\n", path)
	if err := os.WriteFile(path, reverted, info.Mode().Perm()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// removeLine drops whole-line occurrences of line along with their newline.
// A separator newline written before the line by UpdateProfile stays.
func removeLine(content, line []byte) []byte {
	out := make([]byte, 0, len(content))
	rest := content
	for len(rest) > 0 {
		current, after, found := bytes.Cut(rest, []byte{'\n'})
		if !bytes.Equal(current, line) {
			out = append(out, current...)
			if found {
				out = append(out, '\n')
			}
		}
		rest = after
	}
	return out
}
