package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"dfxvm/internal/logger"
)

// ErrNoExeName is returned when the process was started without an argv[0].
var ErrNoExeName = errors.New("unable to determine the executable name")

// UnrecognizedExeNameError is returned for a binary renamed to something
// other than dfx, dfxvm or dfxvm-init.
type UnrecognizedExeNameError struct {
	Name string
}

func (e *UnrecognizedExeNameError) Error() string {
	return fmt.Sprintf("Unrecognized executable name '%s'. Expect one of: dfx, dfxvm, dfxvm-init", e.Name)
}

// Dispatch picks a command tree from the executable name in args[0], runs it
// with the remaining arguments and returns the process exit status.
func Dispatch(args []string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, err := commandFor(args)
	if err == nil {
		root.SetArgs(args[1:])
		err = root.ExecuteContext(ctx)
	}
	if err != nil {
		logger.Cause(err)
		return 1
	}
	return 0
}

// commandFor maps an executable name onto its command tree. Names beginning
// with "dfxvm-init" all select the installer, so renamed downloads such as
// "dfxvm-init (2)" still work.
func commandFor(args []string) (*cobra.Command, error) {
	name := programName(args)
	switch {
	case name == "":
		return nil, ErrNoExeName
	case name == "dfx":
		return dfxCmd, nil
	case name == "dfxvm":
		return rootCmd, nil
	case strings.HasPrefix(name, "dfxvm-init"):
		return initCmd, nil
	}
	return nil, &UnrecognizedExeNameError{Name: name}
}

func programName(args []string) string {
	if len(args) == 0 || args[0] == "" {
		return ""
	}
	base := filepath.Base(args[0])
	return strings.TrimSuffix(base, filepath.Ext(base))
}
