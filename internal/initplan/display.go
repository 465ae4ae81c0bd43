package initplan

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"dfxvm/internal/installation"
)

var bold = lipgloss.NewStyle().Bold(true)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// Introduction explains what the installer is about to do.
func Introduction(w io.Writer, plan *Plan) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Render("Welcome to dfxvm!"))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "This will install dfxvm, and download and install dfx.")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "The %s and %s commands will be added to the following directory:\n", bold.Render("dfxvm"), bold.Render("dfx"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "   %s\n", plan.BinDir)
	if len(plan.ProfileScripts) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "This path will then be added to your PATH environment variable by")
		fmt.Fprintln(w, "modifying the profile files located at:")
		fmt.Fprintln(w)
		for _, script := range plan.ProfileScripts {
			fmt.Fprintf(w, "   %s\n", script.Path)
		}
	}
	if len(plan.DfxOnPath) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "The following binaries were found on your PATH and will be deleted:")
		for _, binary := range plan.DfxOnPath {
			fmt.Fprintf(w, "   %s\n", binary)
		}
	}
	fmt.Fprintln(w)
}

// Options shows the current installation options.
func Options(w io.Writer, plan *Plan) {
	fmt.Fprintln(w, "Current installation options:")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "            dfx version: %s\n", bold.Render(plan.Options.DfxVersion.String()))
	if len(plan.DfxOnPath) > 0 {
		fmt.Fprintf(w, "     delete dfx on PATH: %s\n", bold.Render(yesNo(plan.Options.DeleteDfxOnPath)))
	}
	fmt.Fprintf(w, "   modify PATH variable: %s\n", bold.Render(yesNo(plan.Options.ModifyPath)))
	fmt.Fprintln(w)
}

// NeedToDeleteOldDfx lists binaries that survived direct deletion.
func NeedToDeleteOldDfx(w io.Writer, remaining []string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The following binaries could not be deleted:")
	for _, p := range remaining {
		fmt.Fprintf(w, "   %s\n", p)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "You can either delete these files manually, or I can call %s for you,\n", bold.Render("sudo rm"))
	fmt.Fprintln(w, "which will likely prompt you for your password.")
	fmt.Fprintln(w)
}

// Success tells the user how to start using dfx.
func Success(w io.Writer, plan *Plan) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, bold.Render("dfxvm is installed now."))
	fmt.Fprintln(w)
	describeRemainingLegacyBinaries(w, plan)
	if plan.Options.ModifyPath {
		fmt.Fprintln(w, "To get started you may need to restart your current shell.")
		fmt.Fprintln(w, "This would reload your PATH environment variable to include")
		fmt.Fprintln(w, "the dfxvm bin directory.")
	} else {
		fmt.Fprintln(w, "To get started you need the dfxvm bin directory in your PATH:")
		fmt.Fprintf(w, "  %s\n", bold.Render(plan.BinDir))
		fmt.Fprintln(w, "This has not been done automatically.")
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "To configure your shell, run:")
	fmt.Fprintf(w, "  source \"%s\"\n", plan.EnvPathUserFacing)
	fmt.Fprintln(w)
}

func describeRemainingLegacyBinaries(w io.Writer, plan *Plan) {
	var remaining []string
	for _, p := range plan.DfxOnPath {
		if installation.Exists(p) {
			remaining = append(remaining, p)
		}
	}
	if len(remaining) == 0 {
		return
	}
	if len(remaining) == 1 {
		fmt.Fprintln(w, "The following dfx binary is still on your path:")
	} else {
		fmt.Fprintln(w, "The following dfx binaries are still on your path:")
	}
	for _, p := range remaining {
		fmt.Fprintf(w, "   %s\n", p)
	}
	if len(remaining) == 1 {
		fmt.Fprintln(w, "If you don't delete it, it may be called instead of")
	} else {
		fmt.Fprintln(w, "If you don't delete them, they may be called instead of")
	}
	fmt.Fprintln(w, "the dfx binary installed by dfxvm.")
	fmt.Fprintln(w)
}
