package initplan

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"dfxvm/internal/logger"
)

// Confirmation is the answer to "proceed with installation?".
type Confirmation int

const (
	Proceed Confirmation = iota
	Customize
	Cancel
)

// DeletionStrategy is how to deal with legacy binaries that could not be deleted directly.
type DeletionStrategy int

const (
	Manual DeletionStrategy = iota
	CallSudo
	DontDelete
)

// InteractError wraps a failure talking to the terminal.
type InteractError struct {
	Err error
}

func (e *InteractError) Error() string { return fmt.Sprintf("failed to interact with terminal: %v", e.Err) }

func (e *InteractError) Unwrap() error { return e.Err }

// UI is the source of the installer's decisions.
type UI interface {
	Confirm() (Confirmation, error)
	Customize(plan *Plan) error
	SelectDeletionStrategy() (DeletionStrategy, error)
}

// AssumeYesUI answers every question without a terminal: proceed with the
// plan as built, and leave undeletable binaries in place.
type AssumeYesUI struct{}

func (AssumeYesUI) Confirm() (Confirmation, error) { return Proceed, nil }

func (AssumeYesUI) Customize(*Plan) error { return nil }

func (AssumeYesUI) SelectDeletionStrategy() (DeletionStrategy, error) {
	logger.Warn("[WARN] Not deleting remaining dfx binaries without confirmation\n")
	return DontDelete, nil
}

var runForm = func(form *huh.Form) error { return form.Run() }

// HuhUI asks questions with charmbracelet/huh forms.
type HuhUI struct {
	isTerminal func() bool
}

// NewHuhUI creates a HuhUI that requires stdin to be a terminal.
func NewHuhUI() *HuhUI {
	return &HuhUI{isTerminal: stdinIsTerminal}
}

func stdinIsTerminal() bool {
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (ui *HuhUI) run(form *huh.Form) error {
	checker := ui.isTerminal
	if checker == nil {
		checker = stdinIsTerminal
	}
	if !checker() {
		return &InteractError{Err: errors.New("dfxvm-init needs an interactive terminal; pass --yes to accept the defaults")}
	}
	if err := runForm(form); err != nil {
		return &InteractError{Err: err}
	}
	return nil
}

// Confirm asks whether to proceed, customize, or cancel. Aborting the prompt cancels.
func (ui *HuhUI) Confirm() (Confirmation, error) {
	choice := Proceed
	err := ui.run(huh.NewForm(huh.NewGroup(
		huh.NewSelect[Confirmation]().
			Title("Proceed with installation?").
			Options(
				huh.NewOption("Proceed with installation (default)", Proceed),
				huh.NewOption("Customize installation", Customize),
				huh.NewOption("Cancel installation", Cancel),
			).
			Value(&choice),
	)))
	if errors.Is(err, huh.ErrUserAborted) {
		return Cancel, nil
	}
	return choice, err
}

// Customize asks for each option in turn, starting from the current values.
func (ui *HuhUI) Customize(plan *Plan) error {
	versionText := plan.Options.DfxVersion.String()
	deleteDfx := plan.Options.DeleteDfxOnPath
	modifyPath := plan.Options.ModifyPath

	fields := []huh.Field{
		huh.NewInput().
			Title("dfx version?").
			Value(&versionText).
			Validate(func(s string) error {
				_, err := ParseDfxVersion(s)
				return err
			}),
	}
	if len(plan.DfxOnPath) > 0 {
		fields = append(fields, huh.NewConfirm().
			Title("Delete dfx binaries found on PATH?").
			Value(&deleteDfx))
	}
	fields = append(fields, huh.NewConfirm().
		Title("Modify PATH variable?").
		Value(&modifyPath))

	if err := ui.run(huh.NewForm(huh.NewGroup(fields...))); err != nil {
		return err
	}

	version, err := ParseDfxVersion(versionText)
	if err != nil {
		return &InteractError{Err: err}
	}
	plan.Options = PlanOptions{DfxVersion: version, DeleteDfxOnPath: deleteDfx, ModifyPath: modifyPath}
	return nil
}

// SelectDeletionStrategy asks how to handle binaries that could not be deleted.
func (ui *HuhUI) SelectDeletionStrategy() (DeletionStrategy, error) {
	choice := Manual
	err := ui.run(huh.NewForm(huh.NewGroup(
		huh.NewSelect[DeletionStrategy]().
			Title("How would you like to proceed?").
			Options(
				huh.NewOption("I've deleted them manually (default)", Manual),
				huh.NewOption("Call sudo rm for me (I'll enter my password)", CallSudo),
				huh.NewOption("Don't delete anything. I'll do it later", DontDelete),
			).
			Value(&choice),
	)))
	return choice, err
}
