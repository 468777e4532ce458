package dialog

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

// StdioIsTerminal is true when both stdin and stdout are a terminal.
func StdioIsTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

// Terminal asks on the controlling terminal. It is only used when the
// configuration allows it, the installer normally runs graphically.
type Terminal struct{}

func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) Name() string {
	return "terminal"
}

func (t *Terminal) Confirm(_ context.Context, title, text string) (bool, error) {
	pterm.DefaultSection.Println(title)
	pterm.Info.Println(text)
	ok, err := pterm.DefaultInteractiveConfirm.WithDefaultValue(false).Show()
	if err != nil {
		// Interrupted, treat it like a "no".
		return false, nil
	}
	return ok, nil
}

func (t *Terminal) PromptSecret(_ context.Context, title, text string) (string, bool, error) {
	pterm.DefaultSection.Println(title)
	value, err := pterm.DefaultInteractiveTextInput.WithMask("*").Show(text)
	if err != nil {
		return "", false, nil
	}
	return value, true, nil
}
