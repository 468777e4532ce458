// Package dialog asks the user questions through whatever dialog program
// the live system ships.
package dialog

import (
	"context"
	"errors"
	"strings"

	"github.com/kairos-io/zfs-keyfile/types"
)

// ErrNoDialogTool is returned by Select when no backend can be used.
var ErrNoDialogTool = errors.New("no dialog tool available")

// Tool is the capability every dialog backend provides.
type Tool interface {
	// Name returns the backend name, for logging.
	Name() string

	// Confirm shows a yes/no question. It returns true only on an affirmative answer.
	Confirm(ctx context.Context, title, text string) (bool, error)

	// PromptSecret asks for masked input. ok is false when the user dismissed
	// the dialog. The returned value is exactly what the program printed,
	// minus the line terminator.
	PromptSecret(ctx context.Context, title, text string) (value string, ok bool, err error)
}

// Options tweaks backend selection and invocation.
type Options struct {
	// ExtraArgs are passed to every invocation of a graphical backend.
	ExtraArgs []string
	// AllowTerminal enables the terminal backend as the last resort.
	AllowTerminal bool
	// IsTerminal reports whether an interactive terminal is attached.
	IsTerminal func() bool
}

// Select probes the backends in priority order and returns the first usable one.
func Select(runner types.Runner, opts Options) (Tool, error) {
	if _, err := runner.LookPath("kdialog"); err == nil {
		return NewKDialog(runner, opts.ExtraArgs...), nil
	}
	if _, err := runner.LookPath("zenity"); err == nil {
		return NewZenity(runner, opts.ExtraArgs...), nil
	}

	isTerminal := opts.IsTerminal
	if isTerminal == nil {
		isTerminal = StdioIsTerminal
	}
	if opts.AllowTerminal && isTerminal() {
		return NewTerminal(), nil
	}

	return nil, ErrNoDialogTool
}

// trimNewline drops the single line terminator dialog programs print after the value.
func trimNewline(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}
