package dialog

import (
	"context"

	"github.com/kairos-io/zfs-keyfile/types"
)

// Zenity drives the GNOME zenity program. Its password dialog has no body
// text, only a title.
type Zenity struct {
	runner types.Runner
	extra  []string
}

func NewZenity(runner types.Runner, extra ...string) *Zenity {
	return &Zenity{runner: runner, extra: extra}
}

func (z *Zenity) Name() string {
	return "zenity"
}

func (z *Zenity) args(args ...string) []string {
	return append(append([]string{}, z.extra...), args...)
}

func (z *Zenity) Confirm(ctx context.Context, title, text string) (bool, error) {
	res, err := z.runner.Run(ctx, "zenity", z.args("--question", "--title="+title, "--text="+text)...)
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

func (z *Zenity) PromptSecret(ctx context.Context, title, _ string) (string, bool, error) {
	res, err := z.runner.Run(ctx, "zenity", z.args("--password", "--title="+title)...)
	if err != nil {
		return "", false, err
	}
	if res.ExitCode != 0 {
		return "", false, nil
	}
	return trimNewline(res.Stdout), true, nil
}
