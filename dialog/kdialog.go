package dialog

import (
	"context"

	"github.com/kairos-io/zfs-keyfile/types"
)

// KDialog drives the KDE kdialog program.
type KDialog struct {
	runner types.Runner
	extra  []string
}

func NewKDialog(runner types.Runner, extra ...string) *KDialog {
	return &KDialog{runner: runner, extra: extra}
}

func (k *KDialog) Name() string {
	return "kdialog"
}

func (k *KDialog) args(args ...string) []string {
	return append(append([]string{}, k.extra...), args...)
}

func (k *KDialog) Confirm(ctx context.Context, title, text string) (bool, error) {
	res, err := k.runner.Run(ctx, "kdialog", k.args("--title", title, "--yesno", text)...)
	if err != nil {
		return false, err
	}
	return res.ExitCode == 0, nil
}

func (k *KDialog) PromptSecret(ctx context.Context, title, text string) (string, bool, error) {
	res, err := k.runner.Run(ctx, "kdialog", k.args("--title", title, "--password", text)...)
	if err != nil {
		return "", false, err
	}
	if res.ExitCode != 0 {
		return "", false, nil
	}
	return trimNewline(res.Stdout), true, nil
}
