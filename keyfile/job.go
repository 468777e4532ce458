package keyfile

import (
	"context"
	"errors"
	"fmt"

	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/dialog"
	"github.com/kairos-io/zfs-keyfile/types"
)

var (
	ErrCancelled = errors.New("passphrase entry cancelled")
	ErrMismatch  = errors.New("passphrases do not match")
)

// JobError is the title/description pair the installer shows when the job fails.
type JobError struct {
	Title       string
	Description string
	Err         error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Description)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// Job stages the ZFS passphrase for the keyfile creation step.
type Job struct {
	Config config.ModuleConfig
	State  StateStore
	Fs     types.FS
	Runner types.Runner
	Logger types.Logger
	// Path is where the passphrase is written, constants.PassphraseFile if empty.
	Path string
	// SelectTool picks the dialog backend, dialog.Select if nil.
	SelectTool func(types.Runner, dialog.Options) (dialog.Tool, error)
}

// Run executes the job. It returns nil when nothing had to be done or the
// passphrase was staged, and a *JobError otherwise.
func (j *Job) Run(ctx context.Context) error {
	log := j.Logger.Logger

	if !ShouldPrompt(j.Config, j.State) {
		log.Debug().Bool("alwaysPrompt", j.Config.AlwaysPrompt).Msg("No encrypted ZFS pool detected, skipping passphrase prompt")
		return nil
	}

	extra, err := j.Config.ExtraDialogArgs()
	if err != nil {
		return &JobError{Title: constants.TitleFailed, Description: err.Error(), Err: err}
	}

	selectTool := j.SelectTool
	if selectTool == nil {
		selectTool = dialog.Select
	}
	tool, err := selectTool(j.Runner, dialog.Options{ExtraArgs: extra, AllowTerminal: j.Config.AllowTerminal})
	if errors.Is(err, dialog.ErrNoDialogTool) {
		tool = nil
	} else if err != nil {
		return &JobError{Title: constants.TitleFailed, Description: err.Error(), Err: err}
	}
	if tool != nil {
		log.Debug().Str("tool", tool.Name()).Msg("Using dialog tool")
	}

	res, err := CollectPassphrase(ctx, tool)
	if err != nil {
		log.Error().Err(err).Msg("Could not ask for the passphrase")
		return &JobError{Title: constants.TitleFailed, Description: err.Error(), Err: err}
	}

	switch res.Outcome {
	case NoDialogTool:
		j.Logger.Errorf("No dialog tool found, looked for %v", constants.DialogTools)
		return &JobError{Title: constants.TitleFailed, Description: constants.DescNoDialogTool, Err: dialog.ErrNoDialogTool}
	case Cancelled:
		j.Logger.Infof("Passphrase entry cancelled by the user")
		desc := constants.DescDeclined
		if res.Reason == EmptyPassphrase {
			desc = constants.DescEmpty
		}
		return &JobError{Title: constants.TitleCancelled, Description: desc, Err: ErrCancelled}
	case Mismatched:
		j.Logger.Infof("Passphrase confirmation did not match")
		return &JobError{Title: constants.TitleMismatch, Description: constants.DescMismatch, Err: ErrMismatch}
	}

	path := j.Path
	if path == "" {
		path = constants.PassphraseFile
	}
	written, err := PersistSecret(j.Fs, path, res.Secret)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Writing passphrase file")
		return &JobError{
			Title:       constants.TitleFailed,
			Description: fmt.Sprintf(constants.DescWriteFailure, err.Error()),
			Err:         err,
		}
	}

	j.State.Insert(constants.StateKeyPassphraseFile, written)
	log.Debug().Str("path", written).Int("passphrase_length", len(res.Secret)).Msg("ZFS passphrase captured for keyfile creation")

	return nil
}
