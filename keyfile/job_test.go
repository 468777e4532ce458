package keyfile_test

import (
	"bytes"
	"context"
	"errors"

	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/dialog"
	"github.com/kairos-io/zfs-keyfile/keyfile"
	"github.com/kairos-io/zfs-keyfile/state"
	"github.com/kairos-io/zfs-keyfile/types"
	"github.com/twpayne/go-vfs/v4/vfst"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Job", func() {
	var fs *vfst.TestFS
	var cleanup func()
	var st *state.Store
	var tool *scriptedTool
	var selectErr error
	var selected []dialog.Options
	var job *keyfile.Job
	var logs *bytes.Buffer

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{"/tmp": &vfst.Dir{Perm: 0o1777}})
		Expect(err).ToNot(HaveOccurred())

		st = state.FromMap(map[string]interface{}{
			"zfsPoolInfo": map[string]interface{}{"name": "zpcachyos", "encrypted": true},
			"zfsDatasets": []interface{}{
				map[string]interface{}{"zpool": "zpcachyos", "name": "ROOT/cos/root", "mountpoint": "/"},
			},
		})
		tool = &scriptedTool{}
		selectErr = nil
		selected = nil
		logs = &bytes.Buffer{}

		job = &keyfile.Job{
			State:  st,
			Fs:     fs,
			Logger: types.NewBufferLogger(logs),
			SelectTool: func(_ types.Runner, opts dialog.Options) (dialog.Tool, error) {
				selected = append(selected, opts)
				if selectErr != nil {
					return nil, selectErr
				}
				return tool, nil
			},
		}
	})

	AfterEach(func() {
		cleanup()
	})

	expectJobError := func(err error, title, description string) *keyfile.JobError {
		var jobErr *keyfile.JobError
		Expect(errors.As(err, &jobErr)).To(BeTrue(), "%v", err)
		Expect(jobErr.Title).To(Equal(title))
		Expect(jobErr.Description).To(Equal(description))
		return jobErr
	}

	expectNoPassphraseFile := func() {
		_, err := fs.Stat(constants.PassphraseFile)
		Expect(err).To(HaveOccurred())
		Expect(st.Contains(constants.StateKeyPassphraseFile)).To(BeFalse())
	}

	It("does nothing when no encrypted pool was detected", func() {
		st.Remove(constants.StateKeyDatasets)
		Expect(job.Run(context.Background())).To(Succeed())
		Expect(selected).To(BeEmpty())
		expectNoPassphraseFile()
	})

	It("stages the passphrase and records it in the state", func() {
		tool.answers = []answer{{ok: true}, {ok: true, value: "hunter2\n"}, {ok: true, value: "hunter2"}}

		Expect(job.Run(context.Background())).To(Succeed())

		Expect(st.Value(constants.StateKeyPassphraseFile)).To(Equal(constants.PassphraseFile))
		b, err := fs.ReadFile(constants.PassphraseFile)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("hunter2"))
		Expect(logs.String()).ToNot(ContainSubstring("hunter2"))
	})

	It("prompts on an empty state when alwaysPrompt is set", func() {
		job.State = state.New()
		job.Config = config.ModuleConfig{AlwaysPrompt: true}
		tool.answers = []answer{{ok: true}, {ok: true, value: "x"}, {ok: true, value: "x"}}

		Expect(job.Run(context.Background())).To(Succeed())
		Expect(job.State.Value(constants.StateKeyPassphraseFile)).To(Equal(constants.PassphraseFile))
	})

	It("writes to a custom path", func() {
		job.Path = "/tmp/custom"
		tool.answers = []answer{{ok: true}, {ok: true, value: "x"}, {ok: true, value: "x"}}

		Expect(job.Run(context.Background())).To(Succeed())
		Expect(st.Value(constants.StateKeyPassphraseFile)).To(Equal("/tmp/custom"))
	})

	It("passes the configured dialog arguments to the tool selection", func() {
		job.Config = config.ModuleConfig{DialogArgs: `--geometry "600x200"`, AllowTerminal: true}
		tool.answers = []answer{{ok: false}}

		_ = job.Run(context.Background())
		Expect(selected).To(HaveLen(1))
		Expect(selected[0].ExtraArgs).To(Equal([]string{"--geometry", "600x200"}))
		Expect(selected[0].AllowTerminal).To(BeTrue())
	})

	It("fails when no dialog tool is available", func() {
		selectErr = dialog.ErrNoDialogTool

		err := job.Run(context.Background())
		jobErr := expectJobError(err, constants.TitleFailed, constants.DescNoDialogTool)
		Expect(jobErr).To(MatchError(dialog.ErrNoDialogTool))
		expectNoPassphraseFile()
	})

	It("fails through the default tool selection when neither kdialog nor zenity is installed", func() {
		runner := &emptyPathRunner{}
		job.Runner = runner
		job.SelectTool = nil

		err := job.Run(context.Background())
		expectJobError(err, constants.TitleFailed, constants.DescNoDialogTool)
		Expect(runner.lookups).To(Equal(constants.DialogTools))
		Expect(logs.String()).To(ContainSubstring("No dialog tool found"))
		expectNoPassphraseFile()
	})

	It("reports a declined information dialog", func() {
		tool.answers = []answer{{ok: false}}

		err := job.Run(context.Background())
		expectJobError(err, constants.TitleCancelled, constants.DescDeclined)
		Expect(err).To(MatchError(keyfile.ErrCancelled))
		expectNoPassphraseFile()
	})

	It("reports an empty passphrase", func() {
		tool.answers = []answer{{ok: true}, {ok: true, value: ""}}

		err := job.Run(context.Background())
		expectJobError(err, constants.TitleCancelled, constants.DescEmpty)
		expectNoPassphraseFile()
	})

	It("reports mismatching passphrases without writing anything", func() {
		tool.answers = []answer{{ok: true}, {ok: true, value: "abc"}, {ok: true, value: "abd"}}

		err := job.Run(context.Background())
		expectJobError(err, constants.TitleMismatch, constants.DescMismatch)
		Expect(err).To(MatchError(keyfile.ErrMismatch))
		expectNoPassphraseFile()
	})

	It("reports a passphrase file that already exists", func() {
		Expect(fs.WriteFile(constants.PassphraseFile, []byte("old"), 0o600)).To(Succeed())
		tool.answers = []answer{{ok: true}, {ok: true, value: "abc"}, {ok: true, value: "abc"}}

		err := job.Run(context.Background())
		var jobErr *keyfile.JobError
		Expect(errors.As(err, &jobErr)).To(BeTrue())
		Expect(jobErr.Title).To(Equal(constants.TitleFailed))
		Expect(jobErr.Description).To(HavePrefix("Error writing passphrase to temporary file: "))
		Expect(err).To(MatchError(keyfile.ErrPathExists))
		Expect(st.Contains(constants.StateKeyPassphraseFile)).To(BeFalse())
	})

	It("rejects unparsable dialog arguments", func() {
		job.Config = config.ModuleConfig{DialogArgs: `--title "unterminated`}

		err := job.Run(context.Background())
		var jobErr *keyfile.JobError
		Expect(errors.As(err, &jobErr)).To(BeTrue())
		Expect(jobErr.Title).To(Equal(constants.TitleFailed))
		Expect(selected).To(BeEmpty())
	})
})
