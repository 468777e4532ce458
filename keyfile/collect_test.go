package keyfile_test

import (
	"context"
	"errors"

	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/keyfile"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CollectPassphrase", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("reports a missing dialog tool", func() {
		res, err := keyfile.CollectPassphrase(ctx, nil)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.NoDialogTool))
	})

	It("returns the trimmed passphrase when both entries match", func() {
		tool := &scriptedTool{answers: []answer{
			{ok: true},
			{ok: true, value: "  hunter2  "},
			{ok: true, value: "hunter2\t"},
		}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Provided))
		Expect(res.Secret).To(Equal("hunter2"))

		Expect(tool.calls).To(Equal([]call{
			{"confirm", constants.InfoTitle, constants.InfoText},
			{"secret", constants.PassphraseTitle, constants.PassphrasePrompt},
			{"secret", constants.ConfirmTitle, constants.ConfirmPrompt},
		}))
	})

	It("stops after the information dialog is declined", func() {
		tool := &scriptedTool{answers: []answer{{ok: false}}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Cancelled))
		Expect(res.Reason).To(Equal(keyfile.Declined))
		Expect(tool.calls).To(HaveLen(1))
	})

	It("treats a whitespace only passphrase as cancelled", func() {
		tool := &scriptedTool{answers: []answer{{ok: true}, {ok: true, value: "   "}}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Cancelled))
		Expect(res.Reason).To(Equal(keyfile.EmptyPassphrase))
		Expect(tool.calls).To(HaveLen(2))
	})

	It("treats a dismissed passphrase dialog as cancelled", func() {
		tool := &scriptedTool{answers: []answer{{ok: true}, {ok: false, value: "ignored"}}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Cancelled))
		Expect(res.Reason).To(Equal(keyfile.EmptyPassphrase))
	})

	It("reports a mismatch", func() {
		tool := &scriptedTool{answers: []answer{{ok: true}, {ok: true, value: "abc"}, {ok: true, value: "abd"}}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Mismatched))
		Expect(res.Secret).To(BeEmpty())
	})

	It("reports a dismissed confirmation as a mismatch", func() {
		tool := &scriptedTool{answers: []answer{{ok: true}, {ok: true, value: "abc"}, {ok: false}}}
		res, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).ToNot(HaveOccurred())
		Expect(res.Outcome).To(Equal(keyfile.Mismatched))
	})

	It("fails when a dialog cannot be shown", func() {
		boom := errors.New("exec format error")
		tool := &scriptedTool{answers: []answer{{err: boom}}}
		_, err := keyfile.CollectPassphrase(ctx, tool)
		Expect(err).To(MatchError(boom))
	})

	It("names every outcome", func() {
		Expect(keyfile.Provided.String()).To(Equal("provided"))
		Expect(keyfile.Cancelled.String()).To(Equal("cancelled"))
		Expect(keyfile.Mismatched.String()).To(Equal("mismatched"))
		Expect(keyfile.NoDialogTool.String()).To(Equal("no-dialog-tool"))
	})
})
