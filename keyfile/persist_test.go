package keyfile_test

import (
	"github.com/kairos-io/zfs-keyfile/keyfile"
	"github.com/twpayne/go-vfs/v4/vfst"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PersistSecret", func() {
	var fs *vfst.TestFS
	var cleanup func()

	BeforeEach(func() {
		var err error
		fs, cleanup, err = vfst.NewTestFS(map[string]interface{}{"/tmp": &vfst.Dir{Perm: 0o1777}})
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	It("writes the raw secret readable by the owner only", func() {
		path, err := keyfile.PersistSecret(fs, "/tmp/.zfs_passphrase", "correct horse")
		Expect(err).ToNot(HaveOccurred())
		Expect(path).To(Equal("/tmp/.zfs_passphrase"))

		b, err := fs.ReadFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("correct horse"))

		info, err := fs.Stat(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(info.Mode().Perm()).To(BeNumerically("==", 0o600))
	})

	It("keeps non ascii passphrases byte for byte", func() {
		_, err := keyfile.PersistSecret(fs, "/tmp/.zfs_passphrase", "pässwört ✓")
		Expect(err).ToNot(HaveOccurred())
		b, err := fs.ReadFile("/tmp/.zfs_passphrase")
		Expect(err).ToNot(HaveOccurred())
		Expect(b).To(Equal([]byte("pässwört ✓")))
	})

	It("refuses to replace an existing file", func() {
		Expect(fs.WriteFile("/tmp/.zfs_passphrase", []byte("planted"), 0o644)).To(Succeed())

		_, err := keyfile.PersistSecret(fs, "/tmp/.zfs_passphrase", "secret")
		Expect(err).To(MatchError(keyfile.ErrPathExists))

		b, err := fs.ReadFile("/tmp/.zfs_passphrase")
		Expect(err).ToNot(HaveOccurred())
		Expect(string(b)).To(Equal("planted"))
	})

	It("fails when the directory is missing", func() {
		_, err := keyfile.PersistSecret(fs, "/missing/.zfs_passphrase", "secret")
		Expect(err).To(HaveOccurred())
		Expect(err).ToNot(MatchError(keyfile.ErrPathExists))
	})
})
