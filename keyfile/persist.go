package keyfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/types"
)

// ErrPathExists is wrapped by PersistSecret when the target was already there.
var ErrPathExists = errors.New("passphrase file already exists")

// PersistSecret writes secret to path, which must not exist yet. The file is
// created owner read/write only and holds the raw bytes, no newline.
func PersistSecret(fsys types.FS, path, secret string) (string, error) {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, constants.FilePerm)
	if errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("%w: %s", ErrPathExists, path)
	}
	if err != nil {
		return "", err
	}

	_, err = f.Write([]byte(secret))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// Do not leave a truncated passphrase behind for the boot configuration to pick up.
		_ = fsys.Remove(path)
		return "", err
	}

	return path, nil
}
