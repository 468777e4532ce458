package types

import (
	"io/fs"
	"os"
)

// FS is the subset of filesystem methods the job needs. vfs.OSFS satisfies it
// on a real system and vfst.TestFS in tests.
type FS interface {
	Stat(name string) (os.FileInfo, error)
	ReadFile(filename string) ([]byte, error)
	RawPath(name string) (string, error)
	Remove(name string) error
	Mkdir(name string, perm os.FileMode) error
	OpenFile(name string, flag int, perm fs.FileMode) (*os.File, error)
	WriteFile(filename string, data []byte, perm os.FileMode) error
}
