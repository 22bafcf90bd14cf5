//go:build !unix

package platform

import (
	"errors"
	"io/fs"
	"os"
)

// Stat returns only what fs.FileInfo exposes on non-Unix systems.
func Stat(info fs.FileInfo) StatInfo {
	return StatInfo{}
}

// Mkfifo is not supported on non-Unix systems.
func Mkfifo(dir *os.File, name string, perm fs.FileMode) error {
	return errors.ErrUnsupported
}

// Mknod is not supported on non-Unix systems.
func Mknod(dir *os.File, name string, char bool, perm fs.FileMode, major, minor int64) error {
	return errors.ErrUnsupported
}

// Euid returns -1; ownership is never restored.
func Euid() int {
	return -1
}
