package platform

import (
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// Mkfifo creates a named pipe called name inside the open directory dir.
func Mkfifo(dir *os.File, name string, perm fs.FileMode) error {
	if err := unix.Mkfifoat(int(dir.Fd()), name, uint32(perm.Perm())); err != nil { //nolint:gosec // fd fits int
		return &fs.PathError{Op: "mkfifoat", Path: name, Err: err}
	}
	return nil
}

// Mknod creates a character or block device called name inside the open
// directory dir.
func Mknod(dir *os.File, name string, char bool, perm fs.FileMode, major, minor int64) error {
	mode, dev := deviceMode(char, perm, major, minor)
	if err := unix.Mknodat(int(dir.Fd()), name, mode, int(dev)); err != nil { //nolint:gosec // fd and dev fit int
		return &fs.PathError{Op: "mknodat", Path: name, Err: err}
	}
	return nil
}
