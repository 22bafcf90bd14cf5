//go:build unix && !linux

package platform

import (
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Mkfifo creates a named pipe called name inside the open directory dir.
// The *at system calls are not available everywhere, so the pipe is
// created by path below dir.Name().
func Mkfifo(dir *os.File, name string, perm fs.FileMode) error {
	path := filepath.Join(dir.Name(), name)
	if err := unix.Mkfifo(path, uint32(perm.Perm())); err != nil {
		return &fs.PathError{Op: "mkfifo", Path: path, Err: err}
	}
	return nil
}

// Mknod creates a character or block device called name inside the open
// directory dir, by path like Mkfifo.
func Mknod(dir *os.File, name string, char bool, perm fs.FileMode, major, minor int64) error {
	path := filepath.Join(dir.Name(), name)
	mode, dev := deviceMode(char, perm, major, minor)
	if err := unix.Mknod(path, mode, int(dev)); err != nil { //nolint:gosec // dev fits int on supported platforms
		return &fs.PathError{Op: "mknod", Path: path, Err: err}
	}
	return nil
}
