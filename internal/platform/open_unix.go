//go:build unix

package platform

import (
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// ErrNotRegular is returned by OpenRegular for symlinks, pipes, devices
// and directories.
var ErrNotRegular = errors.New("not a regular file")

// OpenRegular opens name inside root for reading. A final symlink is not
// followed, and the open does not block on a named pipe.
func OpenRegular(root *os.Root, name string) (*os.File, error) {
	f, err := root.OpenFile(name, os.O_RDONLY|unix.O_NOFOLLOW|unix.O_NONBLOCK, 0)
	if err != nil {
		if errors.Is(err, syscall.ELOOP) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotRegular)
		}
		return nil, err
	}
	return checkRegular(f, name)
}
