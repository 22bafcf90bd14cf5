//go:build !unix

package platform

import (
	"errors"
	"fmt"
	"os"
)

// ErrNotRegular is returned by OpenRegular for symlinks, pipes, devices
// and directories.
var ErrNotRegular = errors.New("not a regular file")

// OpenRegular opens name inside root for reading. A final symlink is not
// followed.
func OpenRegular(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegular)
	}
	f, err := root.Open(name)
	if err != nil {
		return nil, err
	}
	return checkRegular(f, name)
}
