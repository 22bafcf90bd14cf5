//go:build unix

package platform

import (
	"io/fs"
	"syscall"

	"golang.org/x/sys/unix"
)

// Stat extracts ownership, identity and device numbers from file info.
func Stat(info fs.FileInfo) StatInfo {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return StatInfo{}
	}
	rdev := uint64(st.Rdev) //nolint:unconvert,gosec // width varies by platform
	return StatInfo{
		UID:      int(st.Uid),
		GID:      int(st.Gid),
		Inode:    InodeKey{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, //nolint:unconvert,gosec // width varies by platform
		HasInode: true,
		Nlink:    uint64(st.Nlink), //nolint:unconvert // width varies by platform
		Devmajor: int64(unix.Major(rdev)),
		Devminor: int64(unix.Minor(rdev)),
	}
}

// deviceMode returns the mknod mode and device number of a character or
// block device.
func deviceMode(char bool, perm fs.FileMode, major, minor int64) (uint32, uint64) {
	mode := uint32(perm.Perm())
	if char {
		mode |= unix.S_IFCHR
	} else {
		mode |= unix.S_IFBLK
	}
	return mode, unix.Mkdev(uint32(major), uint32(minor)) //nolint:gosec // device numbers fit 32 bits
}

// Euid returns the effective user id.
func Euid() int {
	return unix.Geteuid()
}
