// Package tartype holds the member metadata shared by the codec packages.
package tartype

import (
	"fmt"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/meigma/tarfile/internal/sparse"
)

// Block and record geometry.
const (
	BlockSize  = 512
	RecordSize = BlockSize * 20
)

// Field widths of the ustar header.
const (
	NameSize   = 100
	LinkSize   = 100
	PrefixSize = 155
	UnameSize  = 32
	GnameSize  = 32
)

// MaxOctalSize is the largest size representable by the 11 octal digits of
// the size field (8 GiB - 1).
const MaxOctalSize = 1<<33 - 1

// LongLinkName is the placeholder name of GNU long name/link members.
const LongLinkName = "././@LongLink"

// Type is the header type flag.
type Type byte

const (
	TypeReg         Type = '0'
	TypeRegA        Type = '\x00'
	TypeLink        Type = '1'
	TypeSymlink     Type = '2'
	TypeChar        Type = '3'
	TypeBlock       Type = '4'
	TypeDir         Type = '5'
	TypeFifo        Type = '6'
	TypeCont        Type = '7'
	TypeGNULongName Type = 'L'
	TypeGNULongLink Type = 'K'
	TypeGNUSparse   Type = 'S'
)

// String returns a short name for the type flag.
func (t Type) String() string {
	switch t {
	case TypeReg, TypeRegA:
		return "regular"
	case TypeLink:
		return "hardlink"
	case TypeSymlink:
		return "symlink"
	case TypeChar:
		return "chardev"
	case TypeBlock:
		return "blockdev"
	case TypeDir:
		return "directory"
	case TypeFifo:
		return "fifo"
	case TypeCont:
		return "contiguous"
	case TypeGNULongName:
		return "gnu-longname"
	case TypeGNULongLink:
		return "gnu-longlink"
	case TypeGNUSparse:
		return "gnu-sparse"
	default:
		return fmt.Sprintf("unknown(%q)", byte(t))
	}
}

// Known reports whether the flag is one the codec understands.
func (t Type) Known() bool {
	switch t {
	case TypeReg, TypeRegA, TypeLink, TypeSymlink, TypeChar, TypeBlock,
		TypeDir, TypeFifo, TypeCont, TypeGNULongName, TypeGNULongLink, TypeGNUSparse:
		return true
	default:
		return false
	}
}

// Member describes one archive entry.
type Member struct {
	// Name is the slash-separated path. Directories end in "/".
	Name string

	// Mode holds the permission bits.
	Mode int64

	UID int
	GID int

	// Size is the logical size of the file. For sparse members this is the
	// expanded size, not the number of stored bytes.
	Size int64

	// ModTime has one-second resolution in the archive.
	ModTime time.Time

	Type     Type
	Linkname string

	Uname string
	Gname string

	Devmajor int64
	Devminor int64

	// Prefix is the ustar prefix field. It is only populated while
	// encoding strict POSIX headers; decoding merges it into Name.
	Prefix string

	// Checksum is the checksum stored in the header.
	Checksum int64

	// Offset is the position of the first header block belonging to this
	// member, including any GNU continuation members before it.
	Offset int64

	// OffsetData is the position of the member's payload.
	OffsetData int64

	// Sparse is the segment map of a GNU sparse member, nil otherwise.
	Sparse *sparse.Map
}

// IsReg reports whether the member carries regular file data.
// Unknown type flags are treated as regular files.
func (m *Member) IsReg() bool {
	switch m.Type {
	case TypeReg, TypeRegA, TypeCont, TypeGNUSparse:
		return true
	}
	return !m.Type.Known()
}

func (m *Member) IsDir() bool     { return m.Type == TypeDir }
func (m *Member) IsSymlink() bool { return m.Type == TypeSymlink }
func (m *Member) IsLink() bool    { return m.Type == TypeLink }
func (m *Member) IsChar() bool    { return m.Type == TypeChar }
func (m *Member) IsBlock() bool   { return m.Type == TypeBlock }
func (m *Member) IsFifo() bool    { return m.Type == TypeFifo }
func (m *Member) IsSparse() bool  { return m.Sparse != nil }

// IsDev reports whether the member is a character device, block device or fifo.
func (m *Member) IsDev() bool {
	return m.IsChar() || m.IsBlock() || m.IsFifo()
}

// HasData reports whether the member is followed by payload blocks.
func (m *Member) HasData() bool {
	switch m.Type {
	case TypeLink, TypeSymlink, TypeChar, TypeBlock, TypeDir, TypeFifo:
		return false
	}
	return true
}

// StoredSize returns the number of payload bytes that follow the header.
func (m *Member) StoredSize() int64 {
	if !m.HasData() {
		return 0
	}
	if m.Sparse != nil {
		return m.Sparse.DataSize()
	}
	return m.Size
}

// FileMode converts the member's mode and type into an fs.FileMode.
func (m *Member) FileMode() fs.FileMode {
	mode := fs.FileMode(m.Mode & 0o777)
	if m.Mode&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if m.Mode&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if m.Mode&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	switch m.Type {
	case TypeDir:
		mode |= fs.ModeDir
	case TypeSymlink:
		mode |= fs.ModeSymlink
	case TypeChar:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case TypeBlock:
		mode |= fs.ModeDevice
	case TypeFifo:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

// Clone returns a shallow copy of the member.
func (m *Member) Clone() *Member {
	c := *m
	return &c
}

// String returns "name (type)".
func (m *Member) String() string {
	return fmt.Sprintf("%s (%s)", m.Name, m.Type)
}

// NormalizeName cleans an archive path: no "./" prefix, no duplicate
// separators, "." and ".." resolved lexically.
// Leading slashes are kept; callers that build names from the filesystem
// strip them separately.
func NormalizeName(name string) string {
	if name == "" {
		return ""
	}
	return path.Clean(name)
}

// DirName returns the normalized name of a directory member, with its
// trailing slash.
func DirName(name string) string {
	name = NormalizeName(name)
	if strings.HasSuffix(name, "/") {
		return name
	}
	return name + "/"
}
