package header

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/meigma/tarfile/internal/tartype"
)

var (
	// ErrEndOfArchive is returned by Decode for an all-NUL block.
	ErrEndOfArchive = errors.New("header: end of archive")

	// ErrInvalid is returned when a block cannot be decoded.
	ErrInvalid = errors.New("header: invalid header")

	// ErrFieldOverflow is returned when a numeric value does not fit its field.
	ErrFieldOverflow = errors.New("header: numeric field overflow")
)

// Format selects the header dialect used when encoding.
type Format uint8

const (
	// FormatGNU writes the GNU magic and allows base-256 numeric fields.
	FormatGNU Format = iota

	// FormatPOSIX writes the POSIX ustar magic, octal fields only, and the
	// prefix field.
	FormatPOSIX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatGNU:
		return "gnu"
	case FormatPOSIX:
		return "posix"
	default:
		return "unknown"
	}
}

// Decode parses a header block.
//
// It returns ErrEndOfArchive for an all-NUL block and an error wrapping
// ErrInvalid when a numeric field cannot be parsed. A checksum mismatch is
// not an error; checksumOK reports whether the stored checksum matched
// either the unsigned or the signed byte sum.
//
// Decode does not normalize the name and does not merge GNU long
// name/link continuation members; that is the caller's job.
func Decode(b *Block) (m tartype.Member, checksumOK bool, err error) {
	if b.IsZero() {
		return tartype.Member{}, false, ErrEndOfArchive
	}

	var p parser
	m.Checksum = p.numeric(b.chksum())
	m.Name = ParseString(b.name())
	m.Mode = p.numeric(b.mode())
	m.UID = int(p.numeric(b.uid()))
	m.GID = int(p.numeric(b.gid()))
	m.Size = p.numeric(b.size())
	m.ModTime = time.Unix(p.numeric(b.mtime()), 0)
	m.Type = b.Type()
	m.Linkname = ParseString(b.linkname())

	if b.isUSTARLike() {
		m.Uname = ParseString(b.uname())
		m.Gname = ParseString(b.gname())
		m.Devmajor = p.numeric(b.devmajor())
		m.Devminor = p.numeric(b.devminor())
	}
	if b.isPOSIX() && m.Type != tartype.TypeGNUSparse {
		if prefix := ParseString(b.prefix()); prefix != "" {
			m.Name = prefix + "/" + m.Name
		}
	}
	if p.err != nil {
		return tartype.Member{}, false, p.err
	}
	if m.Size < 0 {
		return tartype.Member{}, false, fmt.Errorf("%w: negative size %d", ErrInvalid, m.Size)
	}

	unsigned, signed := b.Checksums()
	return m, m.Checksum == unsigned || m.Checksum == signed, nil
}

// Encode renders m as a header block.
//
// Text fields are truncated to their width; callers must already have
// emitted GNU long name/link members or split the name into Prefix and
// Name. In FormatPOSIX numeric fields must fit their octal width; in
// FormatGNU oversized values switch to base-256.
func Encode(m *tartype.Member, f Format) (Block, error) {
	b, err := encode(m, f)
	if err != nil {
		return Block{}, err
	}
	b.setChecksum()
	return b, nil
}

func encode(m *tartype.Member, f Format) (Block, error) {
	var b Block
	binary := f == FormatGNU

	size := m.Size
	if m.Sparse != nil {
		size = m.Sparse.DataSize()
	}

	setString(b.name(), m.Name)
	setString(b.linkname(), m.Linkname)
	setString(b.uname(), m.Uname)
	setString(b.gname(), m.Gname)
	b[offType] = byte(m.Type)

	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}
	add(formatNumeric(b.mode(), m.Mode&0o7777, binary, "mode"))
	add(formatNumeric(b.uid(), int64(m.UID), binary, "uid"))
	add(formatNumeric(b.gid(), int64(m.GID), binary, "gid"))
	add(formatNumeric(b.size(), size, binary, "size"))
	add(formatNumeric(b.mtime(), m.ModTime.Unix(), binary, "mtime"))
	add(formatNumeric(b.devmajor(), m.Devmajor, binary, "devmajor"))
	add(formatNumeric(b.devminor(), m.Devminor, binary, "devminor"))
	if len(errs) > 0 {
		return Block{}, errors.Join(errs...)
	}

	switch f {
	case FormatPOSIX:
		copy(b.magic(), magicPOSIX)
		copy(b.version(), versionPOSIX)
		setString(b.prefix(), m.Prefix)
	default:
		copy(b[offMagic:], magicGNU)
	}
	copy(b.chksum(), "        ")
	return b, nil
}

// SplitPrefix splits a name longer than the name field into a ustar prefix
// and name at the last slash that keeps the prefix within 155 bytes and the
// remainder within 100 bytes. A trailing slash is kept in the remainder.
func SplitPrefix(name string) (prefix, rest string, ok bool) {
	length := len(name)
	if length <= tartype.NameSize {
		return "", name, true
	}
	if length > tartype.PrefixSize+1 {
		length = tartype.PrefixSize + 1
	} else if name[length-1] == '/' {
		length--
	}
	i := strings.LastIndexByte(name[:length], '/')
	if i <= 0 {
		return "", "", false
	}
	prefix, rest = name[:i], name[i+1:]
	if rest == "" || rest == "/" || len(rest) > tartype.NameSize || len(prefix) > tartype.PrefixSize {
		return "", "", false
	}
	return prefix, rest, true
}

// LongNameMember returns the header of the GNU continuation member that
// carries value for the following real member. The payload is value
// followed by a NUL, padded to a block boundary by the writer.
func LongNameMember(t tartype.Type, value string) *tartype.Member {
	return &tartype.Member{
		Name: tartype.LongLinkName,
		Type: t,
		Size: int64(len(value)) + 1,
		// GNU tar stores zero times and "root" ownership here; the fields
		// are never applied to any file.
		ModTime: time.Unix(0, 0),
	}
}
