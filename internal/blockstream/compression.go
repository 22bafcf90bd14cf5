// Package blockstream implements the byte stream underneath a tar archive:
// an optional compression envelope, position tracking, and the seek rules
// that apply to seekable files and to one-way pipes.
package blockstream

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStream is returned for a backward seek on a stream that can only
	// move forward.
	ErrStream = errors.New("blockstream: seeking backwards is not allowed")

	// ErrCompression is returned when a compression envelope is unknown or
	// its magic does not match.
	ErrCompression = errors.New("blockstream: compression error")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("blockstream: closed")
)

// Compression identifies the envelope around the tar stream.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionBzip2
	CompressionXz
	CompressionZstd
)

// Probe is the order in which envelopes are tried when the compression is
// not given.
var Probe = []Compression{
	CompressionNone,
	CompressionGzip,
	CompressionBzip2,
	CompressionXz,
	CompressionZstd,
}

// String returns the mode suffix of the compression ("tar", "gz", ...).
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "tar"
	case CompressionGzip:
		return "gz"
	case CompressionBzip2:
		return "bz2"
	case CompressionXz:
		return "xz"
	case CompressionZstd:
		return "zst"
	default:
		return "unknown"
	}
}

// Ext returns the conventional file extension, including the dot.
func (c Compression) Ext() string {
	if c == CompressionNone {
		return ""
	}
	return "." + c.String()
}

// ParseCompression parses a mode suffix. The empty string and "tar" mean no
// compression.
func ParseCompression(s string) (Compression, error) {
	switch s {
	case "", "tar":
		return CompressionNone, nil
	case "gz":
		return CompressionGzip, nil
	case "bz2":
		return CompressionBzip2, nil
	case "xz":
		return CompressionXz, nil
	case "zst":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("%w: unknown compression method %q", ErrCompression, s)
	}
}

// FromExt picks a compression from a file name extension.
func FromExt(name string) Compression {
	for _, c := range Probe[1:] {
		if strings.HasSuffix(name, c.Ext()) {
			return c
		}
	}
	switch {
	case strings.HasSuffix(name, ".tgz"):
		return CompressionGzip
	case strings.HasSuffix(name, ".tbz"), strings.HasSuffix(name, ".tbz2"):
		return CompressionBzip2
	case strings.HasSuffix(name, ".txz"):
		return CompressionXz
	case strings.HasSuffix(name, ".tzst"):
		return CompressionZstd
	}
	return CompressionNone
}

var magics = map[Compression][]byte{
	CompressionGzip:  {0x1f, 0x8b},
	CompressionBzip2: {'B', 'Z', 'h'},
	CompressionXz:    {0xfd, '7', 'z', 'X', 'Z', 0x00},
	CompressionZstd:  {0x28, 0xb5, 0x2f, 0xfd},
}

// maxMagic is the number of bytes Detect needs.
const maxMagic = 6

// Magic returns the leading bytes of the envelope, nil for CompressionNone.
func (c Compression) Magic() []byte {
	return magics[c]
}

// Detect reports the envelope whose magic prefixes head. Anything else is
// treated as an uncompressed stream.
func Detect(head []byte) Compression {
	for _, c := range Probe[1:] {
		if bytes.HasPrefix(head, magics[c]) {
			return c
		}
	}
	return CompressionNone
}
