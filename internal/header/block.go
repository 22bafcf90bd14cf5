// Package header encodes and decodes single 512-byte tar header blocks.
//
// The layout is the POSIX ustar header with the GNU variations used for
// large files and old-style sparse members:
//
//	  0 name[100]      100 mode[8]      108 uid[8]       116 gid[8]
//	124 size[12]       136 mtime[12]    148 chksum[8]    156 typeflag[1]
//	157 linkname[100]  257 magic[6]     263 version[2]   265 uname[32]
//	297 gname[32]      329 devmajor[8]  337 devminor[8]  345 prefix[155]
//
// GNU headers reuse the prefix area for atime, ctime and the inline sparse
// map (see sparse.go).
package header

import (
	"bytes"

	"github.com/meigma/tarfile/internal/tartype"
)

// Block is one header block.
type Block [tartype.BlockSize]byte

var zeroBlock Block

// Field offsets.
const (
	offName     = 0
	offMode     = 100
	offUID      = 108
	offGID      = 116
	offSize     = 124
	offMtime    = 136
	offChksum   = 148
	offType     = 156
	offLinkname = 157
	offMagic    = 257
	offVersion  = 263
	offUname    = 265
	offGname    = 297
	offDevmajor = 329
	offDevminor = 337
	offPrefix   = 345
)

const (
	magicPOSIX   = "ustar\x00"
	versionPOSIX = "00"
	magicGNU     = "ustar  \x00" // magic and version combined
	chksumSize   = 8
)

func (b *Block) name() []byte     { return b[offName:][:tartype.NameSize] }
func (b *Block) mode() []byte     { return b[offMode:][:8] }
func (b *Block) uid() []byte      { return b[offUID:][:8] }
func (b *Block) gid() []byte      { return b[offGID:][:8] }
func (b *Block) size() []byte     { return b[offSize:][:12] }
func (b *Block) mtime() []byte    { return b[offMtime:][:12] }
func (b *Block) chksum() []byte   { return b[offChksum:][:chksumSize] }
func (b *Block) linkname() []byte { return b[offLinkname:][:tartype.LinkSize] }
func (b *Block) magic() []byte    { return b[offMagic:][:6] }
func (b *Block) version() []byte  { return b[offVersion:][:2] }
func (b *Block) uname() []byte    { return b[offUname:][:tartype.UnameSize] }
func (b *Block) gname() []byte    { return b[offGname:][:tartype.GnameSize] }
func (b *Block) devmajor() []byte { return b[offDevmajor:][:8] }
func (b *Block) devminor() []byte { return b[offDevminor:][:8] }
func (b *Block) prefix() []byte   { return b[offPrefix:][:tartype.PrefixSize] }

// IsZero reports whether every byte of the block is NUL.
func (b *Block) IsZero() bool {
	return *b == zeroBlock
}

// Type returns the raw type flag.
func (b *Block) Type() tartype.Type {
	return tartype.Type(b[offType])
}

// isPOSIX reports whether the block carries the POSIX ustar magic.
func (b *Block) isPOSIX() bool {
	return string(b.magic()) == magicPOSIX && string(b.version()) == versionPOSIX
}

// isGNU reports whether the block carries the GNU magic.
func (b *Block) isGNU() bool {
	return string(b[offMagic:offMagic+8]) == magicGNU
}

// isUSTARLike reports whether the ustar-only fields (owner names, device
// numbers) are meaningful. Pre-POSIX headers leave that area empty.
func (b *Block) isUSTARLike() bool {
	return bytes.HasPrefix(b.magic(), []byte("ustar"))
}

// Checksums returns the unsigned and signed sums of the block with the
// checksum field counted as eight spaces. Historic tar implementations
// disagree on signedness, so both are accepted when decoding.
func (b *Block) Checksums() (unsigned, signed int64) {
	for i, c := range b {
		if i >= offChksum && i < offChksum+chksumSize {
			c = ' '
		}
		unsigned += int64(c)
		signed += int64(int8(c))
	}
	return unsigned, signed
}

// setChecksum computes and stores the unsigned checksum as six octal
// digits, a NUL and a space.
func (b *Block) setChecksum() {
	unsigned, _ := b.Checksums()
	f := b.chksum()
	formatOctal(f[:7], unsigned)
	f[7] = ' '
}

// ParseString returns the bytes of b up to the first NUL.
func ParseString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// setString copies s into the field, truncating to the field width.
// The rest of the field is left NUL.
func setString(field []byte, s string) {
	n := copy(field, s)
	clear(field[n:])
}
