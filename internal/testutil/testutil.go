// Package testutil builds raw tar streams block by block, bypassing the
// archive writer, so readers can be tested against hand-crafted input.
package testutil

import (
	"bytes"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meigma/tarfile/internal/header"
	"github.com/meigma/tarfile/internal/sizing"
	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

// Builder accumulates a raw tar stream.
type Builder struct {
	tb  testing.TB
	buf bytes.Buffer
}

// NewBuilder returns an empty builder that fails tb on encoding errors.
func NewBuilder(tb testing.TB) *Builder {
	tb.Helper()
	return &Builder{tb: tb}
}

// File appends a regular file member.
func (b *Builder) File(name string, data []byte) *Builder {
	b.tb.Helper()
	return b.Member(&tartype.Member{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: time.Unix(1700000000, 0),
		Type:    tartype.TypeReg,
	}, data)
}

// Member appends m encoded in GNU format followed by its block-padded data.
func (b *Builder) Member(m *tartype.Member, data []byte) *Builder {
	b.tb.Helper()
	blk, err := header.Encode(m, header.FormatGNU)
	require.NoError(b.tb, err)
	b.buf.Write(blk[:])
	b.data(data)
	return b
}

// POSIXMember appends m encoded in POSIX format.
func (b *Builder) POSIXMember(m *tartype.Member, data []byte) *Builder {
	b.tb.Helper()
	blk, err := header.Encode(m, header.FormatPOSIX)
	require.NoError(b.tb, err)
	b.buf.Write(blk[:])
	b.data(data)
	return b
}

// LongName appends a GNU long name continuation member for name.
func (b *Builder) LongName(t tartype.Type, name string) *Builder {
	b.tb.Helper()
	return b.Member(header.LongNameMember(t, name), append([]byte(name), 0))
}

// Sparse appends a GNU sparse member whose stored data is data.
func (b *Builder) Sparse(name string, regions []sparse.Region, size int64, data []byte) *Builder {
	b.tb.Helper()
	sm, err := sparse.Build(regions, size)
	require.NoError(b.tb, err)
	require.Equal(b.tb, sm.DataSize(), int64(len(data)))

	blk, ext, err := header.EncodeSparse(&tartype.Member{
		Name:    name,
		Mode:    0o644,
		Size:    size,
		ModTime: time.Unix(1700000000, 0),
		Type:    tartype.TypeGNUSparse,
		Sparse:  sm,
	})
	require.NoError(b.tb, err)
	b.buf.Write(blk[:])
	for i := range ext {
		b.buf.Write(ext[i][:])
	}
	b.data(data)
	return b
}

// Block appends one raw block.
func (b *Builder) Block(blk header.Block) *Builder {
	b.buf.Write(blk[:])
	return b
}

// Garbage appends a block that does not decode as a header.
func (b *Builder) Garbage() *Builder {
	var blk header.Block
	copy(blk[:], "this is not a tar header")
	copy(blk[124:], "zzzzzzzzzzz") // size field
	b.buf.Write(blk[:])
	return b
}

// Zero appends n all-NUL blocks.
func (b *Builder) Zero(n int) *Builder {
	b.buf.Write(make([]byte, n*tartype.BlockSize))
	return b
}

// End appends the two-block end marker and pads to a record boundary.
func (b *Builder) End() *Builder {
	b.Zero(2)
	b.buf.Write(make([]byte, sizing.RecordPad(int64(b.buf.Len()))))
	return b
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.buf.Len() }

// Bytes returns the stream.
func (b *Builder) Bytes() []byte { return b.buf.Bytes() }

func (b *Builder) data(data []byte) {
	b.buf.Write(data)
	b.buf.Write(make([]byte, sizing.BlockPad(int64(len(data)))))
}

// OnlyReader hides every method of the wrapped reader except Read, turning
// a seekable source into a pipe.
type OnlyReader struct {
	R io.Reader
}

// Read implements io.Reader.
func (r OnlyReader) Read(p []byte) (int, error) {
	return r.R.Read(p)
}

// NopWriteCloser records whether Close was called.
type NopWriteCloser struct {
	bytes.Buffer
	Closed bool
}

// Close implements io.Closer.
func (w *NopWriteCloser) Close() error {
	w.Closed = true
	return nil
}
