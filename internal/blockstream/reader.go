package blockstream

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// readBufferSize is the size of the buffer in front of a decompressor.
const readBufferSize = 32 << 10

// Reader is the read side of a block stream.
//
// Positions are logical: they count decompressed bytes from the start of
// the tar stream. On an uncompressed seekable source Seek moves freely. On
// a compressed seekable source a backward seek rewinds the source and
// decompresses again from the start. Streams opened with Streaming, and
// sources that cannot seek, only move forward; a backward seek returns
// ErrStream.
type Reader struct {
	src    io.Reader
	seeker io.Seeker
	base   int64
	comp   Compression
	stream bool

	maxDecoderMemory uint64

	raw      *countingReader
	br       *bufio.Reader
	dec      io.Reader
	zdec     *zstd.Decoder
	closeDec func() error

	pos    int64
	closed bool
}

// ReaderOption configures a Reader.
type ReaderOption func(*Reader)

// Streaming restricts the reader to forward-only access even when the
// source could seek.
func Streaming() ReaderOption {
	return func(r *Reader) {
		r.stream = true
	}
}

// WithMaxDecoderMemory limits the memory the zstd decoder may allocate.
// Zero means no limit.
func WithMaxDecoderMemory(n uint64) ReaderOption {
	return func(r *Reader) {
		r.maxDecoderMemory = n
	}
}

// NewReader returns a Reader decoding src with the given compression.
//
// The envelope magic is checked immediately; a mismatch returns an error
// wrapping ErrCompression. If src implements io.Seeker and its current
// position can be queried, that position becomes logical offset zero.
func NewReader(src io.Reader, c Compression, opts ...ReaderOption) (*Reader, error) {
	r := &Reader{src: src, comp: c}
	for _, opt := range opts {
		opt(r)
	}
	if s, ok := src.(io.Seeker); ok && !r.stream {
		if base, err := s.Seek(0, io.SeekCurrent); err == nil {
			r.seeker = s
			r.base = base
		}
	}
	if err := r.start(); err != nil {
		r.closeDecoder() //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	return r, nil
}

// start attaches a fresh decompressor at the current source position.
func (r *Reader) start() error {
	r.raw = &countingReader{r: r.src}
	if r.comp == CompressionNone {
		r.dec = r.raw
		return nil
	}

	if r.br == nil {
		r.br = bufio.NewReaderSize(r.raw, readBufferSize)
	} else {
		r.br.Reset(r.raw)
	}
	magic := r.comp.Magic()
	if magic == nil {
		return fmt.Errorf("%w: unknown compression %d", ErrCompression, r.comp)
	}
	head, err := r.br.Peek(len(magic))
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if !bytes.Equal(head, magic) {
		return fmt.Errorf("%w: not a %s file", ErrCompression, r.comp)
	}

	switch r.comp {
	case CompressionGzip:
		gz, err := gzip.NewReader(r.br)
		if err != nil {
			return fmt.Errorf("%w: gzip: %w", ErrCompression, err)
		}
		r.dec, r.closeDec = gz, gz.Close
	case CompressionBzip2:
		bz, err := bzip2.NewReader(r.br, nil)
		if err != nil {
			return fmt.Errorf("%w: bzip2: %w", ErrCompression, err)
		}
		r.dec, r.closeDec = bz, bz.Close
	case CompressionXz:
		x, err := xz.NewReader(r.br)
		if err != nil {
			return fmt.Errorf("%w: xz: %w", ErrCompression, err)
		}
		r.dec, r.closeDec = x, nil
	case CompressionZstd:
		if r.zdec != nil {
			if err := r.zdec.Reset(r.br); err != nil {
				return fmt.Errorf("%w: zstd: %w", ErrCompression, err)
			}
		} else {
			dec, err := r.newZstdDecoder()
			if err != nil {
				return fmt.Errorf("%w: zstd: %w", ErrCompression, err)
			}
			r.zdec = dec
		}
		r.dec, r.closeDec = r.zdec, nil
	}
	return nil
}

func (r *Reader) newZstdDecoder() (*zstd.Decoder, error) {
	opts := []zstd.DOption{
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderLowmem(false),
	}
	if r.maxDecoderMemory != 0 {
		opts = append(opts, zstd.WithDecoderMaxMemory(r.maxDecoderMemory))
	}
	return zstd.NewReader(r.br, opts...)
}

func (r *Reader) closeDecoder() error {
	if r.closeDec == nil {
		return nil
	}
	err := r.closeDec()
	r.closeDec = nil
	return err
}

// Compression returns the envelope being decoded.
func (r *Reader) Compression() Compression { return r.comp }

// Seekable reports whether backward seeks are possible.
func (r *Reader) Seekable() bool { return r.seeker != nil }

// Tell returns the logical position.
func (r *Reader) Tell() int64 { return r.pos }

// RawPos returns the number of raw bytes consumed from the source since the
// last rewind. For compressed streams this includes read-ahead.
func (r *Reader) RawPos() int64 { return r.raw.n }

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if r.closed {
		return 0, ErrClosed
	}
	n, err := r.dec.Read(p)
	r.pos += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && r.comp != CompressionNone {
		err = fmt.Errorf("%w: %s: %w", ErrCompression, r.comp, err)
	}
	return n, err
}

// Seek implements io.Seeker on logical positions.
func (r *Reader) Seek(offset int64, whence int) (int64, error) {
	if r.closed {
		return 0, ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = r.pos + offset
	case io.SeekEnd:
		if r.comp != CompressionNone || r.seeker == nil {
			return r.pos, fmt.Errorf("%w: cannot seek relative to the end", ErrStream)
		}
		end, err := r.seeker.Seek(offset, io.SeekEnd)
		if err != nil {
			return r.pos, err
		}
		r.pos = end - r.base
		return r.pos, nil
	default:
		return r.pos, fmt.Errorf("blockstream: invalid whence %d", whence)
	}
	if target < 0 {
		return r.pos, fmt.Errorf("blockstream: negative position %d", target)
	}

	if r.comp == CompressionNone && r.seeker != nil {
		if _, err := r.seeker.Seek(r.base+target, io.SeekStart); err != nil {
			return r.pos, err
		}
		r.pos = target
		return r.pos, nil
	}

	if target < r.pos {
		if err := r.rewind(); err != nil {
			return r.pos, err
		}
	}
	return r.skip(target - r.pos)
}

// rewind repositions a compressed seekable source at its start.
func (r *Reader) rewind() error {
	if r.seeker == nil {
		return ErrStream
	}
	if _, err := r.seeker.Seek(r.base, io.SeekStart); err != nil {
		return err
	}
	r.closeDecoder() //nolint:errcheck // decoder is being replaced
	if err := r.start(); err != nil {
		return err
	}
	r.pos = 0
	return nil
}

// skip reads and discards n logical bytes.
func (r *Reader) skip(n int64) (int64, error) {
	if n == 0 {
		return r.pos, nil
	}
	copied, err := io.CopyN(io.Discard, r, n)
	if err != nil {
		if errors.Is(err, io.EOF) && copied < n {
			return r.pos, io.ErrUnexpectedEOF
		}
		return r.pos, err
	}
	return r.pos, nil
}

// Close releases the decompressor. The source is left open.
// Close is idempotent.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	err := r.closeDecoder()
	if r.zdec != nil {
		r.zdec.Close()
	}
	return err
}
