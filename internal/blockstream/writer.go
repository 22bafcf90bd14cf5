package blockstream

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

// DefaultBufferSize is the default chunk size handed to the sink: one tar
// record.
const DefaultBufferSize = 512 * 20

// DefaultLevel selects each codec's default level: 9 for gzip and bzip2,
// the zstd default for zstd. xz has no levels.
const DefaultLevel = -1

// Writer is the write side of a block stream.
//
// Application bytes pass through the compressor, if any, and the resulting
// bytes are handed to the sink in chunks of exactly the buffer size; only
// the final chunk written by Close may be shorter.
type Writer struct {
	dst    *countingWriter
	comp   Compression
	level  int
	name   string
	mtime  time.Time
	closer io.Closer

	chunk   []byte
	bufSize int

	enc    io.WriteCloser
	pos    int64
	closed bool
	err    error
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithLevel sets the compression level.
func WithLevel(level int) WriterOption {
	return func(w *Writer) {
		w.level = level
	}
}

// WithBufferSize sets the chunk size handed to the sink. Non-positive
// values keep the default.
func WithBufferSize(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// WithName records the original file name in the gzip header.
func WithName(name string) WriterOption {
	return func(w *Writer) {
		w.name = name
	}
}

// WithModTime records t in the gzip header.
func WithModTime(t time.Time) WriterOption {
	return func(w *Writer) {
		w.mtime = t
	}
}

// WithWriterCloser makes Close also close c.
func WithWriterCloser(c io.Closer) WriterOption {
	return func(w *Writer) {
		w.closer = c
	}
}

// WithOffset sets the initial logical position, for streams that continue
// an existing archive.
func WithOffset(off int64) WriterOption {
	return func(w *Writer) {
		w.pos = off
	}
}

// NewWriter returns a Writer that encodes into dst.
func NewWriter(dst io.Writer, c Compression, opts ...WriterOption) (*Writer, error) {
	w := &Writer{
		dst:     &countingWriter{w: dst},
		comp:    c,
		level:   DefaultLevel,
		bufSize: DefaultBufferSize,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.chunk = make([]byte, 0, w.bufSize)

	enc, err := w.newEncoder()
	if err != nil {
		return nil, err
	}
	w.enc = enc
	return w, nil
}

func (w *Writer) newEncoder() (io.WriteCloser, error) {
	sink := chunkSink{w}
	switch w.comp {
	case CompressionNone:
		return nil, nil
	case CompressionGzip:
		level := w.level
		if level == DefaultLevel {
			level = gzip.BestCompression
		}
		gz, err := gzip.NewWriterLevel(sink, level)
		if err != nil {
			return nil, fmt.Errorf("%w: gzip: %w", ErrCompression, err)
		}
		gz.Name = w.name
		if !w.mtime.IsZero() {
			gz.ModTime = w.mtime
		}
		return gz, nil
	case CompressionBzip2:
		level := w.level
		if level == DefaultLevel {
			level = bzip2.BestCompression
		}
		bz, err := bzip2.NewWriter(sink, &bzip2.WriterConfig{Level: level})
		if err != nil {
			return nil, fmt.Errorf("%w: bzip2: %w", ErrCompression, err)
		}
		return bz, nil
	case CompressionXz:
		x, err := xz.NewWriter(sink)
		if err != nil {
			return nil, fmt.Errorf("%w: xz: %w", ErrCompression, err)
		}
		return x, nil
	case CompressionZstd:
		opts := []zstd.EOption{zstd.WithEncoderConcurrency(1)}
		if w.level != DefaultLevel {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(w.level)))
		}
		z, err := zstd.NewWriter(sink, opts...)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrCompression, err)
		}
		return z, nil
	default:
		return nil, fmt.Errorf("%w: unknown compression %d", ErrCompression, w.comp)
	}
}

// chunkSink receives compressor output.
type chunkSink struct {
	w *Writer
}

func (s chunkSink) Write(p []byte) (int, error) {
	return s.w.buffer(p)
}

// buffer appends p to the chunk, handing every full chunk to the sink.
func (w *Writer) buffer(p []byte) (int, error) {
	n := len(p)
	for len(p) > 0 {
		k := min(len(p), w.bufSize-len(w.chunk))
		w.chunk = append(w.chunk, p[:k]...)
		p = p[k:]
		if len(w.chunk) == w.bufSize {
			if err := w.flushChunk(); err != nil {
				return n - len(p), err
			}
		}
	}
	return n, nil
}

func (w *Writer) flushChunk() error {
	if len(w.chunk) == 0 {
		return nil
	}
	_, err := w.dst.Write(w.chunk)
	w.chunk = w.chunk[:0]
	return err
}

// Compression returns the envelope being written.
func (w *Writer) Compression() Compression { return w.comp }

// Pos returns the logical number of bytes written, including the initial
// offset.
func (w *Writer) Pos() int64 { return w.pos }

// RawPos returns the number of bytes handed to the sink so far.
func (w *Writer) RawPos() int64 { return w.dst.n }

// Write implements io.Writer. After the first error every call fails with
// that error.
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, ErrClosed
	}
	if w.err != nil {
		return 0, w.err
	}
	var (
		n   int
		err error
	)
	if w.enc != nil {
		n, err = w.enc.Write(p)
	} else {
		n, err = w.buffer(p)
	}
	w.pos += int64(n)
	if err != nil {
		w.err = err
	}
	return n, err
}

// Close flushes the compressor (writing its trailer), hands the final
// partial chunk to the sink and, when the writer owns it, closes the sink.
// Close is idempotent.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	if w.enc != nil {
		errs = append(errs, w.enc.Close())
	}
	errs = append(errs, w.flushChunk())
	if w.closer != nil {
		errs = append(errs, w.closer.Close())
	}
	return errors.Join(errs...)
}
