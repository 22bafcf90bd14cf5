package blockstream

import (
	"errors"
	"io"

	"github.com/meigma/tarfile/internal/sizing"
)

// ErrOverflow indicates a byte counter exceeded its maximum value.
var ErrOverflow = errors.New("blockstream: counter overflow")

// countingReader counts the raw (possibly compressed) bytes pulled from the
// backing store.
type countingReader struct {
	r io.Reader
	n int64
}

// Read implements io.Reader.
func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		sum, ok := sizing.AddInt64(cr.n, int64(n))
		if !ok {
			return n, ErrOverflow
		}
		cr.n = sum
	}
	return n, err
}

// countingWriter counts the raw bytes handed to the sink.
type countingWriter struct {
	w io.Writer
	n int64
}

// Write implements io.Writer.
func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		sum, ok := sizing.AddInt64(cw.n, int64(n))
		if !ok {
			return n, ErrOverflow
		}
		cw.n = sum
	}
	return n, err
}
