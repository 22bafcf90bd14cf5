// Package sizing provides block arithmetic and safe size conversions.
package sizing

import (
	"io"
	"math"

	"github.com/meigma/tarfile/internal/tartype"
)

// Blocks returns the number of whole blocks needed to hold n bytes.
func Blocks(n int64) int64 {
	return (n + tartype.BlockSize - 1) / tartype.BlockSize
}

// RoundUp returns n rounded up to a block boundary.
func RoundUp(n int64) int64 {
	return Blocks(n) * tartype.BlockSize
}

// BlockPad returns the number of NUL bytes that follow n data bytes.
func BlockPad(n int64) int64 {
	return RoundUp(n) - n
}

// RecordPad returns the number of NUL bytes needed to extend an archive of
// n bytes to a record boundary.
func RecordPad(n int64) int64 {
	if r := n % tartype.RecordSize; r != 0 {
		return tartype.RecordSize - r
	}
	return 0
}

// AddInt64 adds two non-negative values, returning (result, false) on
// overflow.
func AddInt64(a, b int64) (int64, bool) {
	if a > math.MaxInt64-b {
		return 0, false
	}
	return a + b, true
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns overflowErr if more than maxSize bytes are available.
func ReadAllWithLimit(r io.Reader, maxSize int64, overflowErr error) ([]byte, error) {
	if maxSize < 0 || maxSize > math.MaxInt-1 {
		return nil, overflowErr
	}
	lr := &io.LimitedReader{R: r, N: maxSize + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxSize {
		return nil, overflowErr
	}
	return data, nil
}
