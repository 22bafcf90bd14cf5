package tarfile

import (
	"fmt"
	"io"

	"github.com/meigma/tarfile/internal/header"
	"github.com/meigma/tarfile/internal/index"
)

// WriteIndex writes a member index of the archive to w. Passing the index
// to WithIndex when the archive is opened again skips the member scan,
// which for compressed archives means decompressing the whole stream.
//
// The rest of the archive is scanned first if needed.
func (a *Archive) WriteIndex(w io.Writer) error {
	if err := a.check(stateRead); err != nil {
		return err
	}
	if err := a.load(); err != nil {
		return err
	}
	data := index.Encode(a.table, index.Fingerprint(a.head), a.offset)
	_, err := w.Write(data)
	return err
}

// loadIndex replaces the member scan with a previously written index.
// It runs after the first block has been read.
func (a *Archive) loadIndex(data []byte) error {
	sc, err := index.Decode(data)
	if err != nil {
		return err
	}
	if sc.Fingerprint != index.Fingerprint(a.head) {
		return fmt.Errorf("%w: fingerprint mismatch", ErrStaleIndex)
	}
	if a.r.Seekable() && !a.mode.stream {
		var blk header.Block
		n, err := a.readBlock(sc.EndOffset, &blk)
		if err != nil {
			return err
		}
		if n == BlockSize && !blk.IsZero() {
			return fmt.Errorf("%w: no end marker at offset %d", ErrStaleIndex, sc.EndOffset)
		}
	}

	a.table = sc.Table
	a.offset = sc.EndOffset
	a.first = nil
	a.loaded = true
	a.logger.Debug("loaded member index", "members", sc.Table.Len())
	return nil
}
