package tarfile

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/meigma/tarfile/internal/blockstream"
	"github.com/meigma/tarfile/internal/header"
	"github.com/meigma/tarfile/internal/sizing"
	"github.com/meigma/tarfile/internal/sparse"
)

// errEmpty is returned when the archive holds no bytes at all.
var errEmpty = fmt.Errorf("%w: empty file", ErrRead)

// readNext decodes the member at a.offset, merging GNU long name and long
// link members into the member that follows them. It returns nil, nil at
// the end of the archive.
func (a *Archive) readNext() (*Member, error) {
	if a.loaded {
		return nil, nil
	}

	var (
		longName, longLink string
		hasName, hasLink   bool
		start              = int64(-1)
	)
	for {
		var blk header.Block
		n, err := a.readBlock(a.offset, &blk)
		if err != nil {
			return nil, err
		}
		if n < BlockSize {
			switch {
			case n == 0 && a.offset == 0:
				return nil, errEmpty
			case hasName || hasLink:
				return nil, fmt.Errorf("%w: missing header after GNU long name at offset %d", ErrRead, start)
			case n > 0 && (!a.cfg.ignoreZeros || a.offset == 0):
				return nil, fmt.Errorf("%w: truncated header at offset %d", ErrRead, a.offset)
			}
			a.loaded = true
			return nil, nil
		}
		if a.offset == 0 {
			a.head = append([]byte(nil), blk[:]...)
		}

		m, ok, err := header.Decode(&blk)
		switch {
		case errors.Is(err, header.ErrEndOfArchive):
			if a.cfg.ignoreZeros {
				a.logger.Debug("empty block", "offset", a.offset)
				a.offset += BlockSize
				continue
			}
			if hasName || hasLink {
				return nil, fmt.Errorf("%w: missing header after GNU long name at offset %d", ErrRead, start)
			}
			a.loaded = true
			return nil, nil
		case err != nil:
			// An unreadable first block means this is not a tar stream
			// at all, for instance compressed data.
			if a.cfg.ignoreZeros && a.offset > 0 {
				a.logger.Debug("invalid block", "offset", a.offset, "error", err)
				a.offset += BlockSize
				continue
			}
			return nil, fmt.Errorf("%w: offset %d: %w", ErrRead, a.offset, err)
		}
		if !ok {
			a.logger.Debug("bad checksum", "name", m.Name, "offset", a.offset)
		}
		if start < 0 {
			start = a.offset
		}
		a.offset += BlockSize
		stored := m.StoredSize()

		switch m.Type {
		case TypeGNULongName, TypeGNULongLink:
			value, err := a.readLong(m.Size)
			if err != nil {
				return nil, err
			}
			if m.Type == TypeGNULongName {
				longName, hasName = value, true
			} else {
				longLink, hasLink = value, true
			}
			continue
		case TypeGNUSparse:
			if err := a.readSparse(&blk, &m); err != nil {
				return nil, err
			}
		}

		if _, ok := sizing.AddInt64(a.offset+BlockSize, stored); !ok {
			return nil, fmt.Errorf("%w: size %d of %s overflows the archive offset", ErrRead, stored, m.Name)
		}
		m.Offset = start
		m.OffsetData = a.offset
		a.offset += sizing.RoundUp(stored)

		if hasName {
			m.Name = longName
		}
		if hasLink {
			m.Linkname = longLink
		}
		if m.Type == TypeRegA && strings.HasSuffix(m.Name, "/") {
			m.Type = TypeDir
		}
		m.Name = NormalizeName(m.Name)
		if m.IsDir() {
			m.Name = DirName(m.Name)
		}

		member := &m
		a.table.Append(member)
		return member, nil
	}
}

// readBlock reads the block at off. It returns the number of bytes read,
// which is short only at the end of the stream.
func (a *Archive) readBlock(off int64, blk *header.Block) (int, error) {
	if _, err := a.r.Seek(off, io.SeekStart); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			a.logger.Debug("archive ends inside member data", "offset", off)
			return 0, nil
		}
		return 0, readErr(err)
	}
	n, err := io.ReadFull(a.r, blk[:])
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return n, readErr(err)
	}
	return n, nil
}

// readErr classifies an error from the block stream.
func readErr(err error) error {
	if errors.Is(err, blockstream.ErrStream) || errors.Is(err, blockstream.ErrCompression) || errors.Is(err, ErrRead) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRead, err)
}

// readLong reads the payload of a GNU long name or long link member.
func (a *Archive) readLong(size int64) (string, error) {
	tooLong := fmt.Errorf("%w: GNU long name of %d bytes exceeds limit %d", ErrRead, size, a.cfg.maxLongName)
	buf, err := sizing.ReadAllWithLimit(io.LimitReader(a.r, size), a.cfg.maxLongName, tooLong)
	if err != nil {
		return "", readErr(err)
	}
	if int64(len(buf)) < size {
		return "", fmt.Errorf("%w: truncated GNU long name at offset %d", ErrRead, a.offset)
	}
	a.offset += sizing.RoundUp(size)
	return header.ParseString(buf), nil
}

// readSparse completes a GNU sparse member: it reads the extension blocks
// that follow the header and replaces the stored size with the logical one.
// The map may describe less data than the header size, never more.
func (a *Archive) readSparse(blk *header.Block, m *Member) error {
	regions, extended, realSize, err := header.DecodeSparse(blk)
	if err != nil {
		return fmt.Errorf("%w: sparse header of %s: %w", ErrRead, m.Name, err)
	}
	for extended {
		var ext header.Block
		n, err := a.readBlock(a.offset, &ext)
		if err != nil {
			return err
		}
		if n < BlockSize {
			return fmt.Errorf("%w: truncated sparse map of %s", ErrRead, m.Name)
		}
		var more []sparse.Region
		more, extended, err = header.DecodeSparseExtension(&ext)
		if err != nil {
			return fmt.Errorf("%w: sparse extension of %s: %w", ErrRead, m.Name, err)
		}
		regions = append(regions, more...)
		a.offset += BlockSize
	}

	sm, err := sparse.Build(regions, realSize)
	if err != nil {
		return fmt.Errorf("%w: sparse map of %s: %w", ErrRead, m.Name, err)
	}
	if sm.DataSize() > m.Size {
		return fmt.Errorf("%w: sparse map of %s holds %d bytes, header size is %d",
			ErrRead, m.Name, sm.DataSize(), m.Size)
	}
	if sm.DataSize() < m.Size {
		a.logger.Debug("sparse data size differs from header size",
			"name", m.Name, "header", m.Size, "map", sm.DataSize())
	}
	m.Sparse = sm
	m.Size = realSize
	return nil
}
