package header

import (
	"fmt"

	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

// Old GNU sparse layout. The header holds up to four inline entries; when
// isextended is set, each following extension block holds up to 21 more.
const (
	offSparse         = 386
	sparseEntrySize   = 24
	sparseInline      = 4
	offIsExtended     = 482
	offRealSize       = 483
	sparseExtEntries  = 21
	offExtIsExtended  = sparseExtEntries * sparseEntrySize
	sparseNumericSize = 12
)

// DecodeSparse reads the inline sparse map of a GNU sparse header.
// realSize is the logical size of the member; the header's size field holds
// the number of stored bytes.
func DecodeSparse(b *Block) (regions []sparse.Region, extended bool, realSize int64, err error) {
	var p parser
	regions = decodeEntries(&p, b[offSparse:], sparseInline)
	extended = b[offIsExtended] != 0
	realSize = p.numeric(b[offRealSize:][:sparseNumericSize])
	if p.err != nil {
		return nil, false, 0, p.err
	}
	return regions, extended, realSize, nil
}

// DecodeSparseExtension reads one sparse extension block.
func DecodeSparseExtension(b *Block) (regions []sparse.Region, extended bool, err error) {
	var p parser
	regions = decodeEntries(&p, b[:], sparseExtEntries)
	if p.err != nil {
		return nil, false, p.err
	}
	return regions, b[offExtIsExtended] != 0, nil
}

// decodeEntries parses up to n entries and stops at the first empty one.
func decodeEntries(p *parser, buf []byte, n int) []sparse.Region {
	var regions []sparse.Region
	for i := range n {
		e := buf[i*sparseEntrySize:][:sparseEntrySize]
		if e[0] == 0 {
			break
		}
		off := p.numeric(e[:sparseNumericSize])
		size := p.numeric(e[sparseNumericSize:])
		if p.err != nil {
			return nil
		}
		regions = append(regions, sparse.Region{Offset: off, Size: size})
	}
	return regions
}

// EncodeSparse renders a GNU sparse header for m followed by the extension
// blocks needed for the regions that do not fit inline. m.Sparse must be set.
//
// When the member ends in a hole a zero-length region at the logical size is
// appended so other readers recover the full size.
func EncodeSparse(m *tartype.Member) (Block, []Block, error) {
	if m.Sparse == nil {
		return Block{}, nil, fmt.Errorf("%w: %s has no sparse map", ErrInvalid, m.Name)
	}
	b, err := encode(m, FormatGNU)
	if err != nil {
		return Block{}, nil, err
	}
	b[offType] = byte(tartype.TypeGNUSparse)

	regions := m.Sparse.Regions()
	if last := lastEnd(regions); last < m.Sparse.Size() || len(regions) == 0 {
		regions = append(regions, sparse.Region{Offset: m.Sparse.Size(), Size: 0})
	}

	if err := formatNumeric(b[offRealSize:][:sparseNumericSize], m.Sparse.Size(), true, "realsize"); err != nil {
		return Block{}, nil, err
	}
	inline := min(len(regions), sparseInline)
	if err := encodeEntries(b[offSparse:], regions[:inline]); err != nil {
		return Block{}, nil, err
	}
	regions = regions[inline:]

	var ext []Block
	if len(regions) > 0 {
		b[offIsExtended] = 1
	}
	for len(regions) > 0 {
		var e Block
		n := min(len(regions), sparseExtEntries)
		if err := encodeEntries(e[:], regions[:n]); err != nil {
			return Block{}, nil, err
		}
		regions = regions[n:]
		if len(regions) > 0 {
			e[offExtIsExtended] = 1
		}
		ext = append(ext, e)
	}

	b.setChecksum()
	return b, ext, nil
}

func encodeEntries(buf []byte, regions []sparse.Region) error {
	for i, r := range regions {
		e := buf[i*sparseEntrySize:][:sparseEntrySize]
		if err := formatNumeric(e[:sparseNumericSize], r.Offset, true, "sparse offset"); err != nil {
			return err
		}
		if err := formatNumeric(e[sparseNumericSize:], r.Size, true, "sparse size"); err != nil {
			return err
		}
	}
	return nil
}

func lastEnd(regions []sparse.Region) int64 {
	if len(regions) == 0 {
		return 0
	}
	return regions[len(regions)-1].End()
}
