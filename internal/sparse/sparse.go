// Package sparse maps logical offsets of GNU sparse members onto the
// physical bytes stored in the archive.
//
// A Map is a contiguous, non-overlapping list of data and hole segments
// covering [0, Size()). Data segments remember where their bytes live
// relative to the member's data offset; holes are implicit zeros.
package sparse

import (
	"errors"
	"fmt"
)

// ErrInvalid is returned when a sparse map is malformed.
var ErrInvalid = errors.New("sparse: invalid sparse map")

// Kind distinguishes stored data from implicit holes.
type Kind uint8

const (
	KindData Kind = iota
	KindHole
)

// String returns the segment kind name.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindHole:
		return "hole"
	default:
		return "unknown"
	}
}

// Region is a (offset, size) pair as recorded in a GNU sparse header.
type Region struct {
	Offset int64
	Size   int64
}

// End returns the offset just past the region.
func (r Region) End() int64 { return r.Offset + r.Size }

// Segment is one entry of a Map.
type Segment struct {
	Kind   Kind
	Offset int64 // logical offset
	Size   int64

	// RealPos is the position of the segment's bytes relative to the
	// member's data offset. Only meaningful for KindData.
	RealPos int64
}

// End returns the logical offset just past the segment.
func (s Segment) End() int64 { return s.Offset + s.Size }

// Contains reports whether off falls inside the segment.
func (s Segment) Contains(off int64) bool {
	return off >= s.Offset && off < s.End()
}

// Map is a sorted list of segments with a cursor that remembers the last
// match, so sequential lookups resolve in constant time.
type Map struct {
	segs []Segment
	idx  int
	size int64
	data int64
}

// Build creates a Map from the data regions of a sparse header.
//
// Holes are inserted between consecutive regions and after the last region
// when it ends before size. Regions must be sorted and non-overlapping.
// Zero-length regions are dropped.
func Build(regions []Region, size int64) (*Map, error) {
	if size < 0 {
		return nil, fmt.Errorf("%w: negative size %d", ErrInvalid, size)
	}
	m := &Map{size: size, segs: make([]Segment, 0, 2*len(regions)+1)}
	var last, realPos int64
	for _, r := range regions {
		if r.Offset < 0 || r.Size < 0 {
			return nil, fmt.Errorf("%w: negative region (%d, %d)", ErrInvalid, r.Offset, r.Size)
		}
		if r.Offset < last {
			return nil, fmt.Errorf("%w: region at %d overlaps previous ending at %d", ErrInvalid, r.Offset, last)
		}
		if r.Offset > size || r.Size > size-r.Offset {
			return nil, fmt.Errorf("%w: region (%d, %d) exceeds size %d", ErrInvalid, r.Offset, r.Size, size)
		}
		if r.Size == 0 {
			continue
		}
		if r.Offset > last {
			m.segs = append(m.segs, Segment{Kind: KindHole, Offset: last, Size: r.Offset - last})
		}
		m.segs = append(m.segs, Segment{Kind: KindData, Offset: r.Offset, Size: r.Size, RealPos: realPos})
		realPos += r.Size
		last = r.End()
	}
	if last < size {
		m.segs = append(m.segs, Segment{Kind: KindHole, Offset: last, Size: size - last})
	}
	m.data = realPos
	return m, nil
}

// Size returns the logical size covered by the map.
func (m *Map) Size() int64 { return m.size }

// DataSize returns the number of bytes physically stored in the archive.
func (m *Map) DataSize() int64 { return m.data }

// Len returns the number of segments.
func (m *Map) Len() int { return len(m.segs) }

// Segments returns a copy of the segments in logical order.
func (m *Map) Segments() []Segment {
	out := make([]Segment, len(m.segs))
	copy(out, m.segs)
	return out
}

// Regions returns the data segments as header regions.
func (m *Map) Regions() []Region {
	out := make([]Region, 0, len(m.segs))
	for _, s := range m.segs {
		if s.Kind == KindData {
			out = append(out, Region{Offset: s.Offset, Size: s.Size})
		}
	}
	return out
}

// Find returns the segment containing off.
//
// The scan starts at the segment matched by the previous call and wraps
// around to the beginning once, so sequential reads cost O(1) on average
// and a miss costs O(n).
func (m *Map) Find(off int64) (Segment, bool) {
	n := len(m.segs)
	if n == 0 {
		return Segment{}, false
	}
	if m.idx >= n {
		m.idx = 0
	}
	i := m.idx
	for {
		if m.segs[i].Contains(off) {
			m.idx = i
			return m.segs[i], true
		}
		i++
		if i == n {
			i = 0
		}
		if i == m.idx {
			return Segment{}, false
		}
	}
}

// ReadDataFunc reads stored bytes at realPos (relative to the member's data
// offset) into p.
type ReadDataFunc func(p []byte, realPos int64) (int, error)

// Read fills p with logical bytes starting at off, stopping at the end of
// the segment containing off. Holes produce zeros without calling readData.
// It returns 0, nil when off is at or past Size().
func (m *Map) Read(p []byte, off int64, readData ReadDataFunc) (int, error) {
	if len(p) == 0 || off >= m.size {
		return 0, nil
	}
	seg, ok := m.Find(off)
	if !ok {
		return 0, fmt.Errorf("%w: no segment covers offset %d", ErrInvalid, off)
	}
	n := min(int64(len(p)), seg.End()-off)
	if seg.Kind == KindHole {
		clear(p[:n])
		return int(n), nil
	}
	return readData(p[:n], seg.RealPos+off-seg.Offset)
}
