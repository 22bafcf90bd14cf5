package index

import (
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/meigma/tarfile/internal/fb"
	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

// Version is the sidecar format version written by Encode.
const Version = 1

// ErrInvalid is returned when sidecar data cannot be parsed.
var ErrInvalid = errors.New("index: invalid index data")

// Sidecar is a decoded member index.
type Sidecar struct {
	// Fingerprint identifies the archive the index was built from.
	Fingerprint uint64

	// EndOffset is the position of the end-of-archive marker.
	EndOffset int64

	Table *Table
}

// Fingerprint hashes the leading bytes of an archive. The first header
// block is enough to tell archives apart in practice.
func Fingerprint(head []byte) uint64 {
	return xxhash.Sum64(head)
}

// Encode serializes t.
func Encode(t *Table, fingerprint uint64, endOffset int64) []byte {
	builder := flatbuffers.NewBuilder(1024)

	offsets := make([]flatbuffers.UOffsetT, t.Len())
	for i, m := range t.All() {
		offsets[i] = encodeMember(builder, m)
	}

	fb.IndexStartMembersVector(builder, len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	membersOffset := builder.EndVector(len(offsets))

	fb.IndexStart(builder)
	fb.IndexAddVersion(builder, Version)
	fb.IndexAddFingerprint(builder, fingerprint)
	fb.IndexAddEndOffset(builder, endOffset)
	fb.IndexAddMembers(builder, membersOffset)
	fb.FinishIndexBuffer(builder, fb.IndexEnd(builder))
	return builder.FinishedBytes()
}

func encodeMember(builder *flatbuffers.Builder, m *tartype.Member) flatbuffers.UOffsetT {
	name := builder.CreateString(m.Name)
	linkname := builder.CreateString(m.Linkname)
	uname := builder.CreateString(m.Uname)
	gname := builder.CreateString(m.Gname)

	var regions flatbuffers.UOffsetT
	if m.Sparse != nil {
		rs := m.Sparse.Regions()
		fb.MemberStartSparseVector(builder, len(rs))
		for i := len(rs) - 1; i >= 0; i-- {
			fb.CreateRegion(builder, rs[i].Offset, rs[i].Size)
		}
		regions = builder.EndVector(len(rs))
	}

	fb.MemberStart(builder)
	fb.MemberAddName(builder, name)
	fb.MemberAddMode(builder, m.Mode)
	fb.MemberAddUid(builder, int64(m.UID))
	fb.MemberAddGid(builder, int64(m.GID))
	fb.MemberAddSize(builder, m.Size)
	fb.MemberAddMtime(builder, m.ModTime.Unix())
	fb.MemberAddType(builder, byte(m.Type))
	fb.MemberAddLinkname(builder, linkname)
	fb.MemberAddUname(builder, uname)
	fb.MemberAddGname(builder, gname)
	fb.MemberAddDevmajor(builder, m.Devmajor)
	fb.MemberAddDevminor(builder, m.Devminor)
	fb.MemberAddChecksum(builder, m.Checksum)
	fb.MemberAddOffset(builder, m.Offset)
	fb.MemberAddOffsetData(builder, m.OffsetData)
	if m.Sparse != nil {
		fb.MemberAddSparse(builder, regions)
	}
	return fb.MemberEnd(builder)
}

// Decode parses sidecar data produced by Encode.
func Decode(data []byte) (s *Sidecar, err error) {
	defer func() {
		if r := recover(); r != nil {
			s = nil
			err = fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()
	if len(data) < 8 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalid, len(data))
	}

	root := fb.GetRootAsIndex(data, 0)
	if v := root.Version(); v != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalid, v)
	}

	t := NewTable()
	var fm fb.Member
	for i := range root.MembersLength() {
		if !root.Members(&fm, i) {
			return nil, fmt.Errorf("%w: member %d", ErrInvalid, i)
		}
		m, err := decodeMember(&fm)
		if err != nil {
			return nil, err
		}
		t.Append(m)
	}
	return &Sidecar{
		Fingerprint: root.Fingerprint(),
		EndOffset:   root.EndOffset(),
		Table:       t,
	}, nil
}

func decodeMember(fm *fb.Member) (*tartype.Member, error) {
	m := &tartype.Member{
		Name:       string(fm.Name()),
		Mode:       fm.Mode(),
		UID:        int(fm.Uid()),
		GID:        int(fm.Gid()),
		Size:       fm.Size(),
		ModTime:    time.Unix(fm.Mtime(), 0),
		Type:       tartype.Type(fm.Type()),
		Linkname:   string(fm.Linkname()),
		Uname:      string(fm.Uname()),
		Gname:      string(fm.Gname()),
		Devmajor:   fm.Devmajor(),
		Devminor:   fm.Devminor(),
		Checksum:   fm.Checksum(),
		Offset:     fm.Offset(),
		OffsetData: fm.OffsetData(),
	}
	if n := fm.SparseLength(); n > 0 || m.Type == tartype.TypeGNUSparse {
		regions := make([]sparse.Region, n)
		var r fb.Region
		for i := range n {
			fm.Sparse(&r, i)
			regions[i] = sparse.Region{Offset: r.Offset(), Size: r.Size()}
		}
		sm, err := sparse.Build(regions, m.Size)
		if err != nil {
			return nil, fmt.Errorf("%w: member %s: %w", ErrInvalid, m.Name, err)
		}
		m.Sparse = sm
	}
	return m, nil
}
