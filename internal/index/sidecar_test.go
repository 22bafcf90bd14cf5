package index

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

func TestSidecarRoundTrip(t *testing.T) {
	t.Parallel()

	sm, err := sparse.Build([]sparse.Region{{Offset: 0, Size: 512}, {Offset: 8192, Size: 512}}, 16384)
	require.NoError(t, err)

	tbl := NewTable()
	tbl.Append(&tartype.Member{
		Name:       "dir/",
		Mode:       0o755,
		Type:       tartype.TypeDir,
		ModTime:    time.Unix(1700000000, 0),
		Uname:      "root",
		Gname:      "wheel",
		Checksum:   4321,
		Offset:     0,
		OffsetData: 512,
	})
	tbl.Append(&tartype.Member{
		Name:       "dir/link",
		Type:       tartype.TypeSymlink,
		Linkname:   "../target",
		UID:        1000,
		GID:        1000,
		Offset:     512,
		OffsetData: 1024,
	})
	tbl.Append(&tartype.Member{
		Name:       "holes.bin",
		Mode:       0o600,
		Type:       tartype.TypeGNUSparse,
		Size:       16384,
		Sparse:     sm,
		Offset:     1024,
		OffsetData: 1536,
	})
	tbl.Append(&tartype.Member{
		Name:     "dev/null",
		Type:     tartype.TypeChar,
		Devmajor: 1,
		Devminor: 3,
	})

	data := Encode(tbl, 0xdeadbeef, 4096)
	s, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, uint64(0xdeadbeef), s.Fingerprint)
	assert.Equal(t, int64(4096), s.EndOffset)
	require.Equal(t, tbl.Len(), s.Table.Len())

	for i := range tbl.Len() {
		want, got := tbl.At(i), s.Table.At(i)
		assert.Equal(t, want.Name, got.Name)
		assert.Equal(t, want.Mode, got.Mode)
		assert.Equal(t, want.UID, got.UID)
		assert.Equal(t, want.GID, got.GID)
		assert.Equal(t, want.Size, got.Size)
		assert.Equal(t, want.ModTime.Unix(), got.ModTime.Unix())
		assert.Equal(t, want.Type, got.Type)
		assert.Equal(t, want.Linkname, got.Linkname)
		assert.Equal(t, want.Uname, got.Uname)
		assert.Equal(t, want.Gname, got.Gname)
		assert.Equal(t, want.Devmajor, got.Devmajor)
		assert.Equal(t, want.Devminor, got.Devminor)
		assert.Equal(t, want.Checksum, got.Checksum)
		assert.Equal(t, want.Offset, got.Offset)
		assert.Equal(t, want.OffsetData, got.OffsetData)
	}

	holes := s.Table.At(2)
	require.NotNil(t, holes.Sparse)
	assert.Equal(t, sm.Segments(), holes.Sparse.Segments())
	assert.Nil(t, s.Table.At(0).Sparse)

	got, ok := s.Table.Get("dir/link")
	require.True(t, ok)
	assert.Equal(t, "../target", got.Linkname)
}

func TestSidecarEmpty(t *testing.T) {
	t.Parallel()

	s, err := Decode(Encode(NewTable(), 1, 1024))
	require.NoError(t, err)
	assert.Zero(t, s.Table.Len())
	assert.Equal(t, int64(1024), s.EndOffset)
}

func TestDecodeInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"short", []byte{1, 2, 3}},
		{"garbage", []byte{0xff, 0xff, 0xff, 0x7f, 0, 0, 0, 0, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestFingerprint(t *testing.T) {
	t.Parallel()

	a := Fingerprint([]byte("ustar header a"))
	b := Fingerprint([]byte("ustar header b"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint([]byte("ustar header a")))
}
