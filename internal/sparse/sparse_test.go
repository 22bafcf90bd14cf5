package sparse

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildInsertsHoles(t *testing.T) {
	t.Parallel()

	m, err := Build([]Region{{Offset: 100, Size: 50}, {Offset: 300, Size: 20}}, 400)
	require.NoError(t, err)

	assert.Equal(t, []Segment{
		{Kind: KindHole, Offset: 0, Size: 100},
		{Kind: KindData, Offset: 100, Size: 50, RealPos: 0},
		{Kind: KindHole, Offset: 150, Size: 150},
		{Kind: KindData, Offset: 300, Size: 20, RealPos: 50},
		{Kind: KindHole, Offset: 320, Size: 80},
	}, m.Segments())
	assert.Equal(t, int64(400), m.Size())
	assert.Equal(t, int64(70), m.DataSize())

	var total int64
	for _, s := range m.Segments() {
		total += s.Size
	}
	assert.Equal(t, m.Size(), total)
}

func TestBuildDropsEmptyRegions(t *testing.T) {
	t.Parallel()

	m, err := Build([]Region{{Offset: 0, Size: 10}, {Offset: 64, Size: 0}}, 64)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, []Region{{Offset: 0, Size: 10}}, m.Regions())
}

func TestBuildRejectsInvalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		regions []Region
		size    int64
	}{
		{"negative size", nil, -1},
		{"negative offset", []Region{{Offset: -1, Size: 1}}, 10},
		{"overlap", []Region{{Offset: 0, Size: 10}, {Offset: 5, Size: 2}}, 20},
		{"unsorted", []Region{{Offset: 10, Size: 1}, {Offset: 0, Size: 1}}, 20},
		{"past size", []Region{{Offset: 0, Size: 30}}, 20},
		{"end overflows", []Region{{Offset: 10, Size: math.MaxInt64}}, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := Build(tt.regions, tt.size)
			require.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestFind(t *testing.T) {
	t.Parallel()

	m, err := Build([]Region{{Offset: 10, Size: 10}, {Offset: 40, Size: 10}}, 60)
	require.NoError(t, err)

	seg, ok := m.Find(45)
	require.True(t, ok)
	assert.Equal(t, KindData, seg.Kind)
	assert.Equal(t, int64(40), seg.Offset)

	// Wraps around to earlier segments.
	seg, ok = m.Find(0)
	require.True(t, ok)
	assert.Equal(t, KindHole, seg.Kind)

	seg, ok = m.Find(59)
	require.True(t, ok)
	assert.Equal(t, int64(50), seg.Offset)

	_, ok = m.Find(60)
	assert.False(t, ok)
	_, ok = m.Find(-1)
	assert.False(t, ok)
}

func TestFindEmpty(t *testing.T) {
	t.Parallel()

	m, err := Build(nil, 0)
	require.NoError(t, err)
	_, ok := m.Find(0)
	assert.False(t, ok)
}

func TestReadReconstructsHoles(t *testing.T) {
	t.Parallel()

	stored := []byte("AAAABBBB")
	m, err := Build([]Region{{Offset: 2, Size: 4}, {Offset: 10, Size: 4}}, 16)
	require.NoError(t, err)

	readData := func(p []byte, realPos int64) (int, error) {
		return copy(p, stored[realPos:]), nil
	}

	var out bytes.Buffer
	buf := make([]byte, 3)
	var off int64
	for off < m.Size() {
		n, err := m.Read(buf, off, readData)
		require.NoError(t, err)
		require.Positive(t, n)
		out.Write(buf[:n])
		off += int64(n)
	}

	want := []byte("\x00\x00AAAA\x00\x00\x00\x00BBBB\x00\x00")
	assert.Equal(t, want, out.Bytes())

	n, err := m.Read(buf, m.Size(), readData)
	require.NoError(t, err)
	assert.Zero(t, n)
}
