package tarfile

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndexRoundTrip(t *testing.T) {
	t.Parallel()

	sm, err := NewSparseMap([]SparseRegion{{Offset: 10, Size: 5}}, 100)
	require.NoError(t, err)
	data := buildArchive(t, "w:gz", func(a *Archive) {
		addBytes(t, a, "a.txt", []byte("alpha"))
		require.NoError(t, a.AddFile(&Member{Name: "sp", Type: TypeGNUSparse, Sparse: sm, ModTime: testTime}, bytes.NewReader([]byte("12345"))))
		require.NoError(t, a.AddFile(&Member{Name: "l", Type: TypeSymlink, Linkname: "a.txt", ModTime: testTime}, nil))
	})

	var idx bytes.Buffer
	require.NoError(t, openBytes(t, data, "r").WriteIndex(&idx))

	a := openBytes(t, data, "r", WithIndex(idx.Bytes()))
	assert.Equal(t, 3, a.table.Len(), "index replaces the scan")

	members, err := a.Members()
	require.NoError(t, err)
	require.Len(t, members, 3)
	assert.Equal(t, "a.txt", members[0].Name)
	assert.Equal(t, []byte("alpha"), readAll(t, a, members[0]))
	assert.Equal(t, int64(100), members[1].Size)
	assert.Equal(t, append(make([]byte, 10), append([]byte("12345"), make([]byte, 85)...)...), readAll(t, a, members[1]))
	assert.Equal(t, "a.txt", members[2].Linkname)

	m, err := a.Next()
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestIndexStale(t *testing.T) {
	t.Parallel()

	one := buildArchive(t, "w", func(a *Archive) { addBytes(t, a, "one", []byte("1")) })
	two := buildArchive(t, "w", func(a *Archive) { addBytes(t, a, "two", []byte("2")) })

	var idx bytes.Buffer
	require.NoError(t, openBytes(t, one, "r").WriteIndex(&idx))

	_, err := OpenReader(bytes.NewReader(two), "r", WithIndex(idx.Bytes()))
	require.ErrorIs(t, err, ErrStaleIndex)

	// Same first member, different length.
	longer := buildArchive(t, "w", func(a *Archive) {
		addBytes(t, a, "one", []byte("1"))
		addBytes(t, a, "extra", []byte("e"))
	})
	_, err = OpenReader(bytes.NewReader(longer), "r", WithIndex(idx.Bytes()))
	require.ErrorIs(t, err, ErrStaleIndex)

	_, err = OpenReader(bytes.NewReader(one), "r", WithIndex([]byte("garbage!garbage!")))
	require.ErrorIs(t, err, ErrInvalidIndex)
}
