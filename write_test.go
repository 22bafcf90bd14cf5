package tarfile

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarfile/internal/header"
)

func TestLongNamesGNU(t *testing.T) {
	t.Parallel()

	longName := strings.Repeat("d", 120) + "/" + strings.Repeat("f", 80)
	longLink := strings.Repeat("t", 150)

	data := buildArchive(t, "w", func(a *Archive) {
		addBytes(t, a, longName, []byte("payload"))
		require.NoError(t, a.AddFile(&Member{
			Name:     "sym",
			Type:     TypeSymlink,
			Linkname: longLink,
			ModTime:  testTime,
		}, nil))
		require.NoError(t, a.AddFile(&Member{
			Name:     longName + "2",
			Type:     TypeSymlink,
			Linkname: longLink,
			ModTime:  testTime,
		}, nil))
	})

	// The long link member precedes the long name member.
	var third header.Block
	off := BlockSize + sizingRound(len(longName)+1) + BlockSize + BlockSize
	off += BlockSize + sizingRound(len(longLink)+1) + BlockSize
	copy(third[:], data[off:])
	assert.Equal(t, TypeGNULongLink, third.Type())

	a := openBytes(t, data, "r")
	members, err := a.Members()
	require.NoError(t, err)
	require.Len(t, members, 3)

	assert.Equal(t, longName, members[0].Name)
	assert.Equal(t, int64(0), members[0].Offset)
	assert.Equal(t, []byte("payload"), readAll(t, a, members[0]))

	assert.Equal(t, "sym", members[1].Name)
	assert.Equal(t, longLink, members[1].Linkname)

	assert.Equal(t, longName+"2", members[2].Name)
	assert.Equal(t, longLink, members[2].Linkname)
	assert.Equal(t, int64(off), members[2].Offset)
}

func sizingRound(n int) int {
	return (n + BlockSize - 1) / BlockSize * BlockSize
}

func TestLongNamesPOSIX(t *testing.T) {
	t.Parallel()

	splittable := strings.Repeat("d", 120) + "/" + strings.Repeat("f", 80)
	data := buildArchive(t, "w", func(a *Archive) {
		addBytes(t, a, splittable, []byte("x"))

		err := a.AddFile(&Member{Name: strings.Repeat("n", 101), Type: TypeReg, ModTime: testTime}, nil)
		require.ErrorIs(t, err, ErrNameTooLong)

		err = a.AddFile(&Member{Name: "l", Type: TypeSymlink, Linkname: strings.Repeat("t", 101), ModTime: testTime}, nil)
		require.ErrorIs(t, err, ErrLinkTooLong)

		err = a.AddFile(&Member{Name: "big", Type: TypeReg, Size: MaxOctalSize + 1, ModTime: testTime}, bytes.NewReader(nil))
		require.ErrorIs(t, err, ErrFileTooLarge)

		err = a.AddFile(&Member{Name: "neg", Type: TypeReg, UID: -1, ModTime: testTime}, nil)
		require.ErrorIs(t, err, ErrFieldOverflow)
	}, WithPOSIX(true))

	// Failed members leave no trace.
	assert.Len(t, data, RecordSize)
	var blk header.Block
	copy(blk[:], data)
	assert.Equal(t, "ustar\x0000", string(blk[257:265]))

	names, err := openBytes(t, data, "r").Names()
	require.NoError(t, err)
	assert.Equal(t, []string{splittable}, names)
}

func TestLargeFileHeaderGNU(t *testing.T) {
	t.Parallel()

	a := newArchive(modeSpec{op: 'w'}, "", nil)
	blocks, err := a.encodeHeaders(&Member{Name: "big", Type: TypeReg, Size: MaxOctalSize + 1, ModTime: testTime})
	require.NoError(t, err)
	require.Len(t, blocks, 1)
	assert.Equal(t, byte(0x80), blocks[0][124])

	var b header.Block
	copy(b[:], blocks[0])
	m, ok, err := header.Decode(&b)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(MaxOctalSize+1), m.Size)
}

func TestAddFileShortData(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	a, err := OpenWriter(&buf, "w")
	require.NoError(t, err)
	err = a.AddFile(&Member{Name: "f", Type: TypeReg, Size: 10, ModTime: testTime}, strings.NewReader("short"))
	require.Error(t, err)

	err = a.AddFile(&Member{Name: "g", Type: TypeReg, Size: 10, ModTime: testTime}, nil)
	require.Error(t, err)
}

func TestSparseMemberGNU(t *testing.T) {
	t.Parallel()

	sm, err := NewSparseMap([]SparseRegion{{Offset: 2, Size: 4}, {Offset: 10, Size: 4}}, 20)
	require.NoError(t, err)

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{
			Name:    "sparse",
			Mode:    0o644,
			Type:    TypeGNUSparse,
			ModTime: testTime,
			Sparse:  sm,
		}, strings.NewReader("AAAABBBB")))
		addBytes(t, a, "after", []byte("ok"))
	})

	a := openBytes(t, data, "r")
	members, err := a.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)

	m := members[0]
	assert.Equal(t, TypeGNUSparse, m.Type)
	assert.Equal(t, int64(20), m.Size)
	require.NotNil(t, m.Sparse)
	assert.Equal(t, int64(8), m.Sparse.DataSize())
	assert.Equal(t, []byte("\x00\x00AAAA\x00\x00\x00\x00BBBB\x00\x00\x00\x00\x00\x00"), readAll(t, a, m))
	assert.Equal(t, []byte("ok"), readAll(t, a, members[1]))
}

func TestSparseMemberPOSIXIsExpanded(t *testing.T) {
	t.Parallel()

	sm, err := NewSparseMap([]SparseRegion{{Offset: 2, Size: 4}}, 8)
	require.NoError(t, err)

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "s", Type: TypeGNUSparse, ModTime: testTime, Sparse: sm}, strings.NewReader("AAAA")))
	}, WithPOSIX(true))

	a := openBytes(t, data, "r")
	m, err := a.Member("s")
	require.NoError(t, err)
	assert.Equal(t, TypeReg, m.Type)
	assert.Nil(t, m.Sparse)
	assert.Equal(t, []byte("\x00\x00AAAA\x00\x00"), readAll(t, a, m))
}

func writeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src", "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "sub", "b.txt"), []byte("beta"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "src", "skip.log"), []byte("log"), 0o644))
	return dir
}

func TestAddRecursive(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.Add(filepath.Join(dir, "src"), "src"))
	})

	a := openBytes(t, data, "r")
	names, err := a.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"src/", "src/a.txt", "src/skip.log", "src/sub/", "src/sub/b.txt"}, names)

	m, err := a.Member("src/sub/b.txt")
	require.NoError(t, err)
	assert.Equal(t, int64(0o600), m.Mode)
	assert.Equal(t, []byte("beta"), readAll(t, a, m))
}

func TestAddNonRecursiveAndFilter(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.Add(filepath.Join(dir, "src"), "flat", AddNonRecursive()))
		require.NoError(t, a.Add(filepath.Join(dir, "src"), "filtered", AddWithFilter(func(m *Member) *Member {
			if strings.HasSuffix(m.Name, ".log") || m.Name == "filtered/sub/" {
				return nil
			}
			m.UID, m.GID, m.Uname, m.Gname = 0, 0, "root", "root"
			return m
		})))
	})

	a := openBytes(t, data, "r")
	members, err := a.Members()
	require.NoError(t, err)
	var names []string
	for _, m := range members {
		names = append(names, m.Name)
		if strings.HasPrefix(m.Name, "filtered/") {
			assert.Equal(t, "root", m.Uname)
		}
	}
	assert.Equal(t, []string{"flat/", "filtered/", "filtered/a.txt"}, names)
}

func TestAddHardLinkDedup(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("inode numbers are not available")
	}
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one"), []byte("shared"), 0o644))
	require.NoError(t, os.Link(filepath.Join(dir, "one"), filepath.Join(dir, "two")))

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.Add(filepath.Join(dir, "one"), "one"))
		require.NoError(t, a.Add(filepath.Join(dir, "two"), "two"))
	})

	a := openBytes(t, data, "r")
	two, err := a.Member("two")
	require.NoError(t, err)
	assert.Equal(t, TypeLink, two.Type)
	assert.Equal(t, "one", two.Linkname)
	assert.Equal(t, []byte("shared"), readAll(t, a, two))
}

func TestAddSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges")
	}
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "target"), []byte("t"), 0o644))
	require.NoError(t, os.Symlink("target", filepath.Join(dir, "link")))

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.Add(filepath.Join(dir, "link"), "link"))
	})
	m, err := openBytes(t, data, "r").Member("link")
	require.NoError(t, err)
	assert.Equal(t, TypeSymlink, m.Type)
	assert.Equal(t, "target", m.Linkname)

	deref := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.Add(filepath.Join(dir, "link"), "link"))
	}, WithDereference(true))
	m, err = openBytes(t, deref, "r").Member("link")
	require.NoError(t, err)
	assert.Equal(t, TypeReg, m.Type)
	assert.Equal(t, int64(1), m.Size)
}

func TestAddSkipsArchiveItself(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	path := filepath.Join(dir, "src", "out.tar")
	a, err := Open(path, "w")
	require.NoError(t, err)
	require.NoError(t, a.Add(filepath.Join(dir, "src"), "src"))
	require.NoError(t, a.Close())

	r, err := Open(path, "r")
	require.NoError(t, err)
	defer r.Close()
	names, err := r.Names()
	require.NoError(t, err)
	assert.NotContains(t, names, "src/out.tar")
	assert.Contains(t, names, "src/a.txt")
}

func TestMemberFromFileArcname(t *testing.T) {
	t.Parallel()

	dir := writeTree(t)
	var buf bytes.Buffer
	a, err := OpenWriter(&buf, "w")
	require.NoError(t, err)
	defer a.Close()

	m, err := a.MemberFromFile(filepath.Join(dir, "src", "a.txt"), "/abs/./a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abs/a.txt", m.Name)
	assert.Equal(t, TypeReg, m.Type)
	assert.Equal(t, int64(5), m.Size)

	m, err = a.MemberFromFile(filepath.Join(dir, "src", "sub"), "")
	require.NoError(t, err)
	assert.True(t, m.IsDir())
	assert.True(t, strings.HasSuffix(m.Name, "sub/"))
}

func TestAppend(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.tar")

	// Appending to a missing file creates a new archive.
	a, err := Open(path, "a")
	require.NoError(t, err)
	addBytes(t, a, "first", []byte("1"))
	require.NoError(t, a.Close())

	a, err = Open(path, "a:")
	require.NoError(t, err)
	addBytes(t, a, "second", []byte("2"))
	names, err := a.Names()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, names)
	require.NoError(t, a.Close())

	r, err := Open(path, "r:")
	require.NoError(t, err)
	defer r.Close()
	members, err := r.Members()
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, int64(2*BlockSize), members[1].Offset)
	assert.Equal(t, []byte("2"), readAll(t, r, members[1]))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size()%RecordSize)
}

func TestAppendRejectsCompression(t *testing.T) {
	t.Parallel()

	_, err := Open(filepath.Join(t.TempDir(), "x.tar.gz"), "a:gz")
	require.ErrorIs(t, err, ErrBadMode)
}
