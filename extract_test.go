package tarfile

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarfile/internal/platform"
	"github.com/meigma/tarfile/internal/testutil"
)

func TestExtractAllTypes(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("needs symlinks and fifos")
	}
	t.Parallel()

	mtime := time.Unix(1600000000, 0)
	data := buildArchive(t, "w:gz", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "d", Type: TypeDir, Mode: 0o755, ModTime: mtime}, nil))
		require.NoError(t, a.AddFile(&Member{Name: "d/f.txt", Type: TypeReg, Mode: 0o640, Size: 5, ModTime: mtime}, strings.NewReader("hello")))
		require.NoError(t, a.AddFile(&Member{Name: "d/sym", Type: TypeSymlink, Linkname: "f.txt", ModTime: mtime}, nil))
		require.NoError(t, a.AddFile(&Member{Name: "d/hard", Type: TypeLink, Linkname: "d/f.txt", Mode: 0o640, ModTime: mtime}, nil))
		require.NoError(t, a.AddFile(&Member{Name: "d/pipe", Type: TypeFifo, Mode: 0o600, ModTime: mtime}, nil))
		require.NoError(t, a.AddFile(&Member{Name: "deep/er/file", Type: TypeReg, Mode: 0o644, Size: 1, ModTime: mtime}, strings.NewReader("x")))
	})

	dest := t.TempDir()
	a := openBytes(t, data, "r")
	require.NoError(t, a.ExtractAll(dest))

	got, err := os.ReadFile(filepath.Join(dest, "d", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))

	info, err := os.Stat(filepath.Join(dest, "d", "f.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	assert.True(t, info.ModTime().Equal(mtime))

	dirInfo, err := os.Stat(filepath.Join(dest, "d"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), dirInfo.Mode().Perm())
	assert.True(t, dirInfo.ModTime().Equal(mtime), "directory times are applied last")

	target, err := os.Readlink(filepath.Join(dest, "d", "sym"))
	require.NoError(t, err)
	assert.Equal(t, "f.txt", target)

	hard, err := os.Stat(filepath.Join(dest, "d", "hard"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(info, hard))

	pipe, err := os.Lstat(filepath.Join(dest, "d", "pipe"))
	require.NoError(t, err)
	assert.NotZero(t, pipe.Mode()&os.ModeNamedPipe)

	got, err = os.ReadFile(filepath.Join(dest, "deep", "er", "file"))
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestExtractAllReadOnlyDirectory(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "ro", Type: TypeDir, Mode: 0o555, ModTime: testTime}, nil))
		addBytes(t, a, "ro/inside", []byte("data"))
	})

	dest := t.TempDir()
	require.NoError(t, openBytes(t, data, "r").ExtractAll(dest), "contents are written before the mode is applied")
	t.Cleanup(func() { os.Chmod(filepath.Join(dest, "ro"), 0o755) })

	got, err := os.ReadFile(filepath.Join(dest, "ro", "inside"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(got))
}

func TestExtractSelectedMembers(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t, "w")
	a := openBytes(t, data, "r")
	m, err := a.Member("dir/two.txt")
	require.NoError(t, err)

	dest := t.TempDir()
	require.NoError(t, a.ExtractAll(dest, m))

	_, err = os.Stat(filepath.Join(dest, "one.txt"))
	assert.True(t, os.IsNotExist(err))
	got, err := os.ReadFile(filepath.Join(dest, "dir", "two.txt"))
	require.NoError(t, err)
	assert.Len(t, got, 3500)
}

func TestExtractStreamMode(t *testing.T) {
	t.Parallel()

	data := sampleArchive(t, "w|xz")
	a, err := OpenReader(testutil.OnlyReader{R: bytes.NewReader(data)}, "r|*")
	require.NoError(t, err)
	defer a.Close()

	dest := t.TempDir()
	require.NoError(t, a.ExtractAll(dest))

	got, err := os.ReadFile(filepath.Join(dest, "one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "first file\n", string(got))
}

func TestExtractRefusesEscapingNames(t *testing.T) {
	t.Parallel()

	raw := testutil.NewBuilder(t).
		File("../escape.txt", []byte("bad")).
		File("/abs.txt", []byte("bad")).
		File("ok.txt", []byte("ok")).
		End().Bytes()

	parent := t.TempDir()
	dest := filepath.Join(parent, "dest")

	// Level 0 logs and continues.
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	require.NoError(t, openBytes(t, raw, "r", WithLogger(logger)).ExtractAll(dest))
	_, err := os.Stat(filepath.Join(parent, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dest, "ok.txt"))
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "extract failed")

	// Level 1 returns the error.
	err = openBytes(t, raw, "r", WithErrorLevel(1)).ExtractAll(t.TempDir())
	require.Error(t, err)
}

func TestExtractErrorLevels(t *testing.T) {
	t.Parallel()

	// A device node cannot be created without privileges; the failure is
	// an ExtractError.
	if os.Geteuid() == 0 || runtime.GOOS == "windows" {
		t.Skip("needs an unprivileged unix user")
	}
	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "null", Type: TypeChar, Mode: 0o666, Devmajor: 1, Devminor: 3, ModTime: testTime}, nil))
		addBytes(t, a, "after", []byte("a"))
	})

	for _, level := range []int{0, 1} {
		dest := t.TempDir()
		require.NoError(t, openBytes(t, data, "r", WithErrorLevel(level)).ExtractAll(dest), "level %d", level)
		_, err := os.Stat(filepath.Join(dest, "after"))
		require.NoError(t, err)
	}

	err := openBytes(t, data, "r", WithErrorLevel(2)).ExtractAll(t.TempDir())
	require.ErrorIs(t, err, ErrExtract)
	var xerr *ExtractError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "mknod", xerr.Op)
	assert.Equal(t, "null", xerr.Path)
}

func TestExtractOwnership(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("no unix owners")
	}

	own := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "mine", Type: TypeReg, Mode: 0o644, UID: os.Getuid(), GID: os.Getgid(), ModTime: testTime}, nil))
	})
	dest := t.TempDir()
	require.NoError(t, openBytes(t, own, "r", WithOwnership(true), WithErrorLevel(2)).ExtractAll(dest))
	info, err := os.Lstat(filepath.Join(dest, "mine"))
	require.NoError(t, err)
	assert.Equal(t, os.Getuid(), platform.Stat(info).UID)

	foreign := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "theirs", Type: TypeReg, Mode: 0o644, UID: 4242, GID: 4242, ModTime: testTime}, nil))
	})
	require.NoError(t, openBytes(t, foreign, "r", WithOwnership(false), WithErrorLevel(2)).ExtractAll(t.TempDir()))
	if os.Geteuid() != 0 {
		err := openBytes(t, foreign, "r", WithOwnership(true), WithErrorLevel(2)).ExtractAll(t.TempDir())
		var xerr *ExtractError
		require.ErrorAs(t, err, &xerr)
		assert.Equal(t, "chown", xerr.Op)
	}
}

func TestExtractReadErrorAlwaysAborts(t *testing.T) {
	t.Parallel()

	raw := testutil.NewBuilder(t).File("a", []byte("A")).Garbage().End().Bytes()
	err := openBytes(t, raw, "r:").ExtractAll(t.TempDir())
	require.ErrorIs(t, err, ErrRead)
}

func TestExtractTruncatedDataAborts(t *testing.T) {
	t.Parallel()

	raw := testutil.NewBuilder(t).File("a", bytes.Repeat([]byte("A"), 2000)).Bytes()
	raw = raw[:BlockSize+1000]

	a := openBytes(t, raw, "r:")
	m, err := a.Next()
	require.NoError(t, err)
	err = a.Extract(m, t.TempDir())
	require.ErrorIs(t, err, ErrRead)
}

func TestLinkEmulation(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, "w", func(a *Archive) {
		addBytes(t, a, "dir/target", []byte("content"))
		require.NoError(t, a.AddFile(&Member{Name: "dir/sym", Type: TypeSymlink, Linkname: "target", ModTime: testTime}, nil))
		require.NoError(t, a.AddFile(&Member{Name: "hard", Type: TypeLink, Linkname: "dir/target", Mode: 0o644, ModTime: testTime}, nil))
	})

	dest := t.TempDir()
	require.NoError(t, openBytes(t, data, "r", WithLinkEmulation(true), WithErrorLevel(2)).ExtractAll(dest))

	for _, name := range []string{"dir/sym", "hard"} {
		p := filepath.Join(dest, filepath.FromSlash(name))
		info, err := os.Lstat(p)
		require.NoError(t, err)
		assert.True(t, info.Mode().IsRegular(), name)
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, "content", string(got))
	}
}

func TestLinkEmulationCopiesExtractedFile(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, "w", func(a *Archive) {
		require.NoError(t, a.AddFile(&Member{Name: "hard", Type: TypeLink, Linkname: "existing", Mode: 0o644, ModTime: testTime}, nil))
	})

	dest := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dest, "existing"), []byte("on disk"), 0o644))
	require.NoError(t, openBytes(t, data, "r", WithLinkEmulation(true), WithErrorLevel(2)).ExtractAll(dest))

	got, err := os.ReadFile(filepath.Join(dest, "hard"))
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(got))
}

func TestExtractOverwritesFile(t *testing.T) {
	t.Parallel()

	data := buildArchive(t, "w", func(a *Archive) {
		addBytes(t, a, "f", []byte("new"))
	})
	for _, direct := range []bool{false, true} {
		dest := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dest, "f"), []byte("old contents"), 0o644))

		a := openBytes(t, data, "r", WithDirectWrites(direct), WithErrorLevel(2))
		m, err := a.Member("f")
		require.NoError(t, err)
		require.NoError(t, a.Extract(m, dest))

		got, err := os.ReadFile(filepath.Join(dest, "f"))
		require.NoError(t, err)
		assert.Equal(t, "new", string(got))
	}
}

func TestExtractUnknownTypeAsRegular(t *testing.T) {
	t.Parallel()

	raw := testutil.NewBuilder(t).
		Member(&Member{Name: "odd", Type: Type('X'), Mode: 0o644, Size: 3, ModTime: testTime}, []byte("odd")).
		End().Bytes()

	dest := t.TempDir()
	require.NoError(t, openBytes(t, raw, "r").ExtractAll(dest))
	got, err := os.ReadFile(filepath.Join(dest, "odd"))
	require.NoError(t, err)
	assert.Equal(t, "odd", string(got))
}

func TestExtractSparse(t *testing.T) {
	t.Parallel()

	raw := testutil.NewBuilder(t).
		Sparse("s", []SparseRegion{{Offset: 4096, Size: 4}}, 8192, []byte("DATA")).
		End().Bytes()

	dest := t.TempDir()
	require.NoError(t, openBytes(t, raw, "r").ExtractAll(dest))
	got, err := os.ReadFile(filepath.Join(dest, "s"))
	require.NoError(t, err)
	require.Len(t, got, 8192)
	assert.Equal(t, "DATA", string(got[4096:4100]))
	assert.Equal(t, make([]byte, 4096), got[:4096])
}
