package http_test

import (
	"bytes"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/tarfile"
	tarhttp "github.com/meigma/tarfile/http"
)

func serve(t *testing.T, data []byte) string {
	t.Helper()
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func buildArchive(t *testing.T, mode string, files map[string]string, order []string) []byte {
	t.Helper()
	var buf bytes.Buffer
	a, err := tarfile.OpenWriter(&buf, mode)
	require.NoError(t, err)
	for _, name := range order {
		body := files[name]
		require.NoError(t, a.AddFile(&tarfile.Member{
			Name:    name,
			Mode:    0o644,
			Size:    int64(len(body)),
			ModTime: time.Unix(1700000000, 0),
			Type:    tarfile.TypeReg,
		}, strings.NewReader(body)))
	}
	require.NoError(t, a.Close())
	return buf.Bytes()
}

func TestSourceReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	src, err := tarhttp.NewSource(serve(t, data), tarhttp.WithConditionalHeaders())
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), src.Size())

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		wantN   int
		wantErr error
		want    string
	}{
		{name: "read from middle", bufSize: 5, offset: 6, wantN: 5, want: "world"},
		{name: "read past end returns EOF", bufSize: 10, offset: int64(len(data) - 3), wantN: 3, wantErr: io.EOF, want: "rld"},
		{name: "offset at size", bufSize: 4, offset: int64(len(data)), wantN: 0, wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.bufSize)
			n, err := src.ReadAt(buf, tt.offset)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

func TestSourceReadAheadServesBlocks(t *testing.T) {
	t.Parallel()

	data := bytes.Repeat([]byte("0123456789abcdef"), 1024)
	src, err := tarhttp.NewSource(serve(t, data), tarhttp.WithReadAhead(8192))
	require.NoError(t, err)

	buf := make([]byte, 512)
	for off := int64(0); off < 8192; off += 512 {
		n, err := src.ReadAt(buf, off)
		require.NoError(t, err)
		require.Equal(t, 512, n)
		assert.Equal(t, data[off:off+512], buf)
	}
	assert.Equal(t, 1, src.Fetches())

	n, err := src.ReadAt(buf, 8192)
	require.NoError(t, err)
	assert.Equal(t, data[8192:8192+n], buf[:n])
	assert.Equal(t, 2, src.Fetches())
}

func TestSourceWithoutReadAhead(t *testing.T) {
	t.Parallel()

	data := []byte("abcdefgh")
	src, err := tarhttp.NewSource(serve(t, data), tarhttp.WithReadAhead(0))
	require.NoError(t, err)

	buf := make([]byte, 2)
	for off := int64(0); off < 8; off += 2 {
		_, err := src.ReadAt(buf, off)
		require.NoError(t, err)
	}
	assert.Equal(t, 4, src.Fetches())
}

func TestSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	data := []byte("range unsupported")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method == nethttp.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(data)))
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(server.Close)

	_, err := tarhttp.NewSource(server.URL)
	require.ErrorIs(t, err, tarhttp.ErrRangeUnsupported)
}

func TestSourceSendsHeaders(t *testing.T) {
	t.Parallel()

	data := []byte("secret")
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Authorization") != "Bearer token" {
			w.WriteHeader(nethttp.StatusUnauthorized)
			return
		}
		nethttp.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	_, err := tarhttp.NewSource(server.URL)
	require.Error(t, err)

	src, err := tarhttp.NewSource(server.URL, tarhttp.WithHeader("Authorization", "Bearer token"))
	require.NoError(t, err)
	got, err := io.ReadAll(src.Reader())
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestOpenRemoteArchive(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"a.txt":     "alpha\n",
		"dir/b.txt": strings.Repeat("b", 3000),
		"c.txt":     "gamma\n",
	}
	order := []string{"a.txt", "dir/b.txt", "c.txt"}

	for _, mode := range []string{"w", "w:gz", "w:zst"} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()

			src, err := tarhttp.NewSource(serve(t, buildArchive(t, mode, files, order)))
			require.NoError(t, err)

			a, err := tarhttp.Open(src, "r:*")
			require.NoError(t, err)
			defer a.Close()

			names, err := a.Names()
			require.NoError(t, err)
			assert.Equal(t, order, names)

			// Random access: read the last member before the first.
			for _, name := range []string{"c.txt", "a.txt", "dir/b.txt"} {
				fr, err := a.ExtractFileByName(name)
				require.NoError(t, err)
				got, err := io.ReadAll(fr)
				require.NoError(t, err)
				require.NoError(t, fr.Close())
				assert.Equal(t, files[name], string(got), name)
			}
		})
	}
}

func TestOpenRemoteArchiveStream(t *testing.T) {
	t.Parallel()

	files := map[string]string{"one": "1", "two": "22"}
	src, err := tarhttp.NewSource(serve(t, buildArchive(t, "w:gz", files, []string{"one", "two"})))
	require.NoError(t, err)

	a, err := tarhttp.Open(src, "r|gz")
	require.NoError(t, err)
	defer a.Close()

	var names []string
	for m, err := range a.All() {
		require.NoError(t, err)
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"one", "two"}, names)
}
