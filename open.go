package tarfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/meigma/tarfile/internal/blockstream"
	"github.com/meigma/tarfile/internal/index"
)

// sniffSize is the number of bytes peeked to detect compression on a
// source that cannot seek.
const sniffSize = 6

// Open opens the archive file name in the given mode. See the package
// documentation for the mode strings.
//
// Writing creates or truncates name; appending creates it if needed.
func Open(name, mode string, opts ...Option) (*Archive, error) {
	spec, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	a := newArchive(spec, name, opts)

	switch spec.op {
	case 'r':
		f, err := os.Open(name)
		if err != nil {
			return nil, err
		}
		if err := a.openRead(f); err != nil {
			f.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
		a.closer = f
	case 'w':
		f, err := os.Create(name)
		if err != nil {
			return nil, err
		}
		a.self, _ = f.Stat() //nolint:errcheck // only used to skip the archive in Add
		if err := a.openWrite(f, 0, f); err != nil {
			f.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
	case 'a':
		f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o666)
		if err != nil {
			return nil, err
		}
		a.self, _ = f.Stat() //nolint:errcheck // only used to skip the archive in Add
		if err := a.openAppend(f, f); err != nil {
			f.Close() //nolint:errcheck // best-effort cleanup
			return nil, err
		}
	}
	return a, nil
}

// OpenReader opens an archive for reading from r. mode must be a read
// mode. The archive never closes r.
//
// If r implements io.Seeker and mode is not a stream mode, members can be
// read in any order; otherwise access is forward-only.
func OpenReader(r io.Reader, mode string, opts ...Option) (*Archive, error) {
	spec, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	if spec.op != 'r' {
		return nil, fmt.Errorf("%w: %q is not a read mode", ErrBadMode, mode)
	}
	a := newArchive(spec, "", opts)
	if err := a.openRead(r); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenWriter opens an archive for writing to w. mode must be a write
// mode. The archive never closes w.
func OpenWriter(w io.Writer, mode string, opts ...Option) (*Archive, error) {
	spec, err := parseMode(mode)
	if err != nil {
		return nil, err
	}
	if spec.op != 'w' {
		return nil, fmt.Errorf("%w: %q is not a write mode", ErrBadMode, mode)
	}
	a := newArchive(spec, "", opts)
	if f, ok := w.(*os.File); ok {
		a.self, _ = f.Stat() //nolint:errcheck // only used to skip the archive in Add
	}
	if err := a.openWrite(w, 0, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// OpenAppend opens the uncompressed archive in f for appending. New
// members overwrite the end marker. An empty f becomes a new archive.
// The archive never closes f.
func OpenAppend(f io.ReadWriteSeeker, opts ...Option) (*Archive, error) {
	a := newArchive(modeSpec{op: 'a'}, "", opts)
	if file, ok := f.(*os.File); ok {
		a.self, _ = file.Stat() //nolint:errcheck // only used to skip the archive in Add
	}
	if err := a.openAppend(f, nil); err != nil {
		return nil, err
	}
	return a, nil
}

// IsTarFile reports whether name is a tar archive this package can read.
func IsTarFile(name string) bool {
	a, err := Open(name, "r")
	if err != nil {
		return false
	}
	a.Close() //nolint:errcheck // read-only
	return true
}

// openRead attaches a reader to src and loads the first member.
func (a *Archive) openRead(src io.Reader) error {
	a.state = stateRead
	if !a.mode.probe {
		return a.startRead(src, a.mode.comp)
	}

	if s, ok := src.(io.Seeker); ok && !a.mode.stream {
		if base, err := s.Seek(0, io.SeekCurrent); err == nil {
			return a.probeSeekable(src, s, base)
		}
	}

	br := bufio.NewReader(src)
	head, err := br.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %w", ErrRead, err)
	}
	return a.startRead(br, blockstream.Detect(head))
}

// probeSeekable tries each compression in turn, rewinding src between
// attempts.
func (a *Archive) probeSeekable(src io.Reader, s io.Seeker, base int64) error {
	for _, c := range blockstream.Probe {
		if _, err := s.Seek(base, io.SeekStart); err != nil {
			return err
		}
		err := a.startRead(src, c)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrRead) && !errors.Is(err, ErrCompression) {
			return err
		}
		a.logger.Debug("compression probe failed", "compression", c.String(), "error", err)
	}
	return fmt.Errorf("%w: file could not be opened successfully", ErrRead)
}

func (a *Archive) startRead(src io.Reader, c blockstream.Compression) error {
	var opts []blockstream.ReaderOption
	if a.mode.stream {
		opts = append(opts, blockstream.Streaming())
	}
	if a.cfg.maxDecoderMemory != 0 {
		opts = append(opts, blockstream.WithMaxDecoderMemory(a.cfg.maxDecoderMemory))
	}
	r, err := blockstream.NewReader(src, c, opts...)
	if err != nil {
		return err
	}
	a.r = r
	a.resetRead()

	first, err := a.readNext()
	if err != nil {
		r.Close() //nolint:errcheck // best-effort cleanup
		a.r = nil
		return err
	}
	a.first = first

	if a.cfg.index != nil {
		if err := a.loadIndex(a.cfg.index); err != nil {
			r.Close() //nolint:errcheck // best-effort cleanup
			a.r = nil
			return err
		}
	}
	return nil
}

func (a *Archive) resetRead() {
	a.table = index.NewTable()
	a.offset = 0
	a.loaded = false
	a.first = nil
	a.head = nil
}

// openWrite attaches a writer at logical position off.
func (a *Archive) openWrite(dst io.Writer, off int64, owned io.Closer) error {
	opts := []blockstream.WriterOption{
		blockstream.WithLevel(a.cfg.level),
		blockstream.WithOffset(off),
		blockstream.WithModTime(time.Now()),
	}
	if a.mode.stream {
		opts = append(opts, blockstream.WithBufferSize(a.cfg.bufSize))
	}
	if a.name != "" {
		opts = append(opts, blockstream.WithName(gzipName(a.name)))
	}
	if owned != nil {
		opts = append(opts, blockstream.WithWriterCloser(owned))
	}
	w, err := blockstream.NewWriter(dst, a.mode.comp, opts...)
	if err != nil {
		return err
	}
	a.w = w
	a.state = stateWrite
	a.offset = off
	a.loaded = true
	return nil
}

// openAppend reads f to the end marker and positions the writer on it.
func (a *Archive) openAppend(f io.ReadWriteSeeker, owned io.Closer) error {
	base, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	r, err := blockstream.NewReader(f, blockstream.CompressionNone)
	if err != nil {
		return err
	}
	a.r = r
	a.state = stateRead
	a.resetRead()

	err = a.load()
	r.Close() //nolint:errcheck // uncompressed reader holds no resources
	a.r = nil
	switch {
	case err == nil:
	case errors.Is(err, errEmpty):
		// An empty or new file becomes a new archive.
		a.table = index.NewTable()
	default:
		return err
	}

	end := a.offset
	if _, err := f.Seek(base+end, io.SeekStart); err != nil {
		return err
	}
	members := a.table
	if err := a.openWrite(f, end, owned); err != nil {
		return err
	}
	a.table = members
	return nil
}

// gzipName derives the name stored in a gzip header from the archive
// file name.
func gzipName(name string) string {
	base := filepath.Base(name)
	for _, ext := range []string{".gz", ".tgz"} {
		if trimmed, ok := strings.CutSuffix(base, ext); ok {
			if ext == ".tgz" {
				return trimmed + ".tar"
			}
			return trimmed
		}
	}
	return base
}
