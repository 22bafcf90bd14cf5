package tarfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
)

// maxLinkDepth bounds the chain of links ExtractFile follows.
const maxLinkDepth = 40

// ExtractFile returns a reader for the data of m, which must be a member
// of this archive.
//
// Links resolve to the member they point at, searched among the members
// before the link. Members without data, such as directories and devices,
// return ErrNotRegular. In stream modes only the current member can be
// read and links cannot be resolved.
func (a *Archive) ExtractFile(m *Member) (*FileReader, error) {
	if err := a.check(stateRead); err != nil {
		return nil, err
	}
	for range maxLinkDepth {
		switch {
		case m.IsReg():
			return &FileReader{a: a, m: m}, nil
		case m.IsLink() || m.IsSymlink():
			if a.mode.stream {
				return nil, fmt.Errorf("%w: cannot extract link %s as a file", ErrStream, m.Name)
			}
			target, err := a.linkTarget(m)
			if err != nil {
				return nil, err
			}
			m = target
		default:
			return nil, fmt.Errorf("%w: %s", ErrNotRegular, m)
		}
	}
	return nil, fmt.Errorf("%w: too many levels of links at %s", ErrNotFound, m.Name)
}

// ExtractFileByName is ExtractFile for the member called name.
func (a *Archive) ExtractFileByName(name string) (*FileReader, error) {
	m, err := a.Member(name)
	if err != nil {
		return nil, err
	}
	return a.ExtractFile(m)
}

// linkTarget returns the member a link points at. Symlink targets are
// relative to the link's directory; hard link targets are archive names.
func (a *Archive) linkTarget(m *Member) (*Member, error) {
	end := a.table.IndexOf(m)
	if end < 0 {
		end = a.table.Len()
	}
	return a.lookup(linkPath(m), end)
}

func linkPath(m *Member) string {
	if m.IsSymlink() && !path.IsAbs(m.Linkname) {
		return path.Join(path.Dir(m.Name), m.Linkname)
	}
	return m.Linkname
}

// FileReader reads the data of one member. It implements io.ReadSeeker.
// Holes of sparse members read as zeros.
type FileReader struct {
	a      *Archive
	m      *Member
	pos    int64
	buf    []byte
	closed bool
}

// Member returns the member being read.
func (f *FileReader) Member() *Member { return f.m }

// Size returns the logical size of the data.
func (f *FileReader) Size() int64 { return f.m.Size }

// Read implements io.Reader.
func (f *FileReader) Read(p []byte) (int, error) {
	if f.closed {
		return 0, ErrClosed
	}
	if len(f.buf) > 0 {
		n := copy(p, f.buf)
		f.buf = f.buf[n:]
		f.pos += int64(n)
		return n, nil
	}
	n, err := f.readAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// ReadLine returns the next line including its trailing newline. The last
// line of the data may lack one. At the end of the data it returns io.EOF.
func (f *FileReader) ReadLine() ([]byte, error) {
	if f.closed {
		return nil, ErrClosed
	}
	for {
		if i := bytes.IndexByte(f.buf, '\n'); i >= 0 {
			return f.take(i + 1), nil
		}
		chunk := make([]byte, copyBufferSize)
		n, err := f.readAt(chunk, f.pos+int64(len(f.buf)))
		f.buf = append(f.buf, chunk[:n]...)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			if len(f.buf) == 0 {
				return nil, io.EOF
			}
			return f.take(len(f.buf)), nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// take removes the first n buffered bytes and returns a copy of them.
func (f *FileReader) take(n int) []byte {
	line := bytes.Clone(f.buf[:n])
	f.buf = f.buf[n:]
	f.pos += int64(n)
	return line
}

// ReadLines reads all remaining lines.
func (f *FileReader) ReadLines() ([][]byte, error) {
	var lines [][]byte
	for {
		line, err := f.ReadLine()
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}

// Seek implements io.Seeker. The position is clamped to the data.
func (f *FileReader) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, ErrClosed
	}
	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = f.pos + offset
	case io.SeekEnd:
		target = f.m.Size + offset
	default:
		return f.pos, fmt.Errorf("tarfile: invalid whence %d", whence)
	}
	f.pos = min(max(target, 0), f.m.Size)
	f.buf = nil
	return f.pos, nil
}

// Tell returns the current position.
func (f *FileReader) Tell() int64 { return f.pos }

// Close releases the reader. The archive stays open.
func (f *FileReader) Close() error {
	f.closed = true
	f.buf = nil
	return nil
}

// readAt reads logical bytes at off.
func (f *FileReader) readAt(p []byte, off int64) (int, error) {
	if off >= f.m.Size {
		return 0, io.EOF
	}
	p = p[:min(int64(len(p)), f.m.Size-off)]
	if f.m.Sparse != nil {
		return f.m.Sparse.Read(p, off, f.readStored)
	}
	return f.readStored(p, off)
}

// readStored reads stored bytes at realPos relative to the data offset.
func (f *FileReader) readStored(p []byte, realPos int64) (int, error) {
	if err := f.a.check(stateRead); err != nil {
		return 0, err
	}
	if _, err := f.a.r.Seek(f.m.OffsetData+realPos, io.SeekStart); err != nil {
		return 0, readErr(err)
	}
	n, err := io.ReadFull(f.a.r, p)
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, fmt.Errorf("%w: unexpected end of data in %s", ErrRead, f.m.Name)
	}
	if err != nil {
		return n, readErr(err)
	}
	return n, nil
}
