package tarfile

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/meigma/tarfile/internal/header"
	"github.com/meigma/tarfile/internal/platform"
	"github.com/meigma/tarfile/internal/sizing"
	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

// copyBufferSize is the chunk size used to copy member data.
const copyBufferSize = 16 << 10

var zeroPad [BlockSize]byte

// AddFile writes m to the archive followed by its data from r.
//
// For regular files r must supply m.Size bytes; for sparse members it
// supplies the bytes of the data regions only, in order. r is ignored for
// members without data and may be nil.
//
// The name is normalized and directories get a trailing slash. Names and
// link targets longer than 100 bytes are written as GNU long name members,
// or in POSIX mode split into the prefix field when possible. The member
// recorded in the archive's table is a copy; m is not modified.
func (a *Archive) AddFile(m *Member, r io.Reader) error {
	if err := a.check(stateWrite); err != nil {
		return err
	}

	m = m.Clone()
	m.Prefix = ""
	m.Name = NormalizeName(m.Name)
	if m.IsDir() {
		m.Name = DirName(m.Name)
	}
	if m.Linkname != "" {
		m.Linkname = NormalizeName(m.Linkname)
	}
	if m.ModTime.IsZero() {
		m.ModTime = time.Unix(0, 0)
	}

	data := r
	switch {
	case m.Type == TypeGNUSparse && m.Sparse == nil:
		m.Type = TypeReg
	case m.Sparse != nil && !m.HasData():
		m.Sparse = nil
	case m.Sparse != nil && a.cfg.posix:
		// POSIX has no sparse members: store the expanded file.
		data = expand(m.Sparse, r)
		m.Size = m.Sparse.Size()
		m.Sparse = nil
		m.Type = TypeReg
	case m.Sparse != nil:
		m.Type = TypeGNUSparse
		m.Size = m.Sparse.Size()
	}

	stored := m.StoredSize()
	if stored > 0 && data == nil {
		return fmt.Errorf("tarfile: %s: no data for %d bytes", m.Name, stored)
	}

	blocks, err := a.encodeHeaders(m)
	if err != nil {
		return err
	}

	m.Offset = a.offset
	for _, b := range blocks {
		if err := a.write(b); err != nil {
			return err
		}
	}
	m.OffsetData = a.offset

	if stored > 0 {
		if err := a.copyData(m.Name, data, stored); err != nil {
			return err
		}
	}
	a.table.Append(m)
	return nil
}

// encodeHeaders renders every block that precedes m's data: GNU long link
// and long name members with their payloads, the header, and sparse
// extension blocks.
func (a *Archive) encodeHeaders(m *Member) ([][]byte, error) {
	hdr := *m
	var blocks [][]byte

	if m.Size > MaxOctalSize {
		if a.cfg.posix {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, m.Name)
		}
		a.logger.Debug("created GNU large file header", "name", m.Name, "size", m.Size)
	}

	if len(m.Linkname) > tartype.LinkSize {
		if a.cfg.posix {
			return nil, fmt.Errorf("%w: %s -> %s", ErrLinkTooLong, m.Name, m.Linkname)
		}
		long, err := longMember(TypeGNULongLink, m.Linkname)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, long...)
		hdr.Linkname = m.Linkname[:tartype.LinkSize-1]
	}

	if len(m.Name) > tartype.NameSize {
		if a.cfg.posix {
			prefix, rest, ok := header.SplitPrefix(m.Name)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrNameTooLong, m.Name)
			}
			hdr.Prefix, hdr.Name = prefix, rest
		} else {
			long, err := longMember(TypeGNULongName, m.Name)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, long...)
			hdr.Name = m.Name[:tartype.NameSize-1]
		}
	}

	if hdr.Sparse != nil {
		b, ext, err := header.EncodeSparse(&hdr)
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b[:])
		for i := range ext {
			blocks = append(blocks, ext[i][:])
		}
		return blocks, nil
	}

	format := header.FormatGNU
	if a.cfg.posix {
		format = header.FormatPOSIX
	}
	b, err := header.Encode(&hdr, format)
	if err != nil {
		return nil, err
	}
	return append(blocks, b[:]), nil
}

// longMember renders a GNU long name or long link member carrying value.
func longMember(t Type, value string) ([][]byte, error) {
	lm := header.LongNameMember(t, value)
	b, err := header.Encode(lm, header.FormatGNU)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, sizing.RoundUp(lm.Size))
	copy(payload, value)
	return [][]byte{b[:], payload}, nil
}

func (a *Archive) write(p []byte) error {
	n, err := a.w.Write(p)
	a.offset += int64(n)
	return err
}

// copyData copies exactly size bytes from r and pads them to a block
// boundary.
func (a *Archive) copyData(name string, r io.Reader, size int64) error {
	buf := make([]byte, copyBufferSize)
	n, err := io.CopyBuffer(offsetWriter{a}, io.LimitReader(r, size), buf)
	if err != nil {
		return err
	}
	if n != size {
		return fmt.Errorf("tarfile: %s: %w: expected %d bytes, got %d", name, io.ErrUnexpectedEOF, size, n)
	}
	return a.write(zeroPad[:sizing.BlockPad(size)])
}

// offsetWriter writes to the archive stream, tracking the offset.
type offsetWriter struct {
	a *Archive
}

func (w offsetWriter) Write(p []byte) (int, error) {
	n, err := w.a.w.Write(p)
	w.a.offset += int64(n)
	return n, err
}

// expand returns the full contents of a sparse file whose data regions
// are read, in order, from r.
func expand(sm *sparse.Map, r io.Reader) io.Reader {
	var parts []io.Reader
	for _, seg := range sm.Segments() {
		if seg.Kind == sparse.KindHole {
			parts = append(parts, io.LimitReader(zeroReader{}, seg.Size))
		} else {
			parts = append(parts, io.LimitReader(r, seg.Size))
		}
	}
	return io.MultiReader(parts...)
}

type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
	clear(p)
	return len(p), nil
}

// Add archives the file, directory or link at name under arcname. An empty
// arcname uses name. Directories are added recursively unless
// AddNonRecursive is given; entries are added in lexical order.
//
// The archive's own file is skipped, as are sockets and other file types
// tar cannot represent.
func (a *Archive) Add(name, arcname string, opts ...AddOption) error {
	if err := a.check(stateWrite); err != nil {
		return err
	}
	cfg := addConfig{recursive: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	if arcname == "" {
		arcname = name
	}
	return a.add(name, arcname, &cfg)
}

func (a *Archive) add(name, arcname string, cfg *addConfig) error {
	if a.isSelf(name) {
		a.logger.Debug("skipped archive file", "name", name)
		return nil
	}

	if name == "." {
		if !cfg.recursive {
			return nil
		}
		if arcname == "." {
			arcname = ""
		}
		return a.addChildren(name, arcname, cfg)
	}

	m, err := a.MemberFromFile(name, arcname)
	if errors.Is(err, errors.ErrUnsupported) {
		a.logger.Debug("unsupported file type", "name", name)
		return nil
	}
	if err != nil {
		return err
	}
	if cfg.filter != nil {
		if m = cfg.filter(m); m == nil {
			a.logger.Debug("excluded", "name", name)
			return nil
		}
	}
	a.logger.Debug("add", "name", name, "arcname", m.Name)

	switch {
	case m.Type == TypeReg:
		f, err := os.Open(name)
		if err != nil {
			return err
		}
		defer f.Close()
		return a.AddFile(m, f)
	case m.IsDir():
		if err := a.AddFile(m, nil); err != nil {
			return err
		}
		if !cfg.recursive {
			return nil
		}
		return a.addChildren(name, arcname, cfg)
	default:
		return a.AddFile(m, nil)
	}
}

func (a *Archive) addChildren(dir, arcdir string, cfg *addConfig) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := a.add(filepath.Join(dir, e.Name()), path.Join(arcdir, e.Name()), cfg); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) isSelf(name string) bool {
	if a.self == nil {
		return false
	}
	info, err := os.Stat(name)
	return err == nil && os.SameFile(info, a.self)
}

// MemberFromFile builds a member from the file at name, stored under
// arcname (name when empty). Symlinks are described as links unless the
// archive dereferences them.
//
// A regular file whose inode was already returned by an earlier call is
// described as a hard link to the earlier member. Sockets and other
// unrepresentable types return an error wrapping errors.ErrUnsupported.
func (a *Archive) MemberFromFile(name, arcname string) (*Member, error) {
	if err := a.check(stateWrite); err != nil {
		return nil, err
	}
	if arcname == "" {
		arcname = name
	}
	arcname = filepath.ToSlash(strings.TrimPrefix(arcname, filepath.VolumeName(arcname)))
	arcname = strings.TrimLeft(NormalizeName(arcname), "/")

	stat := os.Lstat
	if a.cfg.dereference {
		stat = os.Stat
	}
	info, err := stat(name)
	if err != nil {
		return nil, err
	}
	st := platform.Stat(info)

	m := &Member{
		Name:    arcname,
		Mode:    modeBits(info.Mode()),
		UID:     st.UID,
		GID:     st.GID,
		ModTime: info.ModTime().Truncate(time.Second),
	}

	mode := info.Mode()
	switch {
	case mode.IsRegular():
		if !a.cfg.dereference && st.HasInode && st.Nlink > 1 {
			if target, ok := a.inodes[st.Inode]; ok {
				m.Type = TypeLink
				m.Linkname = target
				break
			}
		}
		m.Type = TypeReg
		m.Size = info.Size()
		if st.HasInode {
			a.inodes[st.Inode] = arcname
		}
	case mode.IsDir():
		m.Type = TypeDir
		m.Name = DirName(arcname)
	case mode&fs.ModeNamedPipe != 0:
		m.Type = TypeFifo
	case mode&fs.ModeSymlink != 0:
		m.Type = TypeSymlink
		if m.Linkname, err = os.Readlink(name); err != nil {
			return nil, err
		}
	case mode&fs.ModeCharDevice != 0:
		m.Type = TypeChar
	case mode&fs.ModeDevice != 0:
		m.Type = TypeBlock
	default:
		return nil, fmt.Errorf("tarfile: %s: %w file type %s", name, errors.ErrUnsupported, mode.Type())
	}

	if m.Type == TypeChar || m.Type == TypeBlock {
		m.Devmajor, m.Devminor = st.Devmajor, st.Devminor
	}
	m.Uname = a.names.UserName(m.UID)
	m.Gname = a.names.GroupName(m.GID)
	return m, nil
}

// modeBits converts the permission and special bits of an fs.FileMode to
// the Unix mode stored in a header.
func modeBits(mode fs.FileMode) int64 {
	bits := int64(mode.Perm())
	if mode&fs.ModeSetuid != 0 {
		bits |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		bits |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		bits |= 0o1000
	}
	return bits
}
