package tarfile

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"

	"github.com/meigma/tarfile/internal/blockstream"
	"github.com/meigma/tarfile/internal/index"
	"github.com/meigma/tarfile/internal/platform"
	"github.com/meigma/tarfile/internal/sizing"
)

type state uint8

const (
	stateRead state = iota
	stateWrite
	stateClosed
)

// Archive is an open tar archive.
//
// An Archive is not safe for concurrent use.
type Archive struct {
	cfg  config
	mode modeSpec
	name string

	state state
	r     *blockstream.Reader
	w     *blockstream.Writer

	// closer is the file the archive opened itself; external readers and
	// writers are never closed.
	closer io.Closer

	table  *index.Table
	offset int64
	loaded bool
	first  *Member
	head   []byte

	names  *platform.Names
	inodes map[platform.InodeKey]string
	self   os.FileInfo

	logger *slog.Logger
}

func newArchive(mode modeSpec, name string, opts []Option) *Archive {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archive{
		cfg:    cfg,
		mode:   mode,
		name:   name,
		table:  index.NewTable(),
		names:  &platform.Names{},
		inodes: make(map[platform.InodeKey]string),
		logger: logger,
	}
}

// Name returns the file name the archive was opened with, or "" for
// archives opened on a reader or writer.
func (a *Archive) Name() string { return a.name }

// Mode returns the normalized mode string, such as "r:gz" or "w|".
func (a *Archive) Mode() string { return a.mode.String() }

// Compression returns the name of the compression in use: "tar", "gz",
// "bz2", "xz" or "zst".
func (a *Archive) Compression() string {
	switch {
	case a.r != nil:
		return a.r.Compression().String()
	case a.w != nil:
		return a.w.Compression().String()
	default:
		return a.mode.comp.String()
	}
}

// Offset returns the logical position of the next header to read or write.
func (a *Archive) Offset() int64 { return a.offset }

func (a *Archive) check(want ...state) error {
	if a.state == stateClosed {
		return ErrClosed
	}
	for _, s := range want {
		if a.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: operation not permitted in mode %q", ErrBadMode, a.mode)
}

// Close finishes the archive. In write and append modes it writes the
// two-block end marker and pads the archive to a record boundary. A file
// opened by name is closed; readers and writers passed in are not.
// Close is idempotent.
func (a *Archive) Close() error {
	if a.state == stateClosed {
		return nil
	}
	writing := a.state == stateWrite
	a.state = stateClosed

	var errs []error
	if writing {
		errs = append(errs, a.writeTrailer())
		errs = append(errs, a.w.Close())
		a.logger.Debug("archive written", "name", a.name, "compression", a.w.Compression().String(),
			"bytes", a.offset, "stored", a.w.RawPos())
	}
	if a.r != nil {
		a.logger.Debug("archive read", "name", a.name, "compression", a.r.Compression().String(),
			"bytes", a.r.Tell(), "stored", a.r.RawPos())
		errs = append(errs, a.r.Close())
	}
	if a.closer != nil {
		errs = append(errs, a.closer.Close())
	}
	return errors.Join(errs...)
}

func (a *Archive) writeTrailer() error {
	end := 2 * BlockSize
	end += int(sizing.RecordPad(a.offset + int64(end)))
	if _, err := a.w.Write(make([]byte, end)); err != nil {
		return err
	}
	a.offset += int64(end)
	return nil
}

// Next returns the next member of an archive opened for reading, or nil
// at the end of the archive.
func (a *Archive) Next() (*Member, error) {
	if err := a.check(stateRead); err != nil {
		return nil, err
	}
	if a.first != nil {
		m := a.first
		a.first = nil
		return m, nil
	}
	return a.readNext()
}

// load reads the remaining members.
func (a *Archive) load() error {
	a.first = nil
	for !a.loaded {
		if _, err := a.readNext(); err != nil {
			return err
		}
	}
	return nil
}

// Members returns every member in archive order. When reading, the rest
// of the archive is scanned first.
func (a *Archive) Members() ([]*Member, error) {
	if err := a.check(stateRead, stateWrite); err != nil {
		return nil, err
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	return a.table.Members(), nil
}

// Names returns the names of every member in archive order.
func (a *Archive) Names() ([]string, error) {
	if err := a.check(stateRead, stateWrite); err != nil {
		return nil, err
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	return a.table.Names(), nil
}

// Member returns the member called name. When several members share a
// name the last one wins. A directory may be named with or without its
// trailing slash.
func (a *Archive) Member(name string) (*Member, error) {
	if err := a.check(stateRead, stateWrite); err != nil {
		return nil, err
	}
	if err := a.load(); err != nil {
		return nil, err
	}
	return a.lookup(name, a.table.Len())
}

// lookup finds name among the first end members.
func (a *Archive) lookup(name string, end int) (*Member, error) {
	get := a.table.Get
	if end < a.table.Len() {
		get = func(n string) (*Member, bool) { return a.table.GetBefore(n, end) }
	}
	norm := NormalizeName(name)
	if m, ok := get(norm); ok {
		return m, nil
	}
	if m, ok := get(DirName(norm)); ok {
		return m, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// All iterates over the members in archive order, reading headers as
// needed. Members already read are yielded again from the table, so All
// may be called repeatedly. Iteration stops after the first error.
func (a *Archive) All() iter.Seq2[*Member, error] {
	return func(yield func(*Member, error) bool) {
		if err := a.check(stateRead, stateWrite); err != nil {
			yield(nil, err)
			return
		}
		for i := 0; ; i++ {
			if i < a.table.Len() {
				m := a.table.At(i)
				if m == a.first {
					a.first = nil
				}
				if !yield(m, nil) {
					return
				}
				continue
			}
			if a.loaded {
				return
			}
			m, err := a.readNext()
			if err != nil {
				yield(nil, err)
				return
			}
			if m == nil {
				return
			}
			if !yield(m, nil) {
				return
			}
		}
	}
}
