package tarfile

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"github.com/meigma/tarfile/internal/extract"
)

// Extract recreates m below dest with its mode, times and, when running
// as root or with WithOwnership, its owner. Missing parent directories are created.
//
// Members whose names are absolute or climb out of dest are refused.
// Failures are returned or logged according to the error level; errors
// reading the archive are always returned.
func (a *Archive) Extract(m *Member, dest string) error {
	if err := a.check(stateRead); err != nil {
		return err
	}
	p, err := a.planner(dest)
	if err != nil {
		return err
	}
	defer p.Close()
	return a.grade(a.extractMember(p, m))
}

// ExtractAll extracts members below dest, or the whole archive when no
// members are given.
//
// Directories are created with owner-only permissions first so that their
// contents can be written, and receive their own mode, times and owner
// after everything else, deepest first.
func (a *Archive) ExtractAll(dest string, members ...*Member) error {
	if err := a.check(stateRead); err != nil {
		return err
	}
	p, err := a.planner(dest)
	if err != nil {
		return err
	}
	defer p.Close()

	var dirs []*Member
	visit := func(m *Member) error {
		if !m.IsDir() {
			return a.grade(a.extractMember(p, m))
		}
		dirs = append(dirs, m)
		rel, err := extract.Rel(m.Name)
		if err != nil {
			return a.grade(err)
		}
		a.logger.Info("extract", "name", m.Name)
		if err := p.MkdirParents(rel); err != nil {
			return a.grade(err)
		}
		return a.grade(p.Mkdir(rel, 0o700))
	}

	if len(members) > 0 {
		for _, m := range members {
			if err := visit(m); err != nil {
				return err
			}
		}
	} else {
		for m, err := range a.All() {
			if err != nil {
				return err
			}
			if err := visit(m); err != nil {
				return err
			}
		}
	}

	slices.SortFunc(dirs, func(x, y *Member) int { return strings.Compare(y.Name, x.Name) })
	for _, m := range dirs {
		rel, err := extract.Rel(m.Name)
		if err != nil {
			continue
		}
		if err := a.grade(a.applyAttrs(p, m, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (a *Archive) planner(dest string) (*extract.Planner, error) {
	return extract.New(dest,
		extract.WithNames(a.names),
		extract.WithDirectWrites(a.cfg.directWrites),
		extract.WithOwner(a.cfg.owner),
	)
}

// grade applies the error level to an extraction failure: it returns the
// errors the level asks for and logs the rest.
func (a *Archive) grade(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRead) || errors.Is(err, ErrStream) || errors.Is(err, ErrCompression) || errors.Is(err, ErrClosed) {
		return err
	}
	var xerr *ExtractError
	if errors.As(err, &xerr) {
		if a.cfg.errorLevel > 1 {
			return err
		}
		a.logger.Warn("extract failed", "op", xerr.Op, "path", xerr.Path, "error", xerr.Err)
		return nil
	}
	if isOSError(err) {
		if a.cfg.errorLevel > 0 {
			return err
		}
		a.logger.Warn("extract failed", "error", err)
		return nil
	}
	return err
}

func isOSError(err error) bool {
	var (
		pathErr    *fs.PathError
		linkErr    *os.LinkError
		syscallErr *os.SyscallError
	)
	return errors.As(err, &pathErr) || errors.As(err, &linkErr) || errors.As(err, &syscallErr)
}

// extractMember recreates one member without applying the error level.
func (a *Archive) extractMember(p *extract.Planner, m *Member) error {
	rel, err := extract.Rel(m.Name)
	if err != nil {
		return err
	}
	if m.IsLink() || m.IsSymlink() {
		a.logger.Info("extract", "name", m.Name, "link", m.Linkname)
	} else {
		a.logger.Info("extract", "name", m.Name)
	}

	if err := p.MkdirParents(rel); err != nil {
		return err
	}
	if err := a.create(p, m, rel); err != nil {
		return err
	}
	return a.applyAttrs(p, m, rel)
}

// create makes the filesystem object for m at rel.
func (a *Archive) create(p *extract.Planner, m *Member, rel string) error {
	switch {
	case m.IsReg():
		if !m.Type.Known() {
			a.logger.Debug("unknown file type, extracted as regular file", "name", m.Name, "type", m.Type.String())
		}
		return a.writeFile(p, m, rel)
	case m.IsDir():
		return p.Mkdir(rel, 0o777)
	case m.IsFifo():
		return wrapExtract("mkfifo", m.Name, p.Mkfifo(rel, m.FileMode()))
	case m.IsChar() || m.IsBlock():
		return wrapExtract("mknod", m.Name, p.Mknod(rel, m.IsChar(), m.FileMode(), m.Devmajor, m.Devminor))
	case m.IsLink() || m.IsSymlink():
		return a.makeLink(p, m, rel)
	default:
		return a.writeFile(p, m, rel)
	}
}

func (a *Archive) writeFile(p *extract.Planner, m *Member, rel string) error {
	fr, err := a.ExtractFile(m)
	if err != nil {
		return err
	}
	defer fr.Close()
	return p.WriteFile(rel, fr)
}

// makeLink creates a symlink or hard link. When links are emulated or not
// supported, the target member is extracted in its place; if that is not
// possible the already extracted target file is copied.
func (a *Archive) makeLink(p *extract.Planner, m *Member, rel string) error {
	if !a.cfg.linkEmulation {
		var err error
		if m.IsSymlink() {
			err = p.Symlink(m.Linkname, rel)
		} else {
			err = a.hardlink(p, m, rel)
		}
		if !errors.Is(err, errors.ErrUnsupported) {
			if err != nil && m.IsSymlink() {
				return wrapExtract("symlink", m.Name, err)
			}
			return err
		}
	}

	// In stream modes earlier members cannot be read again.
	target, err := a.linkTarget(m)
	if err == nil && !a.mode.stream {
		if target.IsLink() || target.IsSymlink() || target.IsDir() {
			return wrapExtract("link", m.Name, fmt.Errorf("cannot emulate link to %s", target))
		}
		return a.writeFile(p, target, rel)
	}
	src, relErr := extract.Rel(linkPath(m))
	if relErr != nil {
		return wrapExtract("link", m.Name, relErr)
	}
	if err := p.CopyFile(src, rel); err != nil {
		return wrapExtract("link", m.Name, fmt.Errorf("link could not be created: %w", err))
	}
	return nil
}

func (a *Archive) hardlink(p *extract.Planner, m *Member, rel string) error {
	target, err := extract.Rel(m.Linkname)
	if err != nil {
		return err
	}
	return p.Link(target, rel)
}

// applyAttrs restores owner, mode and modification time. Mode and time
// are not applied to symlinks.
func (a *Archive) applyAttrs(p *extract.Planner, m *Member, rel string) error {
	if err := p.Chown(rel, m.Uname, m.Gname, m.UID, m.GID, m.IsSymlink()); err != nil {
		return wrapExtract("chown", m.Name, err)
	}
	if m.IsSymlink() {
		return nil
	}
	if err := p.Chmod(rel, m.FileMode()&(fs.ModePerm|fs.ModeSetuid|fs.ModeSetgid|fs.ModeSticky)); err != nil {
		return wrapExtract("chmod", m.Name, err)
	}
	if err := p.Chtimes(rel, m.ModTime); err != nil {
		return wrapExtract("utime", m.Name, err)
	}
	return nil
}

func wrapExtract(op, name string, err error) error {
	if err == nil {
		return nil
	}
	return &ExtractError{Op: op, Path: name, Err: err}
}
