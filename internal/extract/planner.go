// Package extract recreates archive members on the filesystem.
//
// Every path is resolved through an os.Root opened on the destination, so
// member names and symlinks inside the destination cannot reach outside it.
package extract

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/meigma/tarfile/internal/platform"
)

// Planner performs the filesystem operations of an extraction.
type Planner struct {
	root        *os.Root
	names       *platform.Names
	owner       bool
	directWrite bool
}

// Option configures a Planner.
type Option func(*Planner)

// WithOwner enables or disables ownership restoration. By default owners
// are restored only when running with an effective uid of 0.
func WithOwner(enabled bool) Option {
	return func(p *Planner) {
		p.owner = enabled
	}
}

// WithDirectWrites disables temp files and writes directly to the final path.
func WithDirectWrites(enabled bool) Option {
	return func(p *Planner) {
		p.directWrite = enabled
	}
}

// WithNames shares a user/group name cache between planners.
func WithNames(n *platform.Names) Option {
	return func(p *Planner) {
		if n != nil {
			p.names = n
		}
	}
}

// New opens a planner on dir, creating it if needed.
func New(dir string, opts ...Option) (*Planner, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return nil, fmt.Errorf("create destination %s: %w", dir, err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("open destination root %s: %w", dir, err)
	}
	p := &Planner{
		root:  root,
		names: &platform.Names{},
		owner: platform.Euid() == 0,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Close releases the destination root.
func (p *Planner) Close() error {
	return p.root.Close()
}

// Rel converts a member name into a path relative to the destination.
// Absolute names and names that climb out of the destination are rejected.
func Rel(name string) (string, error) {
	clean := path.Clean(strings.TrimSuffix(name, "/"))
	if name == "" || clean == "." || !fs.ValidPath(clean) {
		return "", &fs.PathError{Op: "extract", Path: name, Err: fs.ErrInvalid}
	}
	return filepath.FromSlash(clean), nil
}

// MkdirParents creates the parent directories of rel.
func (p *Planner) MkdirParents(rel string) error {
	dir := filepath.Dir(rel)
	if dir == "." {
		return nil
	}
	return p.root.MkdirAll(dir, 0o777)
}

// Mkdir creates directory rel. An existing directory is not an error.
func (p *Planner) Mkdir(rel string, perm fs.FileMode) error {
	err := p.root.Mkdir(rel, perm)
	if err == nil || !errors.Is(err, fs.ErrExist) {
		return err
	}
	info, statErr := p.root.Stat(rel)
	if statErr == nil && info.IsDir() {
		return nil
	}
	return err
}

// WriteFile creates rel with the contents of r.
//
// By default the data is written to a temporary file in the same directory
// and renamed into place, so a partially written file is never visible at
// the final path.
func (p *Planner) WriteFile(rel string, r io.Reader) error {
	if err := p.removeNonDir(rel); err != nil {
		return err
	}
	if p.directWrite {
		f, err := p.root.OpenFile(rel, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
		if err != nil {
			return err
		}
		if _, err := io.Copy(f, r); err != nil {
			_ = f.Close() //nolint:errcheck // best-effort cleanup
			return err
		}
		return f.Close()
	}

	f, tmp, err := createTempFile(p.root, filepath.Dir(rel), ".tarfile-")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()          //nolint:errcheck // best-effort cleanup
		_ = p.root.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := f.Close(); err != nil {
		_ = p.root.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := p.root.Rename(tmp, rel); err != nil {
		_ = p.root.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return err
	}
	return nil
}

// CopyFile copies the already extracted file src to rel.
func (p *Planner) CopyFile(src, rel string) error {
	f, err := platform.OpenRegular(p.root, src)
	if err != nil {
		return err
	}
	defer f.Close()
	return p.WriteFile(rel, f)
}

// Symlink creates rel pointing at target. The target is stored verbatim.
func (p *Planner) Symlink(target, rel string) error {
	if err := p.removeNonDir(rel); err != nil {
		return err
	}
	return p.root.Symlink(target, rel)
}

// Link creates rel as a hard link to the already extracted file target.
func (p *Planner) Link(target, rel string) error {
	if err := p.removeNonDir(rel); err != nil {
		return err
	}
	return p.root.Link(target, rel)
}

// Mkfifo creates a named pipe.
func (p *Planner) Mkfifo(rel string, perm fs.FileMode) error {
	return p.inParent(rel, func(dir *os.File, name string) error {
		return platform.Mkfifo(dir, name, perm)
	})
}

// Mknod creates a character (char) or block device.
func (p *Planner) Mknod(rel string, char bool, perm fs.FileMode, major, minor int64) error {
	return p.inParent(rel, func(dir *os.File, name string) error {
		return platform.Mknod(dir, name, char, perm, major, minor)
	})
}

// inParent clears rel and calls create with its parent directory, opened
// through the root, and its base name.
func (p *Planner) inParent(rel string, create func(dir *os.File, name string) error) error {
	if err := p.removeNonDir(rel); err != nil {
		return err
	}
	dir, err := p.root.Open(filepath.Dir(rel))
	if err != nil {
		return err
	}
	defer dir.Close()
	return create(dir, filepath.Base(rel))
}

// Chown sets the owner of rel. Names take precedence over numeric ids when
// they resolve on this system. Symlinks are changed themselves, not their
// targets. It is a no-op unless ownership restoration is enabled.
func (p *Planner) Chown(rel, uname, gname string, uid, gid int, symlink bool) error {
	if !p.owner {
		return nil
	}
	uid = p.names.UID(uname, uid)
	gid = p.names.GID(gname, gid)
	if symlink {
		return p.root.Lchown(rel, uid, gid)
	}
	return p.root.Chown(rel, uid, gid)
}

// Chmod sets the permission bits of rel.
func (p *Planner) Chmod(rel string, mode fs.FileMode) error {
	return p.root.Chmod(rel, mode)
}

// Chtimes sets the access and modification time of rel to mtime.
func (p *Planner) Chtimes(rel string, mtime time.Time) error {
	return p.root.Chtimes(rel, mtime, mtime)
}

// removeNonDir clears the way for a new file, leaving directories alone.
func (p *Planner) removeNonDir(rel string) error {
	info, err := p.root.Lstat(rel)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.IsDir() {
		return &fs.PathError{Op: "extract", Path: rel, Err: fs.ErrExist}
	}
	return p.root.Remove(rel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
