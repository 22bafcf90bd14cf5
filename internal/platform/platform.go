package platform

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
	"sync"
)

// InodeKey identifies a file across hard links.
type InodeKey struct {
	Dev uint64
	Ino uint64
}

// StatInfo is the portable subset of a stat result.
type StatInfo struct {
	UID, GID int

	Inode    InodeKey
	HasInode bool
	Nlink    uint64

	Devmajor int64
	Devminor int64
}

// Names caches user and group name lookups in both directions.
// The zero value is ready to use and safe for concurrent use.
type Names struct {
	mu     sync.Mutex
	users  map[int]string
	groups map[int]string
	uids   map[string]int
	gids   map[string]int
}

// UserName returns the name of uid, or "" when it cannot be resolved.
func (n *Names) UserName(uid int) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if name, ok := n.users[uid]; ok {
		return name
	}
	var name string
	if u, err := user.LookupId(strconv.Itoa(uid)); err == nil {
		name = u.Username
	}
	if n.users == nil {
		n.users = make(map[int]string)
	}
	n.users[uid] = name
	return name
}

// GroupName returns the name of gid, or "" when it cannot be resolved.
func (n *Names) GroupName(gid int) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	if name, ok := n.groups[gid]; ok {
		return name
	}
	var name string
	if g, err := user.LookupGroupId(strconv.Itoa(gid)); err == nil {
		name = g.Name
	}
	if n.groups == nil {
		n.groups = make(map[int]string)
	}
	n.groups[gid] = name
	return name
}

// UID resolves a user name, returning fallback when it is unknown.
func (n *Names) UID(name string, fallback int) int {
	if name == "" {
		return fallback
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.uids[name]; ok {
		if id < 0 {
			return fallback
		}
		return id
	}
	id := -1
	if u, err := user.Lookup(name); err == nil {
		if v, err := strconv.Atoi(u.Uid); err == nil {
			id = v
		}
	}
	if n.uids == nil {
		n.uids = make(map[string]int)
	}
	n.uids[name] = id
	if id < 0 {
		return fallback
	}
	return id
}

// GID resolves a group name, returning fallback when it is unknown.
func (n *Names) GID(name string, fallback int) int {
	if name == "" {
		return fallback
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if id, ok := n.gids[name]; ok {
		if id < 0 {
			return fallback
		}
		return id
	}
	id := -1
	if g, err := user.LookupGroup(name); err == nil {
		if v, err := strconv.Atoi(g.Gid); err == nil {
			id = v
		}
	}
	if n.gids == nil {
		n.gids = make(map[string]int)
	}
	n.gids[name] = id
	if id < 0 {
		return fallback
	}
	return id
}

// checkRegular closes f and fails unless it is a regular file.
func checkRegular(f *os.File, name string) (*os.File, error) {
	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // best-effort cleanup
		return nil, err
	}
	if !info.Mode().IsRegular() {
		f.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("%s: %w", name, ErrNotRegular)
	}
	return f, nil
}
