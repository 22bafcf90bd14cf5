package tarfile

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// List writes the member names to w, one per line. With verbose set each
// line resembles "ls -l": mode, owner, size or device numbers,
// modification time, name, and link target.
func (a *Archive) List(w io.Writer, verbose bool) error {
	for m, err := range a.All() {
		if err != nil {
			return err
		}
		if _, err := io.WriteString(w, formatEntry(m, verbose)); err != nil {
			return err
		}
	}
	return nil
}

func formatEntry(m *Member, verbose bool) string {
	if !verbose {
		return m.Name + "\n"
	}

	var b strings.Builder
	owner := m.Uname
	if owner == "" {
		owner = strconv.Itoa(m.UID)
	}
	group := m.Gname
	if group == "" {
		group = strconv.Itoa(m.GID)
	}
	b.WriteString(FileModeString(m))
	fmt.Fprintf(&b, " %s/%s ", owner, group)
	if m.IsChar() || m.IsBlock() {
		fmt.Fprintf(&b, "%10s", fmt.Sprintf("%d,%d", m.Devmajor, m.Devminor))
	} else {
		fmt.Fprintf(&b, "%10d", m.Size)
	}
	fmt.Fprintf(&b, " %s %s", m.ModTime.Local().Format("2006-01-02 15:04:05"), m.Name)
	switch {
	case m.IsSymlink():
		fmt.Fprintf(&b, " -> %s", m.Linkname)
	case m.IsLink():
		fmt.Fprintf(&b, " link to %s", m.Linkname)
	}
	b.WriteByte('\n')
	return b.String()
}

// FileModeString renders the type and permissions of m the way ls does,
// for example "drwxr-xr-x" or "-rwsr-xr-x".
func FileModeString(m *Member) string {
	var b [10]byte
	switch m.Type {
	case TypeDir:
		b[0] = 'd'
	case TypeSymlink:
		b[0] = 'l'
	case TypeLink:
		b[0] = 'h'
	case TypeChar:
		b[0] = 'c'
	case TypeBlock:
		b[0] = 'b'
	case TypeFifo:
		b[0] = 'p'
	default:
		b[0] = '-'
	}

	const rwx = "rwxrwxrwx"
	for i := range 9 {
		if m.Mode&(1<<uint(8-i)) != 0 {
			b[i+1] = rwx[i]
		} else {
			b[i+1] = '-'
		}
	}
	special := func(pos int, bit int64, set, unset byte) {
		if m.Mode&bit == 0 {
			return
		}
		if b[pos] == 'x' {
			b[pos] = set
		} else {
			b[pos] = unset
		}
	}
	special(3, 0o4000, 's', 'S')
	special(6, 0o2000, 's', 'S')
	special(9, 0o1000, 't', 'T')
	return string(b[:])
}
