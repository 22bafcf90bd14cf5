package index

import (
	"iter"

	"github.com/meigma/tarfile/internal/tartype"
)

// Table holds members in archive order. Duplicate names are allowed; name
// lookups resolve to the last member appended under that name, matching
// how extraction would leave the filesystem.
type Table struct {
	members []*tartype.Member
	last    map[string]int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{last: make(map[string]int)}
}

// Append adds m at the end of the table.
func (t *Table) Append(m *tartype.Member) {
	t.last[m.Name] = len(t.members)
	t.members = append(t.members, m)
}

// Len returns the number of members.
func (t *Table) Len() int { return len(t.members) }

// At returns the member at position i.
func (t *Table) At(i int) *tartype.Member { return t.members[i] }

// Get returns the last member named name.
func (t *Table) Get(name string) (*tartype.Member, bool) {
	i, ok := t.last[name]
	if !ok {
		return nil, false
	}
	return t.members[i], true
}

// GetBefore returns the last member named name among the first end members.
// It is used to resolve link targets, which must precede the link.
func (t *Table) GetBefore(name string, end int) (*tartype.Member, bool) {
	end = min(end, len(t.members))
	if i, ok := t.last[name]; ok && i < end {
		return t.members[i], true
	}
	for i := end - 1; i >= 0; i-- {
		if t.members[i].Name == name {
			return t.members[i], true
		}
	}
	return nil, false
}

// IndexOf returns the position of m, or -1 when m is not in the table.
func (t *Table) IndexOf(m *tartype.Member) int {
	for i := len(t.members) - 1; i >= 0; i-- {
		if t.members[i] == m {
			return i
		}
	}
	return -1
}

// Members returns the members in archive order. The slice is a copy; the
// members are shared.
func (t *Table) Members() []*tartype.Member {
	out := make([]*tartype.Member, len(t.members))
	copy(out, t.members)
	return out
}

// Names returns the member names in archive order.
func (t *Table) Names() []string {
	out := make([]string, len(t.members))
	for i, m := range t.members {
		out[i] = m.Name
	}
	return out
}

// All iterates over the members in archive order.
func (t *Table) All() iter.Seq2[int, *tartype.Member] {
	return func(yield func(int, *tartype.Member) bool) {
		for i, m := range t.members {
			if !yield(i, m) {
				return
			}
		}
	}
}
