package tarfile

import (
	"github.com/meigma/tarfile/internal/sparse"
	"github.com/meigma/tarfile/internal/tartype"
)

// Member describes one archive entry.
type Member = tartype.Member

// Type is a member's type flag.
type Type = tartype.Type

// Type flags.
const (
	TypeReg         = tartype.TypeReg
	TypeRegA        = tartype.TypeRegA
	TypeLink        = tartype.TypeLink
	TypeSymlink     = tartype.TypeSymlink
	TypeChar        = tartype.TypeChar
	TypeBlock       = tartype.TypeBlock
	TypeDir         = tartype.TypeDir
	TypeFifo        = tartype.TypeFifo
	TypeCont        = tartype.TypeCont
	TypeGNULongName = tartype.TypeGNULongName
	TypeGNULongLink = tartype.TypeGNULongLink
	TypeGNUSparse   = tartype.TypeGNUSparse
)

// Archive geometry.
const (
	BlockSize  = tartype.BlockSize
	RecordSize = tartype.RecordSize

	// MaxOctalSize is the largest member size a POSIX header can hold.
	MaxOctalSize = tartype.MaxOctalSize
)

// SparseRegion is a stretch of stored data in a sparse file.
type SparseRegion = sparse.Region

// SparseMap describes the data and hole segments of a sparse member.
type SparseMap = sparse.Map

// NewSparseMap builds the map of a file of the given logical size whose
// data lives in regions. Everything outside the regions is a hole.
func NewSparseMap(regions []SparseRegion, size int64) (*SparseMap, error) {
	return sparse.Build(regions, size)
}

// NormalizeName cleans a member name the way the archive stores it: no
// "./" prefix, no duplicate slashes, "." and ".." resolved lexically.
func NormalizeName(name string) string {
	return tartype.NormalizeName(name)
}

// DirName returns the stored form of a directory name, which ends in "/".
func DirName(name string) string {
	return tartype.DirName(name)
}
