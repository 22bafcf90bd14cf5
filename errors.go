package tarfile

import (
	"errors"
	"fmt"

	"github.com/meigma/tarfile/internal/blockstream"
	"github.com/meigma/tarfile/internal/header"
	"github.com/meigma/tarfile/internal/index"
)

// Errors re-exported from internal packages.
var (
	// ErrCompression is returned when a compression envelope is unknown or
	// does not match the data.
	ErrCompression = blockstream.ErrCompression

	// ErrStream is returned for a backward seek on a forward-only stream.
	ErrStream = blockstream.ErrStream

	// ErrFieldOverflow is returned when a numeric header field cannot hold
	// a value.
	ErrFieldOverflow = header.ErrFieldOverflow

	// ErrInvalidIndex is returned when member index data cannot be parsed.
	ErrInvalidIndex = index.ErrInvalid
)

var (
	// ErrRead is returned when the archive is unreadable or corrupt.
	ErrRead = errors.New("tarfile: read error")

	// ErrExtract matches every *ExtractError.
	ErrExtract = errors.New("tarfile: extract error")

	// ErrNameTooLong is returned in POSIX mode for a name that cannot be
	// split into the prefix and name fields.
	ErrNameTooLong = errors.New("tarfile: name is too long")

	// ErrLinkTooLong is returned in POSIX mode for a link target longer than
	// the link field.
	ErrLinkTooLong = errors.New("tarfile: linkname is too long")

	// ErrFileTooLarge is returned in POSIX mode for members of 8 GiB or more.
	ErrFileTooLarge = errors.New("tarfile: file is too large (>= 8 GiB)")

	// ErrClosed is returned by operations on a closed archive.
	ErrClosed = errors.New("tarfile: archive is closed")

	// ErrBadMode is returned for an unknown mode string or an operation the
	// archive's mode does not permit.
	ErrBadMode = errors.New("tarfile: bad mode")

	// ErrNotFound is returned when no member has the requested name.
	ErrNotFound = errors.New("tarfile: member not found")

	// ErrNotRegular is returned by ExtractFile for members without data,
	// such as directories and devices.
	ErrNotRegular = errors.New("tarfile: member has no data")

	// ErrStaleIndex is returned when a member index was built from a
	// different archive.
	ErrStaleIndex = errors.New("tarfile: index does not match archive")
)

// ExtractError reports a failure to recreate part of one member: its
// owner, mode or times, a link, or a device node.
type ExtractError struct {
	Op   string
	Path string
	Err  error
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("tarfile: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *ExtractError) Unwrap() error { return e.Err }

// Is reports whether target is ErrExtract.
func (e *ExtractError) Is(target error) bool {
	return target == ErrExtract
}
