package tarfile

import (
	"log/slog"

	"github.com/meigma/tarfile/internal/blockstream"
	"github.com/meigma/tarfile/internal/platform"
)

// DefaultMaxLongName is the default limit on GNU long name and long link
// payloads.
const DefaultMaxLongName = 1 << 20

// Option configures an Archive.
type Option func(*config)

type config struct {
	ignoreZeros      bool
	errorLevel       int
	posix            bool
	dereference      bool
	level            int
	bufSize          int
	linkEmulation    bool
	directWrites     bool
	owner            bool
	index            []byte
	maxLongName      int64
	maxDecoderMemory uint64
	logger           *slog.Logger
}

func defaultConfig() config {
	return config{
		level:       blockstream.DefaultLevel,
		bufSize:     blockstream.DefaultBufferSize,
		maxLongName: DefaultMaxLongName,
		owner:       platform.Euid() == 0,
	}
}

// WithIgnoreZeros skips zero and unreadable blocks instead of treating
// them as the end of the archive. Use it for concatenated archives and
// archives with damaged headers.
func WithIgnoreZeros(enabled bool) Option {
	return func(c *config) {
		c.ignoreZeros = enabled
	}
}

// WithErrorLevel sets which extraction failures are returned:
//
//	0  none; everything is logged (default)
//	1  operating system errors; ExtractErrors are logged
//	2  all
func WithErrorLevel(level int) Option {
	return func(c *config) {
		c.errorLevel = level
	}
}

// WithPOSIX restricts writing to strict POSIX ustar headers. Names that do
// not fit the prefix and name fields, long link targets and files of 8 GiB
// or more are rejected instead of using GNU extensions.
func WithPOSIX(enabled bool) Option {
	return func(c *config) {
		c.posix = enabled
	}
}

// WithDereference makes Add archive the targets of symlinks instead of the
// links themselves. Hard link detection is disabled.
func WithDereference(enabled bool) Option {
	return func(c *config) {
		c.dereference = enabled
	}
}

// WithCompressLevel sets the compression level used when writing.
func WithCompressLevel(level int) Option {
	return func(c *config) {
		c.level = level
	}
}

// WithBufferSize sets the size of the chunks handed to the underlying
// writer in stream modes. Non-positive values keep the default of one
// record.
func WithBufferSize(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.bufSize = n
		}
	}
}

// WithLinkEmulation makes extraction copy link targets instead of creating
// symlinks and hard links, as on systems without link support.
func WithLinkEmulation(enabled bool) Option {
	return func(c *config) {
		c.linkEmulation = enabled
	}
}

// WithDirectWrites makes extraction write files in place instead of
// through a temporary file and rename.
func WithDirectWrites(enabled bool) Option {
	return func(c *config) {
		c.directWrites = enabled
	}
}

// WithOwnership sets whether extraction restores the owner and group of
// members. The default is to restore them only when running as root.
func WithOwnership(enabled bool) Option {
	return func(c *config) {
		c.owner = enabled
	}
}

// WithIndex supplies a member index previously produced by WriteIndex.
// Opening for reading then skips the member scan. The index must have been
// built from the same archive; otherwise Open returns ErrStaleIndex.
func WithIndex(data []byte) Option {
	return func(c *config) {
		c.index = data
	}
}

// WithMaxLongName limits the size of GNU long name and long link payloads.
// Set limit to 0 to use the default.
func WithMaxLongName(limit int64) Option {
	return func(c *config) {
		if limit > 0 {
			c.maxLongName = limit
		}
	}
}

// WithMaxDecoderMemory limits the memory the zstd decoder may allocate.
// Set limit to 0 to disable.
func WithMaxDecoderMemory(limit uint64) Option {
	return func(c *config) {
		c.maxDecoderMemory = limit
	}
}

// WithLogger sets a logger for the archive.
//
// Debug records describe damaged blocks, bad checksums and skipped files;
// Info records name each extracted member; Warn records report extraction
// failures that the error level suppresses.
//
// If nil, a discard logger is used (default behavior).
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// AddOption configures Add.
type AddOption func(*addConfig)

type addConfig struct {
	recursive bool
	filter    func(*Member) *Member
}

// AddNonRecursive adds a directory without its contents.
func AddNonRecursive() AddOption {
	return func(c *addConfig) {
		c.recursive = false
	}
}

// AddWithFilter calls fn for every member before it is written. fn may
// modify and return the member, or return nil to exclude it. Excluding a
// directory also excludes its contents.
func AddWithFilter(fn func(*Member) *Member) AddOption {
	return func(c *addConfig) {
		c.filter = fn
	}
}
