// Package tarfile reads and writes tar archives.
//
// It understands POSIX ustar headers and the GNU extensions found in the
// wild: long names and link targets stored as "././@LongLink" members,
// base-256 numeric fields for files of 8 GiB and more, and old-style
// sparse members. The whole stream may be wrapped in gzip, bzip2, xz or
// zstd compression.
//
// # Modes
//
// Archives are opened with a mode string:
//
//	"r" or "r:*"  read, detecting the compression
//	"r:"          read uncompressed
//	"r:gz"        read gzip ("bz2", "xz" and "zst" work the same way)
//	"a" or "a:"   append to an uncompressed archive
//	"w" or "w:"   write uncompressed
//	"w:gz"        write gzip
//	"r|*", "r|", "r|gz", "w|", "w|gz", ...
//	              stream modes: forward-only access, suitable for pipes
//
// In stream modes a member's data can only be read while the archive is
// positioned on it; seeking backwards returns [ErrStream].
//
// # Reading
//
//	a, err := tarfile.Open("backup.tar.gz", "r")
//	if err != nil {
//	    return err
//	}
//	defer a.Close()
//	for m, err := range a.All() {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(m.Name)
//	}
//
// # Writing
//
//	a, err := tarfile.Open("backup.tar.gz", "w:gz")
//	if err != nil {
//	    return err
//	}
//	if err := a.Add("src", "src"); err != nil {
//	    a.Close()
//	    return err
//	}
//	return a.Close()
//
// # Extraction errors
//
// Per-member extraction failures are graded by [WithErrorLevel]. At level
// 0 (the default) they are logged and skipped; at level 1 operating system
// errors are returned while [ExtractError]s are logged; at level 2 both are
// returned. Errors reading the archive itself always abort.
package tarfile
