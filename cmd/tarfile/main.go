// Command tarfile lists, extracts, creates and checks tar archives.
//
//	tarfile list [-v] ARCHIVE
//	tarfile extract [-C DIR] [-errorlevel N] ARCHIVE [MEMBER...]
//	tarfile create [-z gz|bz2|xz|zst] [-posix] [-h] ARCHIVE PATH...
//
// Without -z, create compresses according to the ARCHIVE extension.
//	tarfile test [-j N] ARCHIVE...
//	tarfile sum ARCHIVE
//
// ARCHIVE may be an http:// or https:// URL for list, extract, test and sum.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/tarfile"
	tarhttp "github.com/meigma/tarfile/http"
	"github.com/meigma/tarfile/internal/blockstream"
)

type command struct {
	name  string
	usage string
	run   func(args []string, logger *slog.Logger) error
}

var commands = []command{
	{"list", "list [-v] ARCHIVE", runList},
	{"extract", "extract [-C DIR] [-errorlevel N] ARCHIVE [MEMBER...]", runExtract},
	{"create", "create [-z COMP] [-posix] [-h] ARCHIVE PATH...", runCreate},
	{"test", "test [-j N] ARCHIVE...", runTest},
	{"sum", "sum ARCHIVE", runSum},
}

func main() {
	verbose := flag.Bool("debug", false, "log debug output to stderr")
	flag.Usage = usage
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	for _, c := range commands {
		if c.name != name {
			continue
		}
		if err := c.run(args, logger); err != nil {
			fmt.Fprintf(os.Stderr, "tarfile %s: %v\n", name, err)
			os.Exit(1)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "tarfile: unknown command %q\n", name)
	usage()
	os.Exit(2)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: tarfile [-debug] COMMAND [ARGS]")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  tarfile %s\n", c.usage)
	}
}

// openArchive opens a local path or an HTTP URL for reading.
func openArchive(name string, logger *slog.Logger, opts ...tarfile.Option) (*tarfile.Archive, error) {
	opts = append(opts, tarfile.WithLogger(logger))
	if !isURL(name) {
		return tarfile.Open(name, "r:*", opts...)
	}
	src, err := tarhttp.NewSource(name, tarhttp.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return tarhttp.Open(src, "r:*", opts...)
}

func isURL(name string) bool {
	return strings.HasPrefix(name, "http://") || strings.HasPrefix(name, "https://")
}

func runList(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	verbose := fs.Bool("v", false, "long listing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one archive")
	}
	return list(os.Stdout, fs.Arg(0), *verbose, logger)
}

func list(w io.Writer, name string, verbose bool, logger *slog.Logger) error {
	a, err := openArchive(name, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return a.List(w, verbose)
}

func runExtract(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	dir := fs.String("C", ".", "destination directory")
	errorLevel := fs.Int("errorlevel", 1, "0 logs all extraction errors, 1 fails on OS errors, 2 also fails on member errors")
	emulate := fs.Bool("emulate-links", false, "copy link targets instead of creating links")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("expected an archive")
	}
	return extract(fs.Arg(0), *dir, fs.Args()[1:], logger,
		tarfile.WithErrorLevel(*errorLevel), tarfile.WithLinkEmulation(*emulate))
}

func extract(name, dir string, members []string, logger *slog.Logger, opts ...tarfile.Option) error {
	a, err := openArchive(name, logger, opts...)
	if err != nil {
		return err
	}
	defer a.Close()

	if len(members) == 0 {
		return a.ExtractAll(dir)
	}
	selected := make([]*tarfile.Member, 0, len(members))
	for _, n := range members {
		m, err := a.Member(n)
		if err != nil {
			return err
		}
		selected = append(selected, m)
	}
	return a.ExtractAll(dir, selected...)
}

func runCreate(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	comp := fs.String("z", "", "compression: gz, bz2, xz or zst (default from the archive name)")
	posix := fs.Bool("posix", false, "write strict POSIX ustar headers")
	deref := fs.Bool("h", false, "archive the targets of symbolic links")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		return errors.New("expected an archive and at least one path")
	}
	mode := "w:" + *comp
	if *comp == "" {
		mode = createMode(fs.Arg(0))
	}
	return create(fs.Arg(0), mode, fs.Args()[1:], logger,
		tarfile.WithPOSIX(*posix), tarfile.WithDereference(*deref))
}

// createMode picks the write mode from the archive name, so that
// out.tar.gz and out.tgz are compressed.
func createMode(name string) string {
	c := blockstream.FromExt(name)
	if c == blockstream.CompressionNone {
		return "w:"
	}
	return "w:" + c.String()
}

func create(name, mode string, paths []string, logger *slog.Logger, opts ...tarfile.Option) (err error) {
	a, err := tarfile.Open(name, mode, append(opts, tarfile.WithLogger(logger))...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); err == nil {
			err = cerr
		}
	}()
	for _, p := range paths {
		if err := a.Add(p, ""); err != nil {
			return err
		}
	}
	return nil
}
