package main

import (
	_ "crypto/sha256" // digest.Canonical
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"

	"github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/meigma/tarfile"
)

type testResult struct {
	members int
	bytes   int64
}

func runTest(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	jobs := fs.Int("j", runtime.GOMAXPROCS(0), "archives checked in parallel")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("expected at least one archive")
	}
	return test(os.Stdout, fs.Args(), *jobs, logger)
}

// test reads every member of each archive. Archives are checked
// concurrently; results are printed in argument order.
func test(w io.Writer, names []string, jobs int, logger *slog.Logger) error {
	results := make([]testResult, len(names))
	errs := make([]error, len(names))

	var g errgroup.Group
	g.SetLimit(max(jobs, 1))
	for i, name := range names {
		g.Go(func() error {
			results[i], errs[i] = testArchive(name, logger)
			return nil
		})
	}
	g.Wait() //nolint:errcheck // per-archive errors are collected in errs

	var failed int
	for i, name := range names {
		if errs[i] != nil {
			failed++
			fmt.Fprintf(w, "FAIL %s: %v\n", name, errs[i])
			continue
		}
		fmt.Fprintf(w, "ok   %s (%d members, %d bytes)\n", name, results[i].members, results[i].bytes)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d archives failed", failed, len(names))
	}
	return nil
}

func testArchive(name string, logger *slog.Logger) (testResult, error) {
	a, err := openArchive(name, logger)
	if err != nil {
		return testResult{}, err
	}
	defer a.Close()

	var res testResult
	for m, err := range a.All() {
		if err != nil {
			return res, err
		}
		res.members++
		if !m.HasData() {
			continue
		}
		n, err := drain(a, m)
		res.bytes += n
		if err != nil {
			return res, fmt.Errorf("%s: %w", m.Name, err)
		}
	}
	return res, nil
}

func drain(a *tarfile.Archive, m *tarfile.Member) (int64, error) {
	fr, err := a.ExtractFile(m)
	if err != nil {
		return 0, err
	}
	defer fr.Close()
	return io.Copy(io.Discard, fr)
}

func runSum(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("sum", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("expected one archive")
	}
	return sum(os.Stdout, fs.Arg(0), logger)
}

// sum prints the content digest of every regular member, in the
// "DIGEST  NAME" layout of sha256sum.
func sum(w io.Writer, name string, logger *slog.Logger) error {
	a, err := openArchive(name, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	for m, err := range a.All() {
		if err != nil {
			return err
		}
		if !m.IsReg() {
			continue
		}
		d, err := memberDigest(a, m)
		if err != nil {
			return fmt.Errorf("%s: %w", m.Name, err)
		}
		fmt.Fprintf(w, "%s  %s\n", d, m.Name)
	}
	return nil
}

func memberDigest(a *tarfile.Archive, m *tarfile.Member) (digest.Digest, error) {
	fr, err := a.ExtractFile(m)
	if err != nil {
		return "", err
	}
	defer fr.Close()
	return digest.Canonical.FromReader(fr)
}
