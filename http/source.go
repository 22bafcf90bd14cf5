// Package http reads remote tar archives through HTTP range requests.
//
// A Source turns a URL into a seekable reader, so archives served by any
// range-capable HTTP server can be opened with random member access:
//
//	src, err := http.NewSource(url)
//	if err != nil { ... }
//	a, err := http.Open(src, "r:*")
package http //nolint:revive // intentional naming for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/meigma/tarfile"
)

// DefaultReadAhead is the size of the window fetched for small reads.
// Tar reading issues many block-sized reads, so each request fetches a
// whole window and serves the following reads from it.
const DefaultReadAhead = 256 << 10

// ErrRangeUnsupported is returned when the server ignores Range headers.
var ErrRangeUnsupported = errors.New("http: range requests not supported")

// Source implements random access reads via HTTP range requests.
// It is safe for concurrent use.
type Source struct {
	url                   string
	client                *nethttp.Client
	headers               nethttp.Header
	size                  int64
	etag                  string
	lastModified          string
	useConditionalHeaders bool
	readAhead             int64
	logger                *slog.Logger

	mu      sync.Mutex
	win     []byte
	winOff  int64
	fetches int
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithConditionalHeaders makes range reads conditional on the ETag or
// Last-Modified value seen when the Source was created, so a replaced
// archive fails instead of mixing old and new bytes.
func WithConditionalHeaders() Option {
	return func(s *Source) {
		s.useConditionalHeaders = true
	}
}

// WithReadAhead sets the read-ahead window. Zero disables read-ahead.
func WithReadAhead(n int64) Option {
	return func(s *Source) {
		s.readAhead = max(n, 0)
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// NewSource creates a Source backed by HTTP range requests.
// It probes the remote to determine the content size.
func NewSource(url string, opts ...Option) (*Source, error) {
	s := &Source{
		url:       url,
		client:    nethttp.DefaultClient,
		readAhead: DefaultReadAhead,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	size, etag, lastModified, err := s.fetchMetadata()
	if err != nil {
		return nil, err
	}
	s.size = size
	s.etag = etag
	s.lastModified = lastModified
	return s, nil
}

// Open opens the remote archive for reading. mode must be a read mode;
// seekable modes get random member access, stream modes read forward.
func Open(s *Source, mode string, opts ...tarfile.Option) (*tarfile.Archive, error) {
	return tarfile.OpenReader(s.Reader(), mode, opts...)
}

// Size returns the total size of the remote content.
func (s *Source) Size() int64 {
	return s.size
}

// Reader returns a new seekable reader over the whole remote content.
func (s *Source) Reader() *io.SectionReader {
	return io.NewSectionReader(s, 0, s.size)
}

// Fetches returns the number of range requests issued by ReadAt.
func (s *Source) Fetches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fetches
}

// ReadAt reads len(p) bytes at off. It implements [io.ReaderAt]. If fewer
// bytes are available than requested, it returns the count with io.EOF.
func (s *Source) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= s.size {
		return 0, io.EOF
	}
	want := min(int64(len(p)), s.size-off)

	s.mu.Lock()
	defer s.mu.Unlock()

	if n, ok := s.fromWindow(p[:want], off); ok {
		return n, eofIfShort(n, len(p))
	}
	if want >= s.readAhead {
		n, err := s.fetch(p[:want], off)
		if err != nil {
			return n, err
		}
		return n, eofIfShort(n, len(p))
	}

	size := min(s.readAhead, s.size-off)
	if int64(cap(s.win)) < size {
		s.win = make([]byte, size)
	}
	s.win = s.win[:size]
	n, err := s.fetch(s.win, off)
	if err != nil {
		s.win = s.win[:0]
		return 0, err
	}
	s.win = s.win[:n]
	s.winOff = off
	n = copy(p[:want], s.win)
	return n, eofIfShort(n, len(p))
}

// fromWindow serves p from the read-ahead window when it covers the range.
func (s *Source) fromWindow(p []byte, off int64) (int, bool) {
	if off < s.winOff || off+int64(len(p)) > s.winOff+int64(len(s.win)) {
		return 0, false
	}
	return copy(p, s.win[off-s.winOff:]), true
}

func eofIfShort(n, want int) error {
	if n < want {
		return io.EOF
	}
	return nil
}

// fetch fills p from a single range request starting at off.
func (s *Source) fetch(p []byte, off int64) (int, error) {
	end := off + int64(len(p)) - 1
	s.fetches++
	s.logger.Debug("range request", "url", s.url, "off", off, "len", len(p))

	resp, err := s.rangeRequest(off, end, true)
	if err != nil {
		return 0, err
	}
	if resp.StatusCode == nethttp.StatusPreconditionFailed && s.hasConditionalHeaders() {
		return 0, closeWith(resp, fmt.Errorf("remote content changed: %s", resp.Status))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case nethttp.StatusOK:
		return 0, ErrRangeUnsupported
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}
	return io.ReadFull(resp.Body, p)
}

func closeWith(resp *nethttp.Response, err error) error {
	_ = resp.Body.Close()
	return err
}

// fetchMetadata retrieves the content size and cache validators.
// It first attempts a HEAD request, then verifies with a range probe.
func (s *Source) fetchMetadata() (size int64, etag, lastModified string, err error) {
	size = -1

	if resp, headErr := s.doHead(); headErr == nil {
		size = resp.ContentLength
		etag = resp.Header.Get("ETag")
		lastModified = resp.Header.Get("Last-Modified")
		resp.Body.Close()
	}

	rangeSize, rangeETag, rangeLastModified, err := s.rangeProbe()
	if err != nil {
		return 0, "", "", err
	}
	if size > 0 && size != rangeSize {
		return 0, "", "", fmt.Errorf("content size mismatch: head=%d range=%d", size, rangeSize)
	}
	if etag == "" {
		etag = rangeETag
	}
	if lastModified == "" {
		lastModified = rangeLastModified
	}
	return rangeSize, etag, lastModified, nil
}

// rangeProbe checks range support and reads the size from Content-Range.
func (s *Source) rangeProbe() (size int64, etag, lastModified string, err error) {
	req, err := s.newRequest(nethttp.MethodGet, false)
	if err != nil {
		return 0, "", "", err
	}
	req.Header.Set("Range", "bytes=0-0")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, "", "", err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // best-effort drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
	case nethttp.StatusRequestedRangeNotSatisfiable:
		// Empty content: the server reports the size as "bytes */0".
		size, err = parseUnsatisfiedRange(resp.Header.Get("Content-Range"))
		return size, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), err
	case nethttp.StatusOK:
		return 0, "", "", ErrRangeUnsupported
	default:
		return 0, "", "", fmt.Errorf("range probe failed: %s", resp.Status)
	}

	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return 0, "", "", errors.New("range probe missing Content-Range")
	}
	size, err = parseContentRange(crange)
	if err != nil {
		return 0, "", "", err
	}
	return size, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}

func (s *Source) doHead() (*nethttp.Response, error) {
	req, err := s.newRequest(nethttp.MethodHead, false)
	if err != nil {
		return nil, err
	}
	return s.client.Do(req)
}

func (s *Source) newRequest(method string, withConditions bool) (*nethttp.Request, error) {
	req, err := nethttp.NewRequestWithContext(context.Background(), method, s.url, nethttp.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	// Compressed archives are decoded by the reader; the transport must
	// hand over the raw bytes.
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if method == nethttp.MethodGet && withConditions && s.useConditionalHeaders {
		if s.etag != "" && req.Header.Get("If-Match") == "" {
			req.Header.Set("If-Match", s.etag)
		}
		if s.lastModified != "" && req.Header.Get("If-Unmodified-Since") == "" {
			req.Header.Set("If-Unmodified-Since", s.lastModified)
		}
	}
	return req, nil
}

func (s *Source) rangeRequest(off, end int64, withConditions bool) (*nethttp.Response, error) {
	req, err := s.newRequest(nethttp.MethodGet, withConditions)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	return s.client.Do(req)
}

func (s *Source) hasConditionalHeaders() bool {
	if !s.useConditionalHeaders {
		return false
	}
	return s.etag != "" || s.lastModified != ""
}

// parseContentRange extracts the total size from "bytes start-end/size".
func parseContentRange(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	parts := strings.SplitN(strings.TrimPrefix(value, "bytes "), "/", 2)
	if len(parts) != 2 || parts[1] == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}

// parseUnsatisfiedRange reads the size from a 416 "bytes */size" value.
func parseUnsatisfiedRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), "bytes */")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}

var _ io.ReaderAt = (*Source)(nil)
