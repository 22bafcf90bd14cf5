package tarfile

import (
	"fmt"
	"strings"

	"github.com/meigma/tarfile/internal/blockstream"
)

// modeSpec is a parsed mode string.
type modeSpec struct {
	op     byte // 'r', 'w' or 'a'
	comp   blockstream.Compression
	stream bool
	probe  bool
}

func (m modeSpec) String() string {
	sep := ":"
	if m.stream {
		sep = "|"
	}
	comp := m.comp.String()
	switch {
	case m.probe:
		comp = "*"
	case m.comp == blockstream.CompressionNone:
		comp = ""
	}
	return string(m.op) + sep + comp
}

// parseMode parses "r", "r:*", "r:gz", "r|", "w:xz", "a" and the like.
func parseMode(mode string) (modeSpec, error) {
	if mode == "" {
		return modeSpec{}, fmt.Errorf("%w: empty mode", ErrBadMode)
	}
	spec := modeSpec{op: mode[0]}
	switch spec.op {
	case 'r', 'w', 'a':
	default:
		return modeSpec{}, fmt.Errorf("%w: %q", ErrBadMode, mode)
	}

	rest := mode[1:]
	switch {
	case rest == "":
		spec.probe = spec.op == 'r'
		return spec, nil
	case strings.HasPrefix(rest, "|"):
		spec.stream = true
	case strings.HasPrefix(rest, ":"):
	default:
		return modeSpec{}, fmt.Errorf("%w: %q", ErrBadMode, mode)
	}

	comp := rest[1:]
	if comp == "*" {
		if spec.op != 'r' {
			return modeSpec{}, fmt.Errorf("%w: %q: compression detection is only possible when reading", ErrBadMode, mode)
		}
		spec.probe = true
		return spec, nil
	}
	c, err := blockstream.ParseCompression(comp)
	if err != nil {
		return modeSpec{}, fmt.Errorf("%w: %q: %w", ErrBadMode, mode, err)
	}
	if spec.op == 'a' && (spec.stream || c != blockstream.CompressionNone) {
		return modeSpec{}, fmt.Errorf("%w: %q: cannot append to a compressed or streamed archive", ErrBadMode, mode)
	}
	spec.comp = c
	return spec, nil
}
