package header

import (
	"fmt"
	"strconv"
	"strings"
)

// parser accumulates the first numeric parse error of a block.
type parser struct {
	err error
}

// numeric parses a numeric field. A field whose first byte has the high
// bit set is a GNU base-256 big-endian integer (0x80 marks a positive
// value, 0xff a negative one); anything else is octal ASCII padded with
// spaces or NULs.
func (p *parser) numeric(field []byte) int64 {
	if len(field) > 0 && field[0]&0x80 != 0 {
		return p.base256(field)
	}
	return p.octal(field)
}

func (p *parser) base256(field []byte) int64 {
	var inv byte
	if field[0]&0x40 != 0 {
		inv = 0xff
	}
	var x uint64
	for i, c := range field {
		c ^= inv
		if i == 0 {
			c &= 0x7f
		}
		if x>>56 > 0 {
			p.fail(field, "base-256 value overflows int64")
			return 0
		}
		x = x<<8 | uint64(c)
	}
	if x>>63 > 0 {
		p.fail(field, "base-256 value overflows int64")
		return 0
	}
	if inv == 0xff {
		return ^int64(x)
	}
	return int64(x)
}

func (p *parser) octal(field []byte) int64 {
	s := strings.Trim(string(field), " \x00")
	if s == "" {
		return 0
	}
	n, err := strconv.ParseUint(s, 8, 63)
	if err != nil {
		p.fail(field, "not an octal number")
		return 0
	}
	return int64(n)
}

func (p *parser) fail(field []byte, msg string) {
	if p.err == nil {
		p.err = fmt.Errorf("%w: field %q: %s", ErrInvalid, field, msg)
	}
}

// fitsOctal reports whether x can be written as len(field)-1 octal digits.
func fitsOctal(width int, x int64) bool {
	octBits := uint(width-1) * 3
	return x >= 0 && (width >= 22 || x < 1<<octBits)
}

// fitsBase256 reports whether x fits the GNU binary encoding of a field of
// the given width.
func fitsBase256(width int, x int64) bool {
	binBits := uint(width-1) * 8
	return width >= 9 || (x >= -1<<binBits && x < 1<<binBits)
}

// formatOctal writes x as zero-padded octal digits followed by a NUL.
func formatOctal(field []byte, x int64) {
	s := strconv.FormatInt(x, 8)
	width := len(field) - 1
	if pad := width - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	copy(field, s)
	field[width] = 0
}

// formatBase256 writes x in GNU base-256 encoding.
func formatBase256(field []byte, x int64) {
	for i := len(field) - 1; i >= 0; i-- {
		field[i] = byte(x)
		x >>= 8
	}
	field[0] |= 0x80
}

// formatNumeric writes x as octal when it fits, otherwise as base-256 when
// binary is allowed.
func formatNumeric(field []byte, x int64, binary bool, name string) error {
	switch {
	case fitsOctal(len(field), x):
		formatOctal(field, x)
		return nil
	case binary && fitsBase256(len(field), x):
		formatBase256(field, x)
		return nil
	default:
		return fmt.Errorf("%w: %s=%d", ErrFieldOverflow, name, x)
	}
}
