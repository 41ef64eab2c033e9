package bankfile

import (
	"fmt"
	"strings"
	"unicode"
)

// PadLeft right-aligns s in a field of width, filling with fill. Longer
// values keep their rightmost characters, which preserves the low-order
// digits of numeric fields.
func PadLeft(s string, width int, fill rune) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[len(r)-width:])
	}
	return strings.Repeat(string(fill), width-len(r)) + s
}

// PadRight left-aligns s in a field of width, filling with fill. Longer
// values are truncated on the right.
func PadRight(s string, width int, fill rune) string {
	r := []rune(s)
	if len(r) >= width {
		return string(r[:width])
	}
	return s + strings.Repeat(string(fill), width-len(r))
}

// Alpha is an upper-cased, space-filled, left-aligned text field.
func Alpha(s string, width int) string {
	return PadRight(strings.ToUpper(Sanitize(s)), width, ' ')
}

// Numeric is a zero-filled, right-aligned digit field.
func Numeric(n int64, width int) string {
	if n < 0 {
		n = -n
	}
	return PadLeft(fmt.Sprintf("%d", n), width, '0')
}

// Digits strips everything but 0-9.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Sanitize folds s to the printable ASCII subset accepted by bank rails.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		switch {
		case r > unicode.MaxASCII:
			b.WriteRune('?')
		case unicode.IsPrint(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// FixedRecord is a fixed-length, space-initialised line addressed by 1-based
// inclusive positions, the way rail specifications number them.
type FixedRecord struct {
	data []byte
}

func NewFixedRecord(length int) *FixedRecord {
	d := make([]byte, length)
	for i := range d {
		d[i] = ' '
	}
	return &FixedRecord{data: d}
}

// Put writes an already formatted value at [start, end]. A value of the
// wrong width is a generator bug.
func (r *FixedRecord) Put(start, end int, value string) *FixedRecord {
	width := end - start + 1
	if start < 1 || end > len(r.data) || width <= 0 {
		panic(fmt.Sprintf("bankfile: field %d-%d outside record of %d", start, end, len(r.data)))
	}
	if len(value) != width {
		panic(fmt.Sprintf("bankfile: field %d-%d expects %d bytes, got %d", start, end, width, len(value)))
	}
	copy(r.data[start-1:end], value)
	return r
}

func (r *FixedRecord) Alpha(start, end int, s string) *FixedRecord {
	return r.Put(start, end, Alpha(s, end-start+1))
}

func (r *FixedRecord) Numeric(start, end int, n int64) *FixedRecord {
	return r.Put(start, end, Numeric(n, end-start+1))
}

func (r *FixedRecord) Len() int { return len(r.data) }

func (r *FixedRecord) String() string { return string(r.data) }
