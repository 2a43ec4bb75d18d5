// Package freq defines the ordered symbol frequency table that the
// arithmetic and Huffman coders are built from.
// See the arith and huffman packages for the coders themselves.
package freq

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrDuplicateSymbol is returned when a table lists the same symbol twice.
	ErrDuplicateSymbol = errors.New("freq: duplicate symbol")

	// ErrZeroCount is returned when a table entry has a zero count.
	ErrZeroCount = errors.New("freq: zero count")

	// ErrLengthMismatch is returned when symbols and counts differ in length.
	ErrLengthMismatch = errors.New("freq: symbols and counts differ in length")

	// ErrMalformed is returned when a serialized table cannot be parsed.
	ErrMalformed = errors.New("freq: malformed table")
)

// A Table is an ordered list of distinct symbols and their positive counts.
// The order is the order in which symbols were first seen, and it is part of
// the contract: coders partition their state in this order.
type Table struct {
	symbols []byte
	counts  []uint64
	index   [256]int
	total   uint64
}

func newTable() *Table {
	t := &Table{}
	for i := range t.index {
		t.index[i] = -1
	}
	return t
}

// Count returns the frequency table of data.
func Count(data []byte) *Table {
	t := newTable()
	for _, s := range data {
		i := t.index[s]
		if i < 0 {
			i = len(t.symbols)
			t.index[s] = i
			t.symbols = append(t.symbols, s)
			t.counts = append(t.counts, 0)
		}
		t.counts[i]++
		t.total++
	}
	return t
}

// New returns a table with the given symbols and counts, in that order.
func New(symbols []byte, counts []uint64) (*Table, error) {
	if len(symbols) != len(counts) {
		return nil, errors.Wrapf(ErrLengthMismatch, "%d symbols, %d counts", len(symbols), len(counts))
	}
	t := newTable()
	for i, s := range symbols {
		if t.index[s] >= 0 {
			return nil, errors.Wrapf(ErrDuplicateSymbol, "%q", s)
		}
		if counts[i] == 0 {
			return nil, errors.Wrapf(ErrZeroCount, "%q", s)
		}
		t.index[s] = i
		t.total += counts[i]
	}
	t.symbols = append([]byte(nil), symbols...)
	t.counts = append([]uint64(nil), counts...)
	return t, nil
}

// Len returns the number of distinct symbols.
func (t *Table) Len() int { return len(t.symbols) }

// Symbol returns the i-th symbol.
func (t *Table) Symbol(i int) byte { return t.symbols[i] }

// Count returns the count of the i-th symbol.
func (t *Table) Count(i int) uint64 { return t.counts[i] }

// Total returns the sum of all counts.
func (t *Table) Total() uint64 { return t.total }

// Index returns the position of s in the table.
func (t *Table) Index(s byte) (int, bool) {
	i := t.index[s]
	return i, i >= 0
}

// Symbols returns a copy of the symbols in table order.
func (t *Table) Symbols() []byte { return append([]byte(nil), t.symbols...) }

// Counts returns a copy of the counts in table order.
func (t *Table) Counts() []uint64 { return append([]uint64(nil), t.counts...) }

func (t *Table) String() string {
	parts := make([]string, 0, len(t.symbols))
	for i, s := range t.symbols {
		parts = append(parts, fmt.Sprintf("%q:%d", s, t.counts[i]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

const (
	fieldSymbols protowire.Number = 1
	fieldCounts  protowire.Number = 2
)

// MarshalBinary encodes the table in protobuf wire format:
// field 1 holds the symbols, field 2 the packed varint counts.
func (t *Table) MarshalBinary() ([]byte, error) {
	var b []byte
	b = protowire.AppendTag(b, fieldSymbols, protowire.BytesType)
	b = protowire.AppendBytes(b, t.symbols)

	var packed []byte
	for _, c := range t.counts {
		packed = protowire.AppendVarint(packed, c)
	}
	b = protowire.AppendTag(b, fieldCounts, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b, nil
}

// Unmarshal decodes a table encoded by MarshalBinary.
func Unmarshal(b []byte) (*Table, error) {
	var symbols []byte
	var counts []uint64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
		}
		b = b[n:]

		switch {
		case num == fieldSymbols && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			symbols = append([]byte(nil), v...)
			b = b[n:]
		case num == fieldCounts && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			b = b[n:]
			for len(v) > 0 {
				c, m := protowire.ConsumeVarint(v)
				if m < 0 {
					return nil, errors.Wrap(ErrMalformed, protowire.ParseError(m).Error())
				}
				counts = append(counts, c)
				v = v[m:]
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformed, protowire.ParseError(n).Error())
			}
			b = b[n:]
		}
	}

	t, err := New(symbols, counts)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return t, nil
}
