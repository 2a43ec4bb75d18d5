// Package lzw implements Lempel-Ziv-Welch coding of byte sequences with
// fixed width 16 bit codes.
//
// The dictionary starts with the 256 single byte strings and grows by one
// entry per emitted code until it holds maxTableSize entries. From then on it
// is frozen: coding continues with the existing entries and the table is
// never reset. The decoder rebuilds the same dictionary from the codes alone.
package lzw

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

const (
	alphabetSize = 256

	// MaxTableSize is the largest dictionary addressable by 16 bit codes.
	MaxTableSize = 1 << 16

	recordSize = 2
)

var (
	// ErrTruncatedRecord is returned when encoded data is not a whole number of records.
	ErrTruncatedRecord = errors.New("lzw: truncated record")

	// ErrInvalidCode is returned when a code refers to an entry the decoder cannot know.
	ErrInvalidCode = errors.New("lzw: invalid code")

	// ErrTableSize is returned for a maximum table size outside [256, 65536].
	ErrTableSize = errors.New("lzw: table size out of range")
)

type state int

const (
	growing state = iota
	frozen
)

// dictionary tracks the size of a code table and its growing to frozen transition.
// The encoder and decoder each own one, and call reserve at the same logical steps.
type dictionary struct {
	size  int
	max   int
	state state
}

func newDictionary(max int) (dictionary, error) {
	if max < alphabetSize || max > MaxTableSize {
		return dictionary{}, errors.Wrapf(ErrTableSize, "%d", max)
	}
	d := dictionary{size: alphabetSize, max: max}
	if d.size == d.max {
		d.state = frozen
	}
	return d, nil
}

// reserve returns the next free code, or false once the dictionary is frozen.
func (d *dictionary) reserve() (int, bool) {
	if d.state == frozen {
		return 0, false
	}
	code := d.size
	d.size++
	if d.size == d.max {
		d.state = frozen
	}
	return code, true
}

// key identifies the string formed by the entry prefix followed by sym.
type key struct {
	prefix uint16
	sym    byte
}

// An Encoder codes a byte sequence one byte at a time.
type Encoder struct {
	dict   dictionary
	codes  map[key]uint16
	prefix int
	out    []uint16
}

// NewEncoder returns an encoder whose dictionary stops growing at maxTableSize entries.
func NewEncoder(maxTableSize int) (*Encoder, error) {
	dict, err := newDictionary(maxTableSize)
	if err != nil {
		return nil, err
	}
	return newEncoder(dict), nil
}

func newEncoder(dict dictionary) *Encoder {
	return &Encoder{
		dict:   dict,
		codes:  make(map[key]uint16),
		prefix: -1,
	}
}

// add extends the current string by s, emitting the code of the current string
// when the extension is not in the dictionary.
func (e *Encoder) add(s byte) {
	if e.prefix < 0 {
		e.prefix = int(s)
		return
	}
	k := key{prefix: uint16(e.prefix), sym: s}
	if code, ok := e.codes[k]; ok {
		e.prefix = int(code)
		return
	}

	e.out = append(e.out, uint16(e.prefix))
	if code, ok := e.dict.reserve(); ok {
		e.codes[k] = uint16(code)
	}
	e.prefix = int(s)
}

// WriteByte encodes s. It never fails.
func (e *Encoder) WriteByte(s byte) error {
	e.add(s)
	return nil
}

// Write encodes all of p. It never fails.
func (e *Encoder) Write(p []byte) (int, error) {
	for _, s := range p {
		e.add(s)
	}
	return len(p), nil
}

func (e *Encoder) encode(data []byte) []uint16 {
	for _, s := range data {
		e.add(s)
	}
	e.Flush()
	return e.Codes()
}

// Flush emits the code of the current string, if any.
func (e *Encoder) Flush() {
	if e.prefix >= 0 {
		e.out = append(e.out, uint16(e.prefix))
		e.prefix = -1
	}
}

// Codes returns the codes emitted so far.
func (e *Encoder) Codes() []uint16 { return e.out }

// Size returns the number of dictionary entries.
func (e *Encoder) Size() int { return e.dict.size }

// Frozen reports whether the dictionary has stopped growing.
func (e *Encoder) Frozen() bool { return e.dict.state == frozen }

// entry is a decoder dictionary entry: the string of prefix followed by last.
type entry struct {
	prefix int
	last   byte
	first  byte
	length int
}

// A Decoder decodes codes one at a time.
// Its dictionary is one entry behind the encoder's, as the entry added after a code
// depends on the first byte of the code that follows.
type Decoder struct {
	dict    dictionary
	entries []entry
	prev    int
}

// NewDecoder returns a decoder for codes produced by an encoder with the same maxTableSize.
func NewDecoder(maxTableSize int) (*Decoder, error) {
	dict, err := newDictionary(maxTableSize)
	if err != nil {
		return nil, err
	}
	d := &Decoder{
		dict:    dict,
		entries: make([]entry, alphabetSize, maxTableSize),
		prev:    -1,
	}
	for i := range d.entries {
		d.entries[i] = entry{prefix: -1, last: byte(i), first: byte(i), length: 1}
	}
	return d, nil
}

func (d *Decoder) expand(code int) []byte {
	str := make([]byte, d.entries[code].length)
	for i := len(str) - 1; i >= 0; i-- {
		str[i] = d.entries[code].last
		code = d.entries[code].prefix
	}
	return str
}

// Decode returns the string of code.
func (d *Decoder) Decode(code uint16) ([]byte, error) {
	c := int(code)
	var str []byte
	switch {
	case c < d.dict.size:
		str = d.expand(c)
	case c == d.dict.size && d.prev >= 0 && d.dict.state == growing:
		// The encoder emitted the entry it had just added: the previous string
		// followed by its own first byte.
		str = d.expand(d.prev)
		str = append(str, str[0])
	default:
		return nil, errors.Wrapf(ErrInvalidCode, "%d with %d entries", c, d.dict.size)
	}

	if d.prev >= 0 {
		if _, ok := d.dict.reserve(); ok {
			p := d.entries[d.prev]
			d.entries = append(d.entries, entry{prefix: d.prev, last: str[0], first: p.first, length: p.length + 1})
		}
	}
	d.prev = c
	return str, nil
}

// Size returns the number of dictionary entries.
func (d *Decoder) Size() int { return d.dict.size }

// Frozen reports whether the dictionary has stopped growing.
func (d *Decoder) Frozen() bool { return d.dict.state == frozen }

// Encode returns the codes of data using a dictionary of up to MaxTableSize entries.
func Encode(data []byte) []uint16 {
	return newEncoder(dictionary{size: alphabetSize, max: MaxTableSize}).encode(data)
}

// Decode returns the data coded by codes, produced by Encode.
func Decode(codes []uint16) ([]byte, error) {
	return DecodeSize(codes, MaxTableSize)
}

// EncodeSize is like Encode with a dictionary of up to maxTableSize entries.
func EncodeSize(data []byte, maxTableSize int) ([]uint16, error) {
	e, err := NewEncoder(maxTableSize)
	if err != nil {
		return nil, err
	}
	return e.encode(data), nil
}

// DecodeSize is like Decode with a dictionary of up to maxTableSize entries.
func DecodeSize(codes []uint16, maxTableSize int) ([]byte, error) {
	d, err := NewDecoder(maxTableSize)
	if err != nil {
		return nil, err
	}
	var data []byte
	for i, c := range codes {
		str, err := d.Decode(c)
		if err != nil {
			return nil, errors.Wrapf(err, "code %d", i)
		}
		data = append(data, str...)
	}
	return data, nil
}

// Marshal writes codes as 2 byte big endian records.
func Marshal(codes []uint16) []byte {
	b := make([]byte, recordSize*len(codes))
	for i, c := range codes {
		binary.BigEndian.PutUint16(b[recordSize*i:], c)
	}
	return b
}

// Unmarshal reads the records written by Marshal.
func Unmarshal(b []byte) ([]uint16, error) {
	if len(b)%recordSize != 0 {
		return nil, errors.Wrapf(ErrTruncatedRecord, "%d bytes", len(b))
	}
	codes := make([]uint16, len(b)/recordSize)
	for i := range codes {
		codes[i] = binary.BigEndian.Uint16(b[recordSize*i:])
	}
	return codes, nil
}
