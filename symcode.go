// Package symcode provides lossless compression of byte sequences with three classical codecs:
// arithmetic coding, Huffman coding and Lempel-Ziv-Welch coding.
//
// Each codec turns its input into a primary artifact and the side information needed to decode it.
// Compress and Decompress wrap both in a checksummed container, for example:
//    go run compress/main.go -codec huffman gettysburg.txt > gettys.huf
//    cat gettys.huf | go run decompress/main.go > gettys.dhuf
//    diff gettysburg.txt gettys.dhuf
//
// The engines themselves live in the arith, huffman and lzw subpackages.
package symcode

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
)

var (
	// ErrUnknownCodec is returned for a codec name that is not registered.
	ErrUnknownCodec = errors.New("symcode: unknown codec")

	// ErrMalformedSide is returned when side information cannot be parsed or does not match the artifact.
	ErrMalformedSide = errors.New("symcode: malformed side information")
)

// An Artifact is the result of encoding: the primary coded data and the side information
// a decoder needs besides it.
type Artifact struct {
	Codec   string
	Primary []byte
	Side    []byte

	// Report is filled in by Encode for diagnostics. It is not persisted.
	Report Report
}

// Size returns the number of bytes of the artifact.
func (a *Artifact) Size() int {
	return len(a.Primary) + len(a.Side)
}

// A Report describes an encoding.
type Report struct {
	Symbols int
	Table   string
}

// A Codec encodes whole byte sequences.
// Decode(Encode(data)) returns data exactly.
type Codec interface {
	Name() string
	Encode(data []byte) (*Artifact, error)
	Decode(a *Artifact) ([]byte, error)
}

// Options select and configure a codec.
type Options struct {
	Codec string `json:"codec"`

	// Precision is the arithmetic coding precision in bits, zero to derive it from each message.
	Precision uint `json:"precision,omitempty"`
	// Parallelism bounds the number of lines arithmetic coding works on at once.
	Parallelism int `json:"parallelism,omitempty"`

	// Packed stores Huffman bits eight to a byte instead of one character each.
	Packed bool `json:"packed,omitempty"`

	// MaxTableSize caps the LZW dictionary, zero for 65536 entries.
	MaxTableSize int `json:"maxTableSize,omitempty"`
}

var registry = map[string]func(Options) Codec{
	"arithmetic": func(o Options) Codec { return Arithmetic{Precision: o.Precision, Parallelism: o.Parallelism} },
	"huffman":    func(o Options) Codec { return Huffman{Packed: o.Packed} },
	"lzw":        func(o Options) Codec { return LZW{MaxTableSize: o.MaxTableSize} },
}

// New returns the codec named by opts.Codec.
func New(opts Options) (Codec, error) {
	newCodec, ok := registry[opts.Codec]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownCodec, "%q", opts.Codec)
	}
	return newCodec(opts), nil
}

// Names returns the names of all codecs.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Verify reports whether decoded is exactly original.
func Verify(original, decoded []byte) bool {
	return bytes.Equal(original, decoded)
}

// Ratio returns originalSize/encodedSize, or 0 if encodedSize is zero.
func Ratio(originalSize, encodedSize int) float64 {
	if encodedSize == 0 {
		return 0
	}
	return float64(originalSize) / float64(encodedSize)
}
