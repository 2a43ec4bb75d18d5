package huffman

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// ErrMalformedTree is returned when a serialized tree is not a strict binary tree.
var ErrMalformedTree = errors.New("huffman: malformed tree")

const (
	fieldSymbols  protowire.Number = 1
	fieldWeights  protowire.Number = 2
	fieldChildren protowire.Number = 3
)

func appendPacked(b []byte, num protowire.Number, vs []uint64) []byte {
	var packed []byte
	for _, v := range vs {
		packed = protowire.AppendVarint(packed, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func consumePacked(b []byte) ([]uint64, error) {
	var vs []uint64
	for len(b) > 0 {
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedTree, protowire.ParseError(n).Error())
		}
		vs = append(vs, v)
		b = b[n:]
	}
	return vs, nil
}

// MarshalBinary encodes t in protobuf wire format.
// Field 1 holds the leaf symbols, field 2 the leaf weights and
// field 3 the left and right child indices of every internal node.
func (t *Tree) MarshalBinary() ([]byte, error) {
	var symbols []byte
	var weights, children []uint64
	for _, n := range t.nodes {
		if n.Leaf() {
			symbols = append(symbols, n.Symbol)
			weights = append(weights, n.Weight)
			continue
		}
		children = append(children, uint64(n.Left), uint64(n.Right))
	}

	var b []byte
	b = protowire.AppendTag(b, fieldSymbols, protowire.BytesType)
	b = protowire.AppendBytes(b, symbols)
	b = appendPacked(b, fieldWeights, weights)
	b = appendPacked(b, fieldChildren, children)
	return b, nil
}

// UnmarshalTree decodes a tree encoded by MarshalBinary.
// Every node except the root must be the child of exactly one later node.
func UnmarshalTree(b []byte) (*Tree, error) {
	var symbols []byte
	var weights, children []uint64
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedTree, protowire.ParseError(n).Error())
		}
		b = b[n:]
		if typ != protowire.BytesType {
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, errors.Wrap(ErrMalformedTree, protowire.ParseError(n).Error())
			}
			b = b[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, errors.Wrap(ErrMalformedTree, protowire.ParseError(n).Error())
		}
		b = b[n:]

		var err error
		switch num {
		case fieldSymbols:
			symbols = append([]byte(nil), v...)
		case fieldWeights:
			weights, err = consumePacked(v)
		case fieldChildren:
			children, err = consumePacked(v)
		}
		if err != nil {
			return nil, err
		}
	}

	leaves := len(symbols)
	switch {
	case leaves == 0:
		return nil, errors.Wrap(ErrMalformedTree, "no leaves")
	case len(weights) != leaves:
		return nil, errors.Wrapf(ErrMalformedTree, "%d leaves, %d weights", leaves, len(weights))
	case len(children) != 2*(leaves-1):
		return nil, errors.Wrapf(ErrMalformedTree, "%d leaves, %d child indices", leaves, len(children))
	}

	nodes := make([]Node, 0, 2*leaves-1)
	var seen [256]bool
	for i, s := range symbols {
		if seen[s] {
			return nil, errors.Wrapf(ErrMalformedTree, "duplicate symbol %q", s)
		}
		seen[s] = true
		nodes = append(nodes, Node{Symbol: s, Weight: weights[i], Left: -1, Right: -1})
	}

	used := make([]bool, 2*leaves-1)
	for i := 0; i < len(children); i += 2 {
		self := len(nodes)
		left, right := children[i], children[i+1]
		for _, c := range []uint64{left, right} {
			if c >= uint64(self) || used[c] {
				return nil, errors.Wrapf(ErrMalformedTree, "node %d: bad child %d", self, c)
			}
			used[c] = true
		}
		nodes = append(nodes, Node{
			Weight: nodes[left].Weight + nodes[right].Weight,
			Left:   int(left),
			Right:  int(right),
		})
	}
	return &Tree{nodes: nodes}, nil
}

// Pack packs a bit string of '0' and '1' characters into bytes, most significant bit first.
// The last byte is padded with zeros.
func Pack(bits []byte) ([]byte, error) {
	buf := bytes.NewBuffer(make([]byte, 0, (len(bits)+7)/8))
	w := bitio.NewWriter(buf)
	for i, b := range bits {
		var err error
		switch b {
		case '0':
			err = w.WriteBool(false)
		case '1':
			err = w.WriteBool(true)
		default:
			return nil, errors.Wrapf(ErrInvalidBit, "%q at %d", b, i)
		}
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
	}
	if err := w.Close(); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return buf.Bytes(), nil
}

// Unpack returns the first n bits of packed as a bit string of '0' and '1' characters.
func Unpack(packed []byte, n int) ([]byte, error) {
	if n < 0 || n > 8*len(packed) {
		return nil, errors.Wrapf(ErrTruncated, "%d bits from %d bytes", n, len(packed))
	}
	r := bitio.NewReader(bytes.NewReader(packed))
	bits := make([]byte, n)
	for i := range bits {
		b, err := r.ReadBool()
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		bits[i] = '0'
		if b {
			bits[i] = '1'
		}
	}
	return bits, nil
}
