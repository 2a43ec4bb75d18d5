/*
Package huffman implements Huffman coding of byte sequences.

Codes are derived from a binary tree built by repeatedly merging the two
lightest nodes. Encoded data is a bit string of '0' and '1' characters; Pack
and Unpack convert it to and from a packed representation.

The decoder needs the exact tree used by the encoder. A Tree is a flat slice
of nodes addressed by index so that it can be serialized with MarshalBinary
and restored with UnmarshalTree.
*/
package huffman

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fumin/symcode/freq"
	"github.com/pkg/errors"
)

var (
	// ErrEmptyTable is returned when building a tree from a table without symbols.
	ErrEmptyTable = errors.New("huffman: empty frequency table")

	// ErrUnknownSymbol is returned when a symbol has no code.
	ErrUnknownSymbol = errors.New("huffman: unknown symbol")

	// ErrInvalidBit is returned when a bit string contains anything but '0' and '1'.
	ErrInvalidBit = errors.New("huffman: invalid bit")

	// ErrTruncated is returned when a bit string ends in the middle of a code.
	ErrTruncated = errors.New("huffman: truncated bit string")
)

// A Node is a node of a Tree.
// Leaves have Left and Right set to -1; internal nodes always have both children.
type Node struct {
	Symbol byte
	Weight uint64
	Left   int
	Right  int
}

// Leaf reports whether n is a leaf.
func (n Node) Leaf() bool {
	return n.Left < 0
}

// A Tree is a strict binary tree stored as a slice of nodes.
// Leaves come first in frequency table order, internal nodes follow in merge order,
// and the root is the last node.
type Tree struct {
	nodes []Node
}

// FrequencyTable counts the symbols of data in order of first appearance.
func FrequencyTable(data []byte) *freq.Table {
	return freq.Count(data)
}

// BuildTree builds the Huffman tree of t.
//
// Each round stably sorts the remaining nodes by weight, and merges the two lightest.
// The first of them becomes the right child (bit 1) and the second the left child (bit 0).
// The merged node is appended behind the remaining nodes, so ties between weights are broken
// by the order in which nodes entered the working set.
func BuildTree(t *freq.Table) (*Tree, error) {
	if t.Len() == 0 {
		return nil, ErrEmptyTable
	}

	nodes := make([]Node, 0, 2*t.Len()-1)
	work := make([]int, 0, t.Len())
	for i := 0; i < t.Len(); i++ {
		nodes = append(nodes, Node{Symbol: t.Symbol(i), Weight: t.Count(i), Left: -1, Right: -1})
		work = append(work, i)
	}

	for len(work) > 1 {
		sort.SliceStable(work, func(i, j int) bool {
			return nodes[work[i]].Weight < nodes[work[j]].Weight
		})
		right, left := work[0], work[1]
		nodes = append(nodes, Node{
			Weight: nodes[left].Weight + nodes[right].Weight,
			Left:   left,
			Right:  right,
		})
		work = append(work[2:], len(nodes)-1)
	}

	return &Tree{nodes: nodes}, nil
}

// Root returns the index of the root node.
func (t *Tree) Root() int { return len(t.nodes) - 1 }

// Len returns the number of nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns the i-th node.
func (t *Tree) Node(i int) Node { return t.nodes[i] }

// A CodeTable maps symbols to their codes.
type CodeTable struct {
	codes   [256]string
	present [256]bool
	symbols []byte
}

// Codes derives the code of every leaf by a depth first traversal, left child first.
// A tree with a single leaf yields the empty code for its symbol.
func (t *Tree) Codes() *CodeTable {
	ct := &CodeTable{}
	var walk func(i int, code []byte)
	walk = func(i int, code []byte) {
		n := t.nodes[i]
		if n.Leaf() {
			ct.codes[n.Symbol] = string(code)
			ct.present[n.Symbol] = true
			ct.symbols = append(ct.symbols, n.Symbol)
			return
		}
		walk(n.Left, append(code, '0'))
		walk(n.Right, append(code, '1'))
	}
	walk(t.Root(), make([]byte, 0, len(t.nodes)))
	return ct
}

// Code returns the code of s.
func (ct *CodeTable) Code(s byte) (string, bool) {
	return ct.codes[s], ct.present[s]
}

// Symbols returns the symbols that have a code, in traversal order.
func (ct *CodeTable) Symbols() []byte {
	return append([]byte(nil), ct.symbols...)
}

// degenerate reports whether ct holds a single symbol with the empty code.
func (ct *CodeTable) degenerate() bool {
	return len(ct.symbols) == 1 && ct.codes[ct.symbols[0]] == ""
}

func (ct *CodeTable) String() string {
	parts := make([]string, 0, len(ct.symbols))
	for _, s := range ct.symbols {
		parts = append(parts, fmt.Sprintf("%q:%s", s, ct.codes[s]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// Stats reports the size of a message before and after encoding.
type Stats struct {
	Symbols    int
	BitsBefore int
	BitsAfter  int
}

// Ratio returns BitsBefore/BitsAfter, or 0 if nothing was encoded.
func (s Stats) Ratio() float64 {
	if s.BitsAfter == 0 {
		return 0
	}
	return float64(s.BitsBefore) / float64(s.BitsAfter)
}

// Encoded is the result of Encode.
type Encoded struct {
	Bits  []byte
	Stats Stats
}

// Encode concatenates the codes of data.
//
// A single symbol alphabet has the empty code, which cannot be told apart in a bit string.
// In that case every symbol is written as a single '0'.
func Encode(data []byte, codes *CodeTable) (*Encoded, error) {
	degenerate := codes.degenerate()

	bits := make([]byte, 0, len(data))
	for i, s := range data {
		code, ok := codes.Code(s)
		if !ok {
			return nil, errors.Wrapf(ErrUnknownSymbol, "%q at %d", s, i)
		}
		if degenerate {
			code = "0"
		}
		bits = append(bits, code...)
	}

	enc := &Encoded{
		Bits: bits,
		Stats: Stats{
			Symbols:    len(data),
			BitsBefore: 8 * len(data),
			BitsAfter:  len(bits),
		},
	}
	return enc, nil
}

// Decode walks t from the root, going right on '1' and left on '0', and emits the symbol
// of every leaf it reaches.
func Decode(bits []byte, t *Tree) ([]byte, error) {
	root := t.Root()
	if t.nodes[root].Leaf() {
		sym := t.nodes[root].Symbol
		data := make([]byte, 0, len(bits))
		for i, b := range bits {
			if b != '0' {
				return nil, errors.Wrapf(ErrInvalidBit, "%q at %d", b, i)
			}
			data = append(data, sym)
		}
		return data, nil
	}

	var data []byte
	cur := root
	for i, b := range bits {
		switch b {
		case '0':
			cur = t.nodes[cur].Left
		case '1':
			cur = t.nodes[cur].Right
		default:
			return nil, errors.Wrapf(ErrInvalidBit, "%q at %d", b, i)
		}
		if t.nodes[cur].Leaf() {
			data = append(data, t.nodes[cur].Symbol)
			cur = root
		}
	}
	if cur != root {
		return nil, errors.Wrapf(ErrTruncated, "%d bits", len(bits))
	}
	return data, nil
}
