package symcode

import (
	"fmt"

	"github.com/fumin/symcode/huffman"
	"github.com/pkg/errors"
)

// Huffman codes the whole input with one Huffman tree, which travels as side information.
// The primary artifact is a string of '0' and '1' characters, or packed bits if Packed is set.
type Huffman struct {
	Packed bool
}

func (c Huffman) Name() string { return "huffman" }

const (
	huffFieldTree    = 1
	huffFieldBitsLen = 2
)

// Encode encodes data.
func (c Huffman) Encode(data []byte) (*Artifact, error) {
	a := &Artifact{Codec: c.Name()}
	if len(data) == 0 {
		return a, nil
	}

	tree, err := huffman.BuildTree(huffman.FrequencyTable(data))
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	codes := tree.Codes()
	enc, err := huffman.Encode(data, codes)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	treeB, err := tree.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	a.Primary = enc.Bits
	a.Side = appendBytesField(nil, huffFieldTree, treeB)
	if c.Packed {
		if a.Primary, err = huffman.Pack(enc.Bits); err != nil {
			return nil, errors.Wrap(err, "")
		}
		a.Side = appendVarintField(a.Side, huffFieldBitsLen, uint64(len(enc.Bits)))
	}

	st := enc.Stats
	a.Report = Report{
		Symbols: st.Symbols,
		Table:   fmt.Sprintf("%s bits before %d after %d ratio %.4f", codes, st.BitsBefore, st.BitsAfter, st.Ratio()),
	}
	return a, nil
}

// Decode decodes an artifact produced by Encode, packed or not.
func (c Huffman) Decode(a *Artifact) ([]byte, error) {
	if len(a.Primary) == 0 && len(a.Side) == 0 {
		return []byte{}, nil
	}

	fields, err := parseFields(a.Side, ErrMalformedSide)
	if err != nil {
		return nil, err
	}
	var tree *huffman.Tree
	bits := a.Primary
	for _, f := range fields {
		switch f.num {
		case huffFieldTree:
			if tree, err = huffman.UnmarshalTree(f.bytes); err != nil {
				return nil, errors.Wrap(ErrMalformedSide, err.Error())
			}
		case huffFieldBitsLen:
			if bits, err = huffman.Unpack(a.Primary, int(f.value)); err != nil {
				return nil, errors.Wrap(err, "")
			}
		}
	}
	if tree == nil {
		return nil, errors.Wrap(ErrMalformedSide, "missing tree")
	}

	data, err := huffman.Decode(bits, tree)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	return data, nil
}
