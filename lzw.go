package symcode

import (
	"fmt"

	"github.com/fumin/symcode/lzw"
	"github.com/pkg/errors"
)

// LZW codes the input as a flat sequence of 2 byte big endian dictionary codes.
// No side information is needed unless the dictionary size is capped below the default.
type LZW struct {
	MaxTableSize int
}

func (c LZW) Name() string { return "lzw" }

func (c LZW) maxTableSize() int {
	if c.MaxTableSize > 0 {
		return c.MaxTableSize
	}
	return lzw.MaxTableSize
}

const lzwFieldMaxTableSize = 1

// Encode encodes data.
func (c LZW) Encode(data []byte) (*Artifact, error) {
	e, err := lzw.NewEncoder(c.maxTableSize())
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if _, err := e.Write(data); err != nil {
		return nil, errors.Wrap(err, "")
	}
	e.Flush()

	a := &Artifact{Codec: c.Name(), Primary: lzw.Marshal(e.Codes())}
	if c.maxTableSize() != lzw.MaxTableSize {
		a.Side = appendVarintField(nil, lzwFieldMaxTableSize, uint64(c.maxTableSize()))
	}
	state := "growing"
	if e.Frozen() {
		state = "frozen"
	}
	a.Report = Report{
		Symbols: len(data),
		Table:   fmt.Sprintf("%d codes, dictionary %d/%d entries, %s", len(e.Codes()), e.Size(), c.maxTableSize(), state),
	}
	return a, nil
}

// Decode decodes an artifact produced by Encode.
func (c LZW) Decode(a *Artifact) ([]byte, error) {
	fields, err := parseFields(a.Side, ErrMalformedSide)
	if err != nil {
		return nil, err
	}
	size := lzw.MaxTableSize
	for _, f := range fields {
		if f.num == lzwFieldMaxTableSize {
			size = int(f.value)
		}
	}

	codes, err := lzw.Unmarshal(a.Primary)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	data, err := lzw.DecodeSize(codes, size)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if data == nil {
		data = []byte{}
	}
	return data, nil
}
