package symcode

import (
	"bytes"
	"runtime"

	"github.com/fumin/symcode/arith"
	"github.com/fumin/symcode/freq"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Arithmetic codes every line of the input independently, against one probability table
// built from the whole input. The primary artifact holds one decimal numeral per line.
type Arithmetic struct {
	// Precision in bits, zero to use arith.RequiredPrecision for each line.
	Precision uint
	// Parallelism bounds the number of lines coded at once, zero for GOMAXPROCS.
	Parallelism int
}

func (c Arithmetic) Name() string { return "arithmetic" }

func (c Arithmetic) parallelism() int {
	if c.Parallelism > 0 {
		return c.Parallelism
	}
	return runtime.GOMAXPROCS(0)
}

// splitLines splits data after every newline, keeping the newline with its line.
func splitLines(data []byte) [][]byte {
	lines := bytes.SplitAfter(data, []byte{'\n'})
	if len(lines) > 0 && len(lines[len(lines)-1]) == 0 {
		lines = lines[:len(lines)-1]
	}
	return lines
}

const (
	arithFieldTable     = 1
	arithFieldLengths   = 2
	arithFieldPrecision = 3
)

// Encode encodes data.
func (c Arithmetic) Encode(data []byte) (*Artifact, error) {
	a := &Artifact{Codec: c.Name()}
	if len(data) == 0 {
		return a, nil
	}

	table := freq.Count(data)
	p, err := arith.NewProbabilityTable(table)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	lines := splitLines(data)
	numerals := make([]string, len(lines))
	var g errgroup.Group
	g.SetLimit(c.parallelism())
	for i, line := range lines {
		i, line := i, line
		g.Go(func() error {
			code, err := arith.Encode(line, p, c.Precision)
			if err != nil {
				return errors.Wrapf(err, "line %d", i)
			}
			numerals[i] = arith.FormatCode(code)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var primary bytes.Buffer
	lengths := make([]uint64, len(lines))
	for i, numeral := range numerals {
		primary.WriteString(numeral)
		primary.WriteByte('\n')
		lengths[i] = uint64(len(lines[i]))
	}
	tableB, err := table.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}

	var side []byte
	side = appendBytesField(side, arithFieldTable, tableB)
	side = appendPackedField(side, arithFieldLengths, lengths)
	if c.Precision > 0 {
		side = appendVarintField(side, arithFieldPrecision, uint64(c.Precision))
	}

	a.Primary = primary.Bytes()
	a.Side = side
	a.Report = Report{Symbols: len(data), Table: p.String()}
	return a, nil
}

// Decode decodes an artifact produced by Encode.
// The precision is taken from the side information, not from c.
func (c Arithmetic) Decode(a *Artifact) ([]byte, error) {
	if len(a.Primary) == 0 && len(a.Side) == 0 {
		return []byte{}, nil
	}

	fields, err := parseFields(a.Side, ErrMalformedSide)
	if err != nil {
		return nil, err
	}
	var table *freq.Table
	var lengths []uint64
	var prec uint
	for _, f := range fields {
		switch f.num {
		case arithFieldTable:
			if table, err = freq.Unmarshal(f.bytes); err != nil {
				return nil, errors.Wrap(ErrMalformedSide, err.Error())
			}
		case arithFieldLengths:
			if lengths, err = consumePacked(f.bytes, ErrMalformedSide); err != nil {
				return nil, err
			}
		case arithFieldPrecision:
			prec = uint(f.value)
		}
	}
	if table == nil {
		return nil, errors.Wrap(ErrMalformedSide, "missing frequency table")
	}
	p, err := arith.NewProbabilityTable(table)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedSide, err.Error())
	}

	numerals := splitLines(a.Primary)
	if len(numerals) != len(lengths) {
		return nil, errors.Wrapf(ErrMalformedSide, "%d numerals, %d line lengths", len(numerals), len(lengths))
	}
	// The lines partition the input, so their lengths add up to the table's total.
	var sum uint64
	for i, n := range lengths {
		if n > table.Total()-sum {
			return nil, errors.Wrapf(ErrMalformedSide, "line %d: length %d exceeds %d symbols", i, n, table.Total())
		}
		sum += n
	}
	if sum != table.Total() {
		return nil, errors.Wrapf(ErrMalformedSide, "line lengths add up to %d, table has %d symbols", sum, table.Total())
	}

	lines := make([][]byte, len(numerals))
	var g errgroup.Group
	g.SetLimit(c.parallelism())
	for i, numeral := range numerals {
		i, numeral := i, numeral
		g.Go(func() error {
			n := int(lengths[i])
			linePrec := prec
			if linePrec == 0 {
				linePrec = arith.RequiredPrecision(p, n)
			}
			code, err := arith.ParseCode(string(numeral), linePrec)
			if err != nil {
				return errors.Wrapf(err, "line %d", i)
			}
			line, err := arith.Decode(code, n, p, linePrec)
			if err != nil {
				return errors.Wrapf(err, "line %d", i)
			}
			lines[i] = line
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return bytes.Join(lines, nil), nil
}
