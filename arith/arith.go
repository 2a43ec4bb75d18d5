// Package arith implements static arithmetic coding over arbitrary precision floats.
//
// A message is coded by narrowing the interval [0, 1) once per symbol, in
// proportion to the symbol probabilities of a ProbabilityTable. The result is
// a single number inside the final interval. Since the coder has no terminator,
// the message length must travel with the code.
//
// The interval shrinks geometrically with the message length, so the floats
// carry an explicit precision. RequiredPrecision returns a precision that is
// always sufficient; smaller precisions fail with ErrPrecisionExhausted rather
// than silently corrupting the message.
package arith

import (
	"math"
	"math/big"
	"math/bits"
	"strconv"
	"strings"

	"github.com/fumin/symcode/freq"
	"github.com/pkg/errors"
)

// guardBits is the precision added on top of the information content of a message.
// Rounding of the interval bounds consumes a few of these at every stage.
const guardBits = 64

// maxPrealloc bounds the buffer Decode allocates up front for the message.
const maxPrealloc = 1 << 16

var (
	// ErrEmptyTable is returned when a probability table is built from zero counts.
	ErrEmptyTable = errors.New("arith: empty frequency table")

	// ErrUnknownSymbol is returned when a message contains a symbol the table does not know.
	ErrUnknownSymbol = errors.New("arith: unknown symbol")

	// ErrPrecisionExhausted is returned when an interval collapses under the working precision.
	ErrPrecisionExhausted = errors.New("arith: precision exhausted")

	// ErrInvalidCode is returned when a code does not select any symbol.
	ErrInvalidCode = errors.New("arith: invalid code")
)

// A ProbabilityTable assigns each symbol of a frequency table the probability count/total.
// Cumulative counts are kept as integers, so the probabilities sum to exactly one.
type ProbabilityTable struct {
	table *freq.Table
	cum   []uint64
}

// NewProbabilityTable normalizes the counts of t.
func NewProbabilityTable(t *freq.Table) (*ProbabilityTable, error) {
	if t.Total() == 0 {
		return nil, ErrEmptyTable
	}
	cum := make([]uint64, t.Len()+1)
	for i := 0; i < t.Len(); i++ {
		cum[i+1] = cum[i] + t.Count(i)
	}
	return &ProbabilityTable{table: t, cum: cum}, nil
}

// Len returns the number of symbols.
func (p *ProbabilityTable) Len() int { return p.table.Len() }

// Symbols returns the symbols in partition order.
func (p *ProbabilityTable) Symbols() []byte { return p.table.Symbols() }

// Frequencies returns the frequency table p was built from.
func (p *ProbabilityTable) Frequencies() *freq.Table { return p.table }

// Probability returns the probability of s.
func (p *ProbabilityTable) Probability(s byte) (float64, bool) {
	i, ok := p.table.Index(s)
	if !ok {
		return 0, false
	}
	return float64(p.table.Count(i)) / float64(p.table.Total()), true
}

func (p *ProbabilityTable) String() string {
	parts := make([]string, 0, p.Len())
	for i := 0; i < p.Len(); i++ {
		s := p.table.Symbol(i)
		prob, _ := p.Probability(s)
		parts = append(parts, strconv.QuoteRune(rune(s))+":"+strconv.FormatFloat(prob, 'g', 6, 64))
	}
	return "{" + strings.Join(parts, " ") + "}"
}

// RequiredPrecision returns the number of mantissa bits that keeps every interval of a
// message of length n distinguishable. It only depends on the table and n,
// so an encoder and a decoder derive the same value independently.
// Messages too long for any big.Float get math.MaxUint.
func RequiredPrecision(p *ProbabilityTable, n int) uint {
	minCount := p.table.Count(0)
	for i := 1; i < p.Len(); i++ {
		if c := p.table.Count(i); c < minCount {
			minCount = c
		}
	}
	// Each symbol narrows the interval by at most a factor of total/minCount.
	ratio := (p.table.Total() + minCount - 1) / minCount
	perSymbol := uint64(bits.Len64(ratio))
	if n < 0 || uint64(n) > (big.MaxPrec-guardBits)/perSymbol {
		return math.MaxUint
	}
	return uint(uint64(n)*perSymbol + guardBits)
}

func checkPrecision(prec uint) error {
	if prec > big.MaxPrec {
		return errors.Wrapf(ErrPrecisionExhausted, "%d bits exceeds the maximum of %d", prec, uint(big.MaxPrec))
	}
	return nil
}

// A Stage is one partition of the current interval.
// Symbol i of the table occupies [Bounds[i], Bounds[i+1]).
type Stage struct {
	Low    *big.Float
	High   *big.Float
	Bounds []*big.Float
}

// coder carries the state shared by encoding and decoding at a fixed precision.
type coder struct {
	p     *ProbabilityTable
	prec  uint
	total *big.Float
}

func newCoder(p *ProbabilityTable, prec uint) *coder {
	c := &coder{p: p, prec: prec}
	c.total = c.float().SetUint64(p.table.Total())
	return c
}

func (c *coder) float() *big.Float {
	return new(big.Float).SetPrec(c.prec)
}

func (c *coder) width(low, high *big.Float) *big.Float {
	return c.float().Sub(high, low)
}

// bound returns the lower bound of the i-th sub-interval, low + width*cum[i]/total.
// The first bound is low and the last is high, so the partition covers [low, high) exactly.
func (c *coder) bound(low, high, width *big.Float, i int) *big.Float {
	switch i {
	case 0:
		return c.float().Set(low)
	case c.p.Len():
		return c.float().Set(high)
	}
	z := c.float().SetUint64(c.p.cum[i])
	z.Mul(z, width)
	z.Quo(z, c.total)
	return z.Add(z, low)
}

func (c *coder) stage(low, high *big.Float) Stage {
	width := c.width(low, high)
	st := Stage{Low: low, High: high, Bounds: make([]*big.Float, c.p.Len()+1)}
	for i := range st.Bounds {
		st.Bounds[i] = c.bound(low, high, width, i)
	}
	return st
}

// Encode returns the code of msg under p.
// A zero prec selects RequiredPrecision(p, len(msg)).
func Encode(msg []byte, p *ProbabilityTable, prec uint) (*big.Float, error) {
	code, _, err := encode(msg, p, prec, false)
	return code, err
}

// EncodeStages is like Encode, but also returns every partition computed along the way,
// including the extra stage after the last symbol.
func EncodeStages(msg []byte, p *ProbabilityTable, prec uint) (*big.Float, []Stage, error) {
	return encode(msg, p, prec, true)
}

func encode(msg []byte, p *ProbabilityTable, prec uint, record bool) (*big.Float, []Stage, error) {
	if prec == 0 {
		prec = RequiredPrecision(p, len(msg))
	}
	if err := checkPrecision(prec); err != nil {
		return nil, nil, err
	}
	c := newCoder(p, prec)

	var stages []Stage
	low, high := c.float(), c.float().SetInt64(1)
	for k, s := range msg {
		i, ok := p.table.Index(s)
		if !ok {
			return nil, nil, errors.Wrapf(ErrUnknownSymbol, "%q at %d", s, k)
		}
		if record {
			stages = append(stages, c.stage(low, high))
		}

		width := c.width(low, high)
		subLow, subHigh := c.bound(low, high, width, i), c.bound(low, high, width, i+1)
		if subLow.Cmp(subHigh) >= 0 {
			return nil, nil, errors.Wrapf(ErrPrecisionExhausted, "symbol %d of %d at %d bits", k, len(msg), prec)
		}
		low, high = subLow, subHigh
	}
	if record {
		stages = append(stages, c.stage(low, high))
	}

	// The midpoint of the final interval.
	code := c.float().Add(low, high)
	code.SetMantExp(code, -1)
	if code.Cmp(low) < 0 || code.Cmp(high) >= 0 {
		return nil, nil, errors.Wrapf(ErrPrecisionExhausted, "final interval at %d bits", prec)
	}
	return code, stages, nil
}

// Decode returns the n symbols coded by code under p.
// p and prec must be the ones used by Encode; a zero prec selects RequiredPrecision(p, n).
func Decode(code *big.Float, n int, p *ProbabilityTable, prec uint) ([]byte, error) {
	if code.Sign() < 0 || code.Cmp(big.NewFloat(1)) >= 0 {
		return nil, errors.Wrapf(ErrInvalidCode, "%s outside [0, 1)", code.Text('g', 10))
	}
	if n < 0 {
		return nil, errors.Wrapf(ErrInvalidCode, "negative length %d", n)
	}
	if prec == 0 {
		prec = RequiredPrecision(p, n)
	}
	if err := checkPrecision(prec); err != nil {
		return nil, err
	}
	c := newCoder(p, prec)

	msg := make([]byte, 0, min(n, maxPrealloc))
	low, high := c.float(), c.float().SetInt64(1)
	for k := 0; k < n; k++ {
		width := c.width(low, high)
		subLow := c.bound(low, high, width, 0)
		found := false
		for i := 0; i < p.Len(); i++ {
			subHigh := c.bound(low, high, width, i+1)
			if code.Cmp(subLow) >= 0 && code.Cmp(subHigh) < 0 {
				msg = append(msg, p.table.Symbol(i))
				low, high = subLow, subHigh
				found = true
				break
			}
			subLow = subHigh
		}
		if !found {
			return nil, errors.Wrapf(ErrInvalidCode, "no symbol at stage %d", k)
		}
	}
	return msg, nil
}

// FormatCode returns the shortest fixed point decimal numeral that parses back to code
// at its precision. Codes are never written with an exponent.
func FormatCode(code *big.Float) string {
	return code.Text('f', -1)
}

// ParseCode parses a numeral written by FormatCode at precision prec.
func ParseCode(s string, prec uint) (*big.Float, error) {
	if err := checkPrecision(prec); err != nil {
		return nil, err
	}
	code, _, err := big.ParseFloat(strings.TrimSpace(s), 10, prec, big.ToNearestEven)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidCode, "%q: %v", s, err)
	}
	return code, nil
}
