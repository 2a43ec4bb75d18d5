package huffman

import (
	"strings"
	"testing"

	"github.com/fumin/symcode/freq"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

const gettysburg = `Now we are engaged in a great civil war, testing whether that nation, or any nation so conceived and so dedicated, can long endure. We are met on a great battle-field of that war.`

func mustTree(t testing.TB, data []byte) *Tree {
	t.Helper()
	tree, err := BuildTree(FrequencyTable(data))
	require.NoError(t, err)
	return tree
}

func TestBuildTree(t *testing.T) {
	data := []byte("AAAAABBBCCD")
	tree := mustTree(t, data)
	require.Equal(t, 7, tree.Len())
	require.Equal(t, uint64(11), tree.Node(tree.Root()).Weight)

	codes := tree.Codes()
	expected := map[byte]string{
		'A': "1",
		'B': "01",
		'C': "000",
		'D': "001",
	}
	for s, code := range expected {
		got, ok := codes.Code(s)
		require.True(t, ok)
		require.Equal(t, code, got, "%q", s)
	}

	enc, err := Encode(data, codes)
	require.NoError(t, err)
	require.Equal(t, "11111010101000000001", string(enc.Bits))
	require.Equal(t, 88, enc.Stats.BitsBefore)
	require.Equal(t, 20, enc.Stats.BitsAfter)
	require.InDelta(t, 4.4, enc.Stats.Ratio(), 1e-9)

	decoded, err := Decode(enc.Bits, tree)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}

// TestTieBreak checks that equal weights are merged in working set order:
// with four equal weights the first two symbols merge first.
func TestTieBreak(t *testing.T) {
	tree := mustTree(t, []byte("abcd"))
	codes := tree.Codes()

	// Round 1 merges a (bit 1) and b (bit 0), round 2 merges c and d,
	// round 3 merges the two pairs, the older pair taking bit 1.
	expected := map[byte]string{'a': "11", 'b': "10", 'c': "01", 'd': "00"}
	for s, code := range expected {
		got, _ := codes.Code(s)
		require.Equal(t, code, got, "%q", s)
	}
}

func TestPrefixFree(t *testing.T) {
	inputs := []string{
		gettysburg,
		"AAAAABBBCCD",
		"ab",
		strings.Repeat("a", 50) + strings.Repeat("b", 25) + "cdefgh",
	}
	for _, input := range inputs {
		codes := mustTree(t, []byte(input)).Codes()
		symbols := codes.Symbols()
		for _, x := range symbols {
			cx, _ := codes.Code(x)
			require.NotEmpty(t, cx)
			for _, y := range symbols {
				if x == y {
					continue
				}
				cy, _ := codes.Code(y)
				require.False(t, strings.HasPrefix(cy, cx), "%q=%s is a prefix of %q=%s", x, cx, y, cy)
			}
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		gettysburg,
		"TOBEORNOTTOBEORTOBEORNOT",
		"\x00\x01\x02\xff\xfe\x00",
	}
	for _, input := range inputs {
		data := []byte(input)
		tree := mustTree(t, data)
		enc, err := Encode(data, tree.Codes())
		require.NoError(t, err)
		require.Less(t, enc.Stats.BitsAfter, enc.Stats.BitsBefore)

		decoded, err := Decode(enc.Bits, tree)
		require.NoError(t, err)
		require.Equal(t, data, decoded)
	}
}

func TestSingleSymbol(t *testing.T) {
	data := []byte(strings.Repeat("x", 1000))
	tree := mustTree(t, data)
	require.Equal(t, 1, tree.Len())
	require.True(t, tree.Node(tree.Root()).Leaf())

	codes := tree.Codes()
	code, ok := codes.Code('x')
	require.True(t, ok)
	require.Empty(t, code)

	enc, err := Encode(data, codes)
	require.NoError(t, err)
	require.Equal(t, strings.Repeat("0", 1000), string(enc.Bits))

	decoded, err := Decode(enc.Bits, tree)
	require.NoError(t, err)
	require.Equal(t, data, decoded)

	_, err = Decode([]byte("01"), tree)
	require.ErrorIs(t, err, ErrInvalidBit)
}

func TestEmpty(t *testing.T) {
	_, err := BuildTree(freq.Count(nil))
	require.ErrorIs(t, err, ErrEmptyTable)

	enc, err := Encode(nil, mustTree(t, []byte("ab")).Codes())
	require.NoError(t, err)
	require.Empty(t, enc.Bits)
	require.Zero(t, enc.Stats.Ratio())
}

func TestErrors(t *testing.T) {
	tree := mustTree(t, []byte("AAAAABBBCCD"))

	_, err := Encode([]byte("ABE"), tree.Codes())
	require.ErrorIs(t, err, ErrUnknownSymbol)

	_, err = Decode([]byte("0x"), tree)
	require.ErrorIs(t, err, ErrInvalidBit)

	// "00" stops inside the subtree of C and D.
	_, err = Decode([]byte("100"), tree)
	require.ErrorIs(t, err, ErrTruncated)
}

func TestMarshalTree(t *testing.T) {
	tree := mustTree(t, []byte(gettysburg))
	b, err := tree.MarshalBinary()
	require.NoError(t, err)

	decoded, err := UnmarshalTree(b)
	require.NoError(t, err)
	require.Equal(t, tree.nodes, decoded.nodes)
	require.Equal(t, tree.Codes().String(), decoded.Codes().String())
}

func TestUnmarshalTreeMalformed(t *testing.T) {
	build := func(symbols []byte, weights, children []uint64) []byte {
		var b []byte
		b = protowire.AppendTag(b, fieldSymbols, protowire.BytesType)
		b = protowire.AppendBytes(b, symbols)
		b = appendPacked(b, fieldWeights, weights)
		return appendPacked(b, fieldChildren, children)
	}

	tests := []struct {
		name string
		b    []byte
	}{
		{"no leaves", build(nil, nil, nil)},
		{"weights", build([]byte("ab"), []uint64{1}, []uint64{0, 1})},
		{"child count", build([]byte("ab"), []uint64{1, 1}, []uint64{0})},
		{"duplicate symbol", build([]byte("aa"), []uint64{1, 1}, []uint64{0, 1})},
		{"self reference", build([]byte("ab"), []uint64{1, 1}, []uint64{0, 2})},
		{"shared child", build([]byte("abc"), []uint64{1, 1, 1}, []uint64{0, 1, 1, 3})},
		{"truncated", build([]byte("ab"), []uint64{1, 1}, []uint64{0, 1})[:5]},
	}
	for _, test := range tests {
		_, err := UnmarshalTree(test.b)
		require.ErrorIs(t, err, ErrMalformedTree, test.name)
	}
}

func TestPack(t *testing.T) {
	packed, err := Pack([]byte("10110"))
	require.NoError(t, err)
	require.Equal(t, []byte{0xb0}, packed)

	bits, err := Unpack(packed, 5)
	require.NoError(t, err)
	require.Equal(t, "10110", string(bits))

	_, err = Unpack(packed, 9)
	require.ErrorIs(t, err, ErrTruncated)

	_, err = Pack([]byte("012"))
	require.ErrorIs(t, err, ErrInvalidBit)
}

func FuzzRoundTrip(f *testing.F) {
	f.Add([]byte("AAAAABBBCCD"))
	f.Add([]byte(gettysburg))
	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) == 0 {
			return
		}
		tree := mustTree(t, data)
		enc, err := Encode(data, tree.Codes())
		require.NoError(t, err)

		packed, err := Pack(enc.Bits)
		require.NoError(t, err)
		bits, err := Unpack(packed, len(enc.Bits))
		require.NoError(t, err)

		decoded, err := Decode(bits, tree)
		require.NoError(t, err)
		require.Equal(t, data, decoded)
	})
}

func BenchmarkEncode(b *testing.B) {
	data := []byte(strings.Repeat(gettysburg, 16))
	codes := mustTree(b, data).Codes()
	b.SetBytes(int64(len(data)))
	for i := 0; i < b.N; i++ {
		if _, err := Encode(data, codes); err != nil {
			b.Fatalf("%+v", err)
		}
	}
}
