package symcode

import (
	"bytes"
	"reflect"
	"strings"
	"testing"

	"github.com/fumin/symcode/arith"
	"github.com/fumin/symcode/freq"
	"github.com/pkg/errors"
)

func TestNames(t *testing.T) {
	names := Names()
	expected := []string{"arithmetic", "huffman", "lzw"}
	if !reflect.DeepEqual(names, expected) {
		t.Fatalf("%v %v", names, expected)
	}

	_, err := New(Options{Codec: "zip"})
	if errors.Cause(err) != ErrUnknownCodec {
		t.Fatalf("%v", err)
	}
}

func TestEmpty(t *testing.T) {
	for _, name := range Names() {
		c, err := New(Options{Codec: name})
		if err != nil {
			t.Fatalf("%v", err)
		}
		a, err := c.Encode(nil)
		if err != nil {
			t.Fatalf("%s %+v", name, err)
		}
		if a.Size() != 0 {
			t.Errorf("%s %d", name, a.Size())
		}

		var buf bytes.Buffer
		if _, err := CompressBytes(&buf, []byte{}, c); err != nil {
			t.Fatalf("%s %+v", name, err)
		}
		decoded, err := DecompressBytes(buf.Bytes())
		if err != nil {
			t.Fatalf("%s %+v", name, err)
		}
		if decoded == nil || len(decoded) != 0 {
			t.Errorf("%s %#v", name, decoded)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	inputs := []string{
		"a",
		"AAAAABBBCCD",
		"TOBEORNOTTOBEORTOBEORNOT",
		"ab\nba\n\nabc",
		"\n\n\n",
		strings.Repeat("the quick brown fox jumps over the lazy dog\n", 20),
		string([]byte{0, 255, 0, 1, 254, 0}),
	}
	for _, name := range Names() {
		c, err := New(Options{Codec: name})
		if err != nil {
			t.Fatalf("%v", err)
		}
		for _, input := range inputs {
			a, err := c.Encode([]byte(input))
			if err != nil {
				t.Fatalf("%s %q %+v", name, input, err)
			}
			if a.Codec != name {
				t.Errorf("%s %s", a.Codec, name)
			}
			if a.Report.Symbols != len(input) {
				t.Errorf("%s %q %d", name, input, a.Report.Symbols)
			}
			decoded, err := c.Decode(a)
			if err != nil {
				t.Fatalf("%s %q %+v", name, input, err)
			}
			if !Verify([]byte(input), decoded) {
				t.Errorf("%s %q %q", name, input, decoded)
			}
		}
	}
}

func TestArithmeticLines(t *testing.T) {
	data := []byte("ab\nba\n\nabc")
	a1, err := Arithmetic{Parallelism: 1}.Encode(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	a4, err := Arithmetic{Parallelism: 4}.Encode(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !bytes.Equal(a1.Primary, a4.Primary) || !bytes.Equal(a1.Side, a4.Side) {
		t.Fatalf("%q %q", a1.Primary, a4.Primary)
	}

	// One numeral for each of "ab\n", "ba\n", "\n" and "abc".
	numerals := strings.Split(strings.TrimSuffix(string(a1.Primary), "\n"), "\n")
	if len(numerals) != 4 {
		t.Fatalf("%q", a1.Primary)
	}

	decoded, err := Arithmetic{Parallelism: 2}.Decode(a1)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !Verify(data, decoded) {
		t.Fatalf("%q", decoded)
	}
}

func TestArithmeticPrecision(t *testing.T) {
	data := []byte(strings.Repeat("AB", 100))
	if _, err := (Arithmetic{Precision: 64}).Encode(data); err == nil {
		t.Fatalf("expected precision to run out")
	}

	a, err := Arithmetic{Precision: 1024}.Encode(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// The precision travels with the artifact, so a default decoder suffices.
	decoded, err := Arithmetic{}.Decode(a)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !Verify(data, decoded) {
		t.Fatalf("%q", decoded)
	}
}

func TestHuffmanPacked(t *testing.T) {
	data := []byte("AAAAABBBCCD")
	plain, err := Huffman{}.Encode(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if string(plain.Primary) != "11111010101000000001" {
		t.Fatalf("%q", plain.Primary)
	}

	packed, err := Huffman{Packed: true}.Encode(data)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if len(packed.Primary) != 3 {
		t.Fatalf("%d", len(packed.Primary))
	}
	decoded, err := Huffman{}.Decode(packed)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !Verify(data, decoded) {
		t.Fatalf("%q", decoded)
	}
}

func TestMalformedSide(t *testing.T) {
	artifacts := []struct {
		c Codec
		a *Artifact
	}{
		{Huffman{}, &Artifact{Primary: []byte("0101"), Side: []byte{0xff}}},
		{Huffman{}, &Artifact{Primary: []byte("0101")}},
		{Huffman{}, &Artifact{Primary: []byte("0101"), Side: appendBytesField(nil, huffFieldTree, []byte{0x0a})}},
		{Arithmetic{}, &Artifact{Primary: []byte("0.5\n")}},
		{Arithmetic{}, &Artifact{Primary: []byte("0.5\n"), Side: []byte{0x0a, 0x05}}},
		{LZW{}, &Artifact{Primary: []byte{0, 'a'}, Side: []byte{0x08}}},
		// Line lengths that do not add up to the two symbols of the table.
		{Arithmetic{}, &Artifact{Primary: []byte("0.5\n"), Side: arithSide(t, "ab", []uint64{1, 1}, []uint64{1 << 63})}},
		{Arithmetic{}, &Artifact{Primary: []byte("0.5\n"), Side: arithSide(t, "ab", []uint64{1, 1}, []uint64{1})}},
		{Arithmetic{}, &Artifact{Primary: []byte("0.5\n0.5\n"), Side: arithSide(t, "ab", []uint64{1, 1}, []uint64{1 << 63, 1 << 63})}},
	}
	for i, test := range artifacts {
		_, err := test.c.Decode(test.a)
		if errors.Cause(err) != ErrMalformedSide {
			t.Errorf("%d %v", i, err)
		}
	}

	// Consistent, but too long to decode at any precision.
	huge := &Artifact{Primary: []byte("0.5\n"), Side: arithSide(t, "a", []uint64{1 << 62}, []uint64{1 << 62})}
	if _, err := (Arithmetic{}).Decode(huge); errors.Cause(err) != arith.ErrPrecisionExhausted {
		t.Errorf("%v", err)
	}
}

func arithSide(t *testing.T, symbols string, counts, lengths []uint64) []byte {
	table, err := freq.New([]byte(symbols), counts)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	tableB, err := table.MarshalBinary()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	side := appendBytesField(nil, arithFieldTable, tableB)
	return appendPackedField(side, arithFieldLengths, lengths)
}

func TestContainer(t *testing.T) {
	data := []byte("TOBEORNOTTOBEORTOBEORNOT")
	var buf bytes.Buffer
	if _, err := CompressBytes(&buf, data, LZW{}); err != nil {
		t.Fatalf("%+v", err)
	}
	b := buf.Bytes()

	cont, err := UnmarshalContainer(b)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if cont.Codec != "lzw" || cont.Size != len(data) {
		t.Fatalf("%+v", cont)
	}
	if err := cont.Check(data); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := cont.Check(data[1:]); errors.Cause(err) != ErrChecksum {
		t.Fatalf("%v", err)
	}

	// A container whose checksum disagrees with what it decodes to.
	cont.Checksum++
	tampered, err := cont.MarshalBinary()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := DecompressBytes(tampered); errors.Cause(err) != ErrChecksum {
		t.Fatalf("%v", err)
	}

	// Truncation cuts into the fixed size checksum.
	if _, err := DecompressBytes(b[:len(b)-3]); errors.Cause(err) != ErrMalformedContainer {
		t.Fatalf("%v", err)
	}

	cont.Codec = "zip"
	unknown, err := cont.MarshalBinary()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if _, err := DecompressBytes(unknown); errors.Cause(err) != ErrUnknownCodec {
		t.Fatalf("%v", err)
	}
}

func TestRatio(t *testing.T) {
	if r := Ratio(100, 0); r != 0 {
		t.Errorf("%f", r)
	}
	if r := Ratio(100, 25); r != 4 {
		t.Errorf("%f", r)
	}
	if Verify([]byte("a"), []byte("b")) {
		t.Errorf("verified different data")
	}
	if !Verify(nil, []byte{}) {
		t.Errorf("empty inputs differ")
	}
}
