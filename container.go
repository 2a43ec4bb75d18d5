package symcode

import (
	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

var (
	// ErrMalformedContainer is returned when a container cannot be parsed.
	ErrMalformedContainer = errors.New("symcode: malformed container")

	// ErrChecksum is returned when decoded data does not match the container's checksum.
	ErrChecksum = errors.New("symcode: checksum mismatch")
)

const (
	containerFieldCodec    = 1
	containerFieldPrimary  = 2
	containerFieldSide     = 3
	containerFieldSize     = 4
	containerFieldChecksum = 5
)

// A Container holds an artifact together with the size and xxhash64 digest of the original data,
// so that a decoder can check that it reproduced the original exactly.
type Container struct {
	Artifact
	Size     int
	Checksum uint64
}

// Seal wraps the artifact encoded from original.
func Seal(a *Artifact, original []byte) *Container {
	return &Container{Artifact: *a, Size: len(original), Checksum: xxhash.Sum64(original)}
}

// Check returns ErrChecksum if data is not the original the container was sealed with.
func (c *Container) Check(data []byte) error {
	if len(data) != c.Size {
		return errors.Wrapf(ErrChecksum, "size %d, expected %d", len(data), c.Size)
	}
	if sum := xxhash.Sum64(data); sum != c.Checksum {
		return errors.Wrapf(ErrChecksum, "digest %016x, expected %016x", sum, c.Checksum)
	}
	return nil
}

// MarshalBinary encodes the container in protobuf wire format.
func (c *Container) MarshalBinary() ([]byte, error) {
	var b []byte
	b = appendBytesField(b, containerFieldCodec, []byte(c.Codec))
	b = appendBytesField(b, containerFieldPrimary, c.Primary)
	if len(c.Side) > 0 {
		b = appendBytesField(b, containerFieldSide, c.Side)
	}
	b = appendVarintField(b, containerFieldSize, uint64(c.Size))
	b = protowire.AppendTag(b, containerFieldChecksum, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, c.Checksum)
	return b, nil
}

// UnmarshalContainer decodes a container encoded by MarshalBinary.
func UnmarshalContainer(b []byte) (*Container, error) {
	fields, err := parseFields(b, ErrMalformedContainer)
	if err != nil {
		return nil, err
	}

	c := &Container{}
	var hasChecksum bool
	for _, f := range fields {
		switch {
		case f.num == containerFieldCodec && f.typ == protowire.BytesType:
			c.Codec = string(f.bytes)
		case f.num == containerFieldPrimary && f.typ == protowire.BytesType:
			c.Primary = f.bytes
		case f.num == containerFieldSide && f.typ == protowire.BytesType:
			c.Side = f.bytes
		case f.num == containerFieldSize && f.typ == protowire.VarintType:
			c.Size = int(f.value)
		case f.num == containerFieldChecksum && f.typ == protowire.Fixed64Type:
			c.Checksum = f.value
			hasChecksum = true
		}
	}
	if c.Codec == "" {
		return nil, errors.Wrap(ErrMalformedContainer, "missing codec")
	}
	if !hasChecksum {
		return nil, errors.Wrap(ErrMalformedContainer, "missing checksum")
	}
	return c, nil
}
