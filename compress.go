package symcode

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/pkg/errors"
)

// Compress compresses the named file with codec c and writes the container to w.
func Compress(w io.Writer, name string, c Codec) error {
	f, err := os.Open(name)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "")
	}

	_, err = CompressBytes(w, data, c)
	return err
}

// CompressBytes compresses data with codec c and writes the container to w.
// The returned artifact carries the codec's report.
func CompressBytes(w io.Writer, data []byte, c Codec) (*Artifact, error) {
	a, err := c.Encode(data)
	if err != nil {
		return nil, errors.Wrap(err, c.Name())
	}
	b, err := Seal(a, data).MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	if _, err := w.Write(b); err != nil {
		return nil, errors.Wrap(err, "")
	}
	return a, nil
}

// Decompress reads a container from r and writes the original data to w.
// The codec is taken from the container, with its default options.
func Decompress(w io.Writer, r io.Reader) error {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return errors.Wrap(err, "")
	}
	data, err := DecompressBytes(b)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

// DecompressBytes decodes a marshaled container and checks the result against its checksum.
func DecompressBytes(b []byte) ([]byte, error) {
	cont, err := UnmarshalContainer(b)
	if err != nil {
		return nil, err
	}
	c, err := New(Options{Codec: cont.Codec})
	if err != nil {
		return nil, err
	}
	data, err := c.Decode(&cont.Artifact)
	if err != nil {
		return nil, errors.Wrap(err, c.Name())
	}
	if err := cont.Check(data); err != nil {
		return nil, err
	}
	return data, nil
}
