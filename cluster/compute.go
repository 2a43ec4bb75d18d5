package main

import (
	"bytes"
	"flag"
	"io/ioutil"
	"log"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fumin/symcode"
	"github.com/golang/snappy"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
)

var (
	intelligenceType = flag.String("i", "lzw", "compressor, one of snappy, "+strings.Join(symcode.Names(), ", "))
	dataDir          = flag.String("d", "mammals10", "data directory")
	cacheSize        = flag.Int("cache", 128, "number of file complexities to remember")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	if err := run(*intelligenceType, *dataDir, *cacheSize); err != nil {
		log.Fatalf("%+v", err)
	}
}

func run(intelligence, dir string, cacheSize int) error {
	data, err := listFiles(dir)
	if err != nil {
		return errors.Wrap(err, "")
	}
	k, err := newComplexity(intelligence, cacheSize)
	if err != nil {
		return errors.Wrap(err, "")
	}
	distMat, err := distanceMatrix(k, data)
	if err != nil {
		return errors.Wrap(err, "")
	}

	if err := display(data, distMat); err != nil {
		return errors.Wrap(err, "")
	}
	return nil
}

func display(data []string, distMat []float64) error {
	// Print data as a comma separated array.
	buf := bytes.NewBuffer(nil)
	for i, fpath := range data {
		name := filepath.Base(fpath)
		buf.WriteString(strconv.Quote(strings.TrimSuffix(name, filepath.Ext(name))))
		if i < len(data)-1 {
			buf.WriteByte(',')
		}
	}
	log.Printf("[%s]", buf.Bytes())

	// Print distance matrix as a comma separated array.
	buf.Reset()
	for i, f := range distMat {
		buf.WriteString(strconv.FormatFloat(f, 'f', -1, 64))
		if i < len(distMat)-1 {
			buf.WriteByte(',')
		}
	}
	log.Printf("[%s]", buf.Bytes())

	return nil
}

// complexity approximates the Kolmogorov complexity of data by its compressed size.
type complexity struct {
	compress func([]byte) (int, error)
	cacher   *lru.Cache[string, float64]
}

func newComplexity(intelligence string, cacheSize int) (*complexity, error) {
	cacher, err := lru.New[string, float64](cacheSize)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	k := &complexity{cacher: cacher}

	if intelligence == "snappy" {
		k.compress = func(b []byte) (int, error) {
			return len(snappy.Encode(nil, b)), nil
		}
		return k, nil
	}
	c, err := symcode.New(symcode.Options{Codec: intelligence})
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	k.compress = func(b []byte) (int, error) {
		buf := bytes.NewBuffer(nil)
		if _, err := symcode.CompressBytes(buf, b, c); err != nil {
			return -1, errors.Wrap(err, "")
		}
		return buf.Len(), nil
	}
	return k, nil
}

// file returns the complexity of the file at fpath, remembering it.
func (k *complexity) file(fpath string) (float64, error) {
	if size, ok := k.cacher.Get(fpath); ok {
		return size, nil
	}
	b, err := ioutil.ReadFile(fpath)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	n, err := k.compress(b)
	if err != nil {
		return -1, errors.Wrap(err, fpath)
	}
	size := float64(n)
	k.cacher.Add(fpath, size)
	return size, nil
}

// concat returns the complexity of the files concatenated in order.
func (k *complexity) concat(fs ...string) (float64, error) {
	buf := bytes.NewBuffer(nil)
	for _, fpath := range fs {
		b, err := ioutil.ReadFile(fpath)
		if err != nil {
			return -1, errors.Wrap(err, "")
		}
		buf.Write(b)
	}
	n, err := k.compress(buf.Bytes())
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	return float64(n), nil
}

// distance returns the normalized compression distance between the files x and y.
func distance(k *complexity, x, y string) (float64, error) {
	kxy, err := k.concat(x, y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	kx, err := k.file(x)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}
	ky, err := k.file(y)
	if err != nil {
		return -1, errors.Wrap(err, "")
	}

	minxy := kx
	if ky < kx {
		minxy = ky
	}
	maxxy := kx
	if ky > kx {
		maxxy = ky
	}
	if maxxy == 0 {
		return 0, nil
	}

	dist := (kxy - minxy) / maxxy
	return dist, nil
}

func distanceMatrix(k *complexity, data []string) ([]float64, error) {
	n := len(data)
	if n < 2 {
		return nil, errors.Errorf("need at least two files, got %d", n)
	}
	mat := make([]float64, 0, n*(n-1)/2)
	for i, dx := range data[:n-1] {
		for _, dy := range data[i+1:] {
			dist, err := distance(k, dx, dy)
			if err != nil {
				return nil, errors.Wrap(err, "")
			}
			mat = append(mat, dist)
			log.Printf("%q-%q: %f", dx, dy, dist)
		}
	}
	return mat, nil
}

func listFiles(dir string) ([]string, error) {
	files, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "")
	}
	data := make([]string, 0, len(files))
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		fpath := filepath.Join(dir, f.Name())
		data = append(data, fpath)
	}
	return data, nil
}
