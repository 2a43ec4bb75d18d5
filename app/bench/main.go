package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"

	"github.com/fumin/symcode"
	"github.com/golang/snappy"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

var (
	flagConfig = flag.String("c", `{
		"Files": ["gettysburg.txt"],
		"Codecs": [
			{"codec": "arithmetic"},
			{"codec": "huffman"},
			{"codec": "huffman", "packed": true},
			{"codec": "lzw"}
		],
		"Baseline": true
		}`, "configuration")
)

type Config struct {
	Files  []string
	Codecs []symcode.Options
	// Baseline adds snappy to the codecs.
	Baseline bool
	// Parallelism bounds the number of runs at once, zero for GOMAXPROCS.
	Parallelism int
}

// A Result is one codec run on one file.
type Result struct {
	File     string
	Codec    string
	Original int
	Encoded  int
	Encode   time.Duration
	Decode   time.Duration
	Verified bool
}

func (r Result) Ratio() float64 {
	return symcode.Ratio(r.Original, r.Encoded)
}

func codecLabel(opts symcode.Options) string {
	label := opts.Codec
	switch {
	case opts.Precision > 0:
		label += fmt.Sprintf(" p%d", opts.Precision)
	case opts.Packed:
		label += " packed"
	case opts.MaxTableSize > 0:
		label += fmt.Sprintf(" %d", opts.MaxTableSize)
	}
	return label
}

func measure(data []byte, opts symcode.Options) (Result, error) {
	r := Result{Codec: codecLabel(opts), Original: len(data)}
	c, err := symcode.New(opts)
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}

	buf := bytes.NewBuffer(nil)
	start := time.Now()
	if _, err := symcode.CompressBytes(buf, data, c); err != nil {
		return Result{}, errors.Wrap(err, "")
	}
	r.Encode = time.Since(start)
	r.Encoded = buf.Len()

	start = time.Now()
	decoded, err := symcode.DecompressBytes(buf.Bytes())
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}
	r.Decode = time.Since(start)
	r.Verified = symcode.Verify(data, decoded)
	return r, nil
}

func measureSnappy(data []byte) (Result, error) {
	r := Result{Codec: "snappy", Original: len(data)}

	start := time.Now()
	encoded := snappy.Encode(nil, data)
	r.Encode = time.Since(start)
	r.Encoded = len(encoded)

	start = time.Now()
	decoded, err := snappy.Decode(nil, encoded)
	if err != nil {
		return Result{}, errors.Wrap(err, "")
	}
	r.Decode = time.Since(start)
	r.Verified = symcode.Verify(data, decoded)
	return r, nil
}

func run(config Config) ([]Result, error) {
	runsPerFile := len(config.Codecs)
	if config.Baseline {
		runsPerFile++
	}
	results := make([]Result, len(config.Files)*runsPerFile)

	parallelism := config.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	inputs := make([][]byte, len(config.Files))
	for i, fpath := range config.Files {
		data, err := ioutil.ReadFile(fpath)
		if err != nil {
			return nil, errors.Wrap(err, "")
		}
		inputs[i] = data
	}

	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, fpath := range config.Files {
		data := inputs[i]
		file := filepath.Base(fpath)

		for j := 0; j < runsPerFile; j++ {
			idx := i*runsPerFile + j
			j := j
			g.Go(func() error {
				var r Result
				var err error
				if j < len(config.Codecs) {
					r, err = measure(data, config.Codecs[j])
				} else {
					r, err = measureSnappy(data)
				}
				if err != nil {
					return errors.Wrap(err, file)
				}
				r.File = file
				results[idx] = r
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func render(w io.Writer, results []Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"File", "Codec", "Original", "Encoded", "Ratio", "Encode", "Decode", "Verified"})
	table.SetAlignment(tablewriter.ALIGN_RIGHT)
	for _, r := range results {
		table.Append([]string{
			r.File,
			r.Codec,
			strconv.Itoa(r.Original),
			strconv.Itoa(r.Encoded),
			strconv.FormatFloat(r.Ratio(), 'f', 3, 64),
			r.Encode.Round(time.Microsecond).String(),
			r.Decode.Round(time.Microsecond).String(),
			strconv.FormatBool(r.Verified),
		})
	}
	table.Render()
}

func parseConfig() (Config, error) {
	config := Config{}
	if err := json.Unmarshal([]byte(*flagConfig), &config); err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	configB, err := json.Marshal(config)
	if err != nil {
		return Config{}, errors.Wrap(err, "")
	}
	log.Printf("config: %s", configB)
	return config, nil
}

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	config, err := parseConfig()
	if err != nil {
		log.Fatalf("%+v", err)
	}
	results, err := run(config)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	render(os.Stdout, results)

	for _, r := range results {
		if !r.Verified {
			log.Fatalf("%s %s: decoded data differs from the original", r.File, r.Codec)
		}
	}
}
