package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/fumin/symcode"
)

var codec = flag.String("codec", "huffman", "one of "+strings.Join(symcode.Names(), ", "))
var precision = flag.Uint("precision", 0, "arithmetic coding precision in bits, 0 to derive it from each line")
var packed = flag.Bool("packed", false, "pack Huffman bits eight to a byte")
var maxTable = flag.Int("maxtable", 0, "LZW dictionary size, 0 for 65536")
var verbose = flag.Bool("verbose", false, "verbosity")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] filename\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	name := flag.Arg(0)
	if name == "" {
		flag.Usage()
		os.Exit(1)
	}
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)

	c, err := symcode.New(symcode.Options{Codec: *codec, Precision: *precision, Packed: *packed, MaxTableSize: *maxTable})
	if err != nil {
		log.Fatalf("%+v", err)
	}
	if !*verbose {
		if err := symcode.Compress(os.Stdout, name, c); err != nil {
			log.Fatalf("%+v", err)
		}
		return
	}

	data, err := ioutil.ReadFile(name)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	a, err := symcode.CompressBytes(os.Stdout, data, c)
	if err != nil {
		log.Fatalf("%+v", err)
	}
	log.Printf("%s: %d symbols, %d bytes primary, %d bytes side, ratio %.4f", c.Name(), a.Report.Symbols, len(a.Primary), len(a.Side), symcode.Ratio(len(data), a.Size()))
	log.Printf("%s", a.Report.Table)
}
