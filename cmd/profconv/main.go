// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command profconv is a thin demonstration binary wiring perffile,
// convert, and profile together: it reads a perf.data capture, drives
// a Converter from its records, and writes the resulting profile as
// JSON. Where a dump command prints a capture's raw structure,
// profconv turns one into a consumable profile document.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/rs/zerolog"

	"github.com/mstange/samply-sub000/convert"
	"github.com/mstange/samply-sub000/perffile"
)

func main() {
	var (
		flagInput       = flag.String("i", "perf.data", "input perf.data `file`")
		flagOutput      = flag.String("o", "-", "output profile JSON `file` (- for stdout)")
		flagProductName = flag.String("product", "profconv", "profile product `name`")
		flagKernelMin   = flag.Uint64("kernel-min", 0xffff800000000000, "lowest `address` considered kernel space")
		flagVerbose     = flag.Bool("v", false, "log diagnostics to stderr instead of discarding them")
	)
	flag.Parse()
	if flag.NArg() > 0 {
		flag.Usage()
		os.Exit(1)
	}

	logger := zerolog.Nop()
	if *flagVerbose {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}

	f, err := perffile.Open(*flagInput)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	c := convert.New(convert.Options{
		ProductName: *flagProductName,
		KernelMin:   *flagKernelMin,
		Logger:      logger,
	})

	rs := f.Records(perffile.RecordsTimeOrder)
	for rs.Next() {
		perffile.Dispatch(c, rs.Record)
	}
	if err := rs.Err(); err != nil {
		log.Fatal(err)
	}

	prof := c.Finish()
	data, err := prof.Serialize()
	if err != nil {
		log.Fatal(err)
	}

	if *flagOutput == "-" {
		fmt.Println(string(data))
		return
	}
	if err := os.WriteFile(*flagOutput, data, 0644); err != nil {
		log.Fatal(err)
	}
}
