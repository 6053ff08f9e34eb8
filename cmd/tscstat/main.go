// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Tscstat summarizes timestamp counter measurements of memory
// allocators.
//
// Usage:
//
//	tscstat analyze [flags] [test...]
//	tscstat averages [flags] [test...]
//	tscstat decode file...
//
// The log tree is laid out as
//
//	<logs>/<test>/<n>-tsc_freq.bin
//	<logs>/<test>/<allocator>-<size>B/<n>.bin
//
// where each tsc_freq file holds the counter frequency measured
// before a test, and each numbered run file holds the cycle counts of
// one run. The analyze command merges the runs of every group,
// converts them to nanoseconds and prints their distribution. With
// --outlier-percentile, samples above that percentile are excluded
// from the filtered statistics and the histogram. The averages command
// prints the mean time per iteration of every sized group, as a table
// or as a pgfplots figure with --format latex. The decode command dumps
// single run files.
//
// The log tree may also be read from a Google Cloud Storage bucket
// with --gcs.bucket, in which case --logs is the object prefix.
//
// Every flag may also be set in a tscstat.yaml file in the current
// directory or in $HOME/.config/tscstat, or in the environment as
// TSCSTAT_<FLAG>, with dots and dashes replaced by underscores.
//
// Tscstat exits with status 1 if any group failed and 2 on invalid
// usage.
package main

import (
	"fmt"
	"io"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line args and returns the exit status.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	if err == nil {
		return 0
	}
	if err != errFailed {
		fmt.Fprintf(stderr, "tscstat: %v\n", err)
	}
	if isUsage(err) {
		return 2
	}
	return 1
}
