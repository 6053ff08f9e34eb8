// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/tscfmt"
	"github.com/arena-bench/tscstat/tscunit"
)

// extremes is the number of smallest and largest samples decode
// prints.
const extremes = 10

func (a *app) decodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode file...",
		Short: "Dump run files",
		Args:  usageArgs(cobra.MinimumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f *calibrate.Factor
			if hz := a.v.GetFloat64("cpu-freq"); hz != 0 {
				var err error
				if f, err = calibrate.Fixed(hz); err != nil {
					return usageError{fmt.Errorf("cpu-freq: %w", err)}
				}
			}
			bad := false
			for i, name := range args {
				if i > 0 {
					fmt.Fprintln(a.stdout)
				}
				rec, err := tscfmt.ReadRecord(tscfmt.FileSource(name))
				if err != nil {
					a.log.WithField("path", name).Error(err)
					bad = true
					continue
				}
				if err := dump(a.stdout, name, rec, f); err != nil {
					return err
				}
			}
			if bad {
				return errFailed
			}
			return nil
		},
	}
}

// dump prints the totals, average and extreme samples of rec. If f is
// not nil, the average is also shown in nanoseconds.
func dump(w io.Writer, name string, rec *tscfmt.Record, f *calibrate.Factor) error {
	avg, err := rec.Summary.Average()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  total cycles  %d\n", rec.Summary.TotalCycles)
	fmt.Fprintf(w, "  iterations    %d\n", rec.Summary.Iterations)
	fmt.Fprintf(w, "  samples       %d\n", len(rec.Samples))
	fmt.Fprintf(w, "  average       %.2f cycles", avg)
	if f != nil {
		fmt.Fprintf(w, " (%s)", tscunit.Scale(f.NanosecondsF(avg), tscunit.Duration))
	}
	fmt.Fprintln(w)

	sorted := slices.Clone(rec.Samples)
	slices.Sort(sorted)
	n := min(extremes, len(sorted))
	fmt.Fprintf(w, "  smallest      %s\n", join(sorted[:n]))
	_, err = fmt.Fprintf(w, "  largest       %s\n", join(sorted[len(sorted)-n:]))
	return err
}

func join(vals []uint64) string {
	s := make([]string, len(vals))
	for i, v := range vals {
		s[i] = strconv.FormatUint(v, 10)
	}
	return strings.Join(s, " ")
}
