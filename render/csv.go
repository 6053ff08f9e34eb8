// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscunit"
)

// CSV renders one row per group with exact values in nanoseconds.
type CSV struct{}

var csvHeader = []string{
	"test", "allocator", "size", "runs", "samples", "unique",
	"mean_ns", "median_ns", "stddev_ns", "min_ns", "max_ns", "p95_ns", "p99_ns",
	"iteration_mean_ns", "outlier_percentile", "cutoff_ns", "excluded", "filtered_mean_ns",
	"cycles_per_second", "error",
}

func (*CSV) Render(w io.Writer, outcomes []*pipeline.Outcome) error {
	cw := csv.NewWriter(w)
	cw.Write(csvHeader)
	num := tscunit.RawScaler.Format
	for _, o := range outcomes {
		k := o.Group.Key
		row := make([]string, len(csvHeader))
		row[0], row[1] = k.Test, k.Allocator
		if k.Size != pipeline.NoSize {
			row[2] = strconv.Itoa(k.Size)
		}
		if o.Err != nil {
			row[len(row)-1] = o.Err.Error()
			cw.Write(row)
			continue
		}
		r := o.Report
		s := r.Summary
		copy(row[3:], []string{
			strconv.Itoa(r.Runs), strconv.Itoa(s.N), strconv.Itoa(r.Unique),
			num(s.Mean), num(s.Median), num(s.StdDev), num(s.Min), num(s.Max), num(s.P95), num(s.P99),
			num(r.IterationMean),
		})
		if r.Outliers != nil {
			row[14] = num(r.Outliers.Percentile)
			row[15] = num(r.Outliers.Cutoff)
			row[16] = strconv.Itoa(r.Outliers.Excluded)
			row[17] = num(r.Filtered.Mean)
		}
		row[18] = num(r.CyclesPerSecond)
		cw.Write(row)
	}
	cw.Flush()
	return cw.Error()
}
