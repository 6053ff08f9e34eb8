// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tscmath

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/arena-bench/tscstat/aggregate"
	"github.com/arena-bench/tscstat/calibrate"
)

// Options selects the optional filters of Analyze. The zero Options
// requests no filtering.
type Options struct {
	// OutlierPercentile, if non-zero, excludes samples strictly
	// above this percentile from the filtered population. It must
	// be in the open interval (0, 100).
	OutlierPercentile float64

	// TopN, if non-zero, keeps only the TopN most frequent
	// distinct values in Report.Buckets.
	TopN int

	// MinCount, if non-zero, drops distinct values seen fewer than
	// MinCount times from Report.Buckets. It is applied before TopN.
	MinCount int
}

// ErrInvalidOption is matched by every *OptionError.
var ErrInvalidOption = errors.New("invalid option")

// An OptionError reports an out-of-range Options field.
type OptionError struct {
	Field string
	Value interface{}
	Msg   string
}

func (e *OptionError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Msg)
}

func (e *OptionError) Is(target error) bool {
	return target == ErrInvalidOption
}

// Validate reports whether o is usable.
func (o Options) Validate() error {
	p := o.OutlierPercentile
	if math.IsNaN(p) || p < 0 || p >= 100 {
		return &OptionError{"outlier percentile", p, "must be in (0, 100)"}
	}
	if o.TopN < 0 {
		return &OptionError{"top-n", o.TopN, "must be positive"}
	}
	if o.MinCount < 0 {
		return &OptionError{"min-count", o.MinCount, "must be positive"}
	}
	return nil
}

// Outliers describes the samples removed by an outlier percentile.
type Outliers struct {
	Percentile float64 // requested percentile
	Cutoff     float64 // value of that percentile, in ns
	Excluded   int     // samples strictly above Cutoff
}

// A Bucket is one distinct sample value and how often it occurred.
type Bucket struct {
	Value float64 // ns
	Count int
}

// A Report is the distribution of one group's samples. It is derived
// from immutable inputs and is never modified by this package after
// Analyze returns.
type Report struct {
	// Summary covers the complete, unfiltered population.
	Summary Summary

	// Unique is the number of distinct values in the unfiltered
	// population.
	Unique int

	// Outliers and Filtered are set only when an outlier percentile
	// was requested. Filtered summarizes the retained samples.
	Outliers *Outliers
	Filtered *Summary

	// Buckets are the distinct values of the retained population
	// with their counts, restricted by MinCount and TopN, in
	// ascending order of Value.
	Buckets []Bucket

	// IterationMean is the merged total cycles divided by the
	// merged iteration count, in ns.
	IterationMean float64

	// Runs is the number of run files that contributed.
	Runs int

	// CyclesPerSecond is the conversion factor used.
	CyclesPerSecond float64

	// Options are the options the report was computed with.
	Options Options
}

// Cycles converts a value of r from nanoseconds back to cycles.
func (r *Report) Cycles(ns float64) float64 {
	return ns * r.CyclesPerSecond / 1e9
}

// Analyze converts res to nanoseconds using f and computes its
// distribution.
func Analyze(res *aggregate.Result, f *calibrate.Factor, opts Options) (*Report, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		return nil, calibrate.ErrNoCalibration
	}
	if res == nil || len(res.Samples) == 0 {
		return nil, ErrEmptySampleSet
	}

	ns := make([]float64, len(res.Samples))
	for i, c := range res.Samples {
		ns[i] = f.Nanoseconds(c)
	}
	sort.Float64s(ns)

	sum, err := Summarize(ns)
	if err != nil {
		return nil, err
	}
	r := &Report{
		Summary:         sum,
		Unique:          countUnique(ns),
		Runs:            res.Runs,
		CyclesPerSecond: f.CyclesPerSecond,
		Options:         opts,
	}
	avg, err := res.Summary.Average()
	if err != nil {
		return nil, err
	}
	r.IterationMean = f.NanosecondsF(avg)

	retained := ns
	if p := opts.OutlierPercentile; p != 0 {
		cutoff := Percentile(ns, p)
		// ns is sorted, so the retained values are a prefix.
		k := sort.Search(len(ns), func(i int) bool { return ns[i] > cutoff })
		retained = ns[:k]
		if len(retained) == 0 {
			return nil, ErrEmptySampleSet
		}
		r.Outliers = &Outliers{Percentile: p, Cutoff: cutoff, Excluded: len(ns) - k}
		filtered, err := Summarize(retained)
		if err != nil {
			return nil, err
		}
		r.Filtered = &filtered
	}

	r.Buckets = Histogram(retained, opts.MinCount, opts.TopN)
	return r, nil
}

func countUnique(sorted []float64) int {
	n := 0
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			n++
		}
	}
	return n
}

// Histogram counts the distinct values of sorted. Values seen fewer
// than minCount times are dropped, then only the topN most frequent
// values are kept. Zero minCount or topN disables that filter. The
// result is in ascending order of value.
//
// When several values share the count at the topN cut, the smaller
// values are kept. The choice depends only on the values, never on the
// order in which runs were read.
func Histogram(sorted []float64, minCount, topN int) []Bucket {
	var buckets []Bucket
	for i, v := range sorted {
		if i > 0 && v == sorted[i-1] {
			buckets[len(buckets)-1].Count++
			continue
		}
		buckets = append(buckets, Bucket{v, 1})
	}

	if minCount > 0 {
		kept := buckets[:0]
		for _, b := range buckets {
			if b.Count >= minCount {
				kept = append(kept, b)
			}
		}
		buckets = kept
	}

	if topN > 0 && len(buckets) > topN {
		sort.SliceStable(buckets, func(i, j int) bool {
			return buckets[i].Count > buckets[j].Count
		})
		buckets = buckets[:topN]
		sort.Slice(buckets, func(i, j int) bool {
			return buckets[i].Value < buckets[j].Value
		})
	}
	return buckets
}
