// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tscmath computes distributional statistics over aggregated
// allocation timings.
//
// All values are in nanoseconds after conversion with a calibrated
// timestamp counter frequency. Percentiles use linear interpolation
// between the closest ranks (Hyndman and Fan's definition 7, the
// default of most numerical packages). Standard deviations are
// population standard deviations.
package tscmath

import (
	"errors"
	"math"
	"sort"

	"github.com/aclements/go-moremath/stats"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptySampleSet is returned when there are no samples to
// summarize.
var ErrEmptySampleSet = errors.New("empty sample set")

// A Summary holds the descriptive statistics of a population.
type Summary struct {
	N      int
	Mean   float64
	Median float64
	StdDev float64
	Min    float64
	Max    float64
	P95    float64
	P99    float64
}

// Summarize computes the Summary of sorted, which must be in
// ascending order.
func Summarize(sorted []float64) (Summary, error) {
	if len(sorted) == 0 {
		return Summary{}, ErrEmptySampleSet
	}
	s := stats.Sample{Xs: sorted, Sorted: true}
	lo, hi := s.Bounds()
	_, variance := stat.PopMeanVariance(sorted, nil)
	return Summary{
		N:      len(sorted),
		Mean:   s.Mean(),
		Median: Percentile(sorted, 50),
		StdDev: math.Sqrt(math.Max(variance, 0)),
		Min:    lo,
		Max:    hi,
		P95:    Percentile(sorted, 95),
		P99:    Percentile(sorted, 99),
	}, nil
}

// SummarizeValues is Summarize for values in any order. values is not
// modified.
func SummarizeValues(values []float64) (Summary, error) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return Summarize(sorted)
}

// Percentile returns the p'th percentile of sorted, for p in [0, 100],
// interpolating linearly between the two closest ranks. sorted must be
// non-empty and in ascending order; p outside [0, 100] is clamped.
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[n-1]
	}
	h := float64(n-1) * p / 100
	i := int(math.Floor(h))
	if i >= n-1 {
		return sorted[n-1]
	}
	a, b := sorted[i], sorted[i+1]
	v := a + (b-a)*(h-float64(i))
	// Keep rounding from escaping the bracketing ranks.
	return math.Min(math.Max(v, a), b)
}
