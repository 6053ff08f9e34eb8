// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calibrate reduces redundant timestamp counter frequency
// measurements to a single cycles-per-second conversion factor.
//
// The harness measures the counter frequency once per run so that
// small measurement jitter averages out. A calibration file that
// fails to decode is not fatal; it is skipped and reported in the
// Factor's Warnings, following the convention of package benchmath.
package calibrate

import (
	"errors"
	"fmt"
	"math"

	"github.com/aclements/go-moremath/stats"
	"github.com/arena-bench/tscstat/tscfmt"
)

// DefaultTolerance is the spread, in cycles per second, above which
// calibrations are reported as disagreeing.
const DefaultTolerance = 1e6

// Options configures Load.
type Options struct {
	// Tolerance is the largest acceptable difference between the
	// highest and lowest calibration, in cycles per second. If
	// zero, DefaultTolerance is used. A negative Tolerance
	// disables the check.
	Tolerance float64
}

// A Factor is a timestamp counter frequency used to convert cycle
// counts to wall-clock time.
type Factor struct {
	// CyclesPerSecond is the mean of all usable calibrations. It
	// is always positive and finite.
	CyclesPerSecond float64

	// Used is the number of calibrations that contributed.
	Used int

	// Min and Max are the extreme calibrations.
	Min, Max float64

	// Warnings lists calibration files that were skipped and any
	// disagreement between the usable ones.
	Warnings []error
}

// ErrNoCalibration is returned when no calibration could be decoded.
// Load reports it as a *NoCalibrationError.
var ErrNoCalibration = errors.New("no calibration available")

// A SourceError records a calibration source that was skipped.
type SourceError struct {
	Name string
	Err  error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("skipping calibration %s: %v", e.Name, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// A NoCalibrationError is returned by Load when no source decoded. It
// matches ErrNoCalibration with errors.Is.
type NoCalibrationError struct {
	// Tried is the number of sources Load was given.
	Tried int

	// Skipped holds the cause for each source, in order.
	Skipped []*SourceError
}

func (e *NoCalibrationError) Error() string {
	switch {
	case e.Tried == 0:
		return "no calibration available: no calibration files"
	case len(e.Skipped) == 1:
		return fmt.Sprintf("no calibration available: %v", e.Skipped[0])
	}
	return fmt.Sprintf("no calibration available: all %d calibration files failed (first: %v)", e.Tried, e.Skipped[0])
}

func (e *NoCalibrationError) Is(target error) bool { return target == ErrNoCalibration }

// A DisagreementError warns that calibrations differ by more than the
// configured tolerance.
type DisagreementError struct {
	Min, Max, Tolerance float64
}

func (e *DisagreementError) Error() string {
	return fmt.Sprintf("calibrations disagree: %.2f MHz to %.2f MHz (spread %.2f MHz exceeds %.2f MHz)",
		e.Min/1e6, e.Max/1e6, (e.Max-e.Min)/1e6, e.Tolerance/1e6)
}

// Load decodes every source and returns their mean frequency.
func Load(srcs []tscfmt.Source, opts Options) (*Factor, error) {
	var (
		vals    []float64
		skipped []*SourceError
	)
	for _, src := range srcs {
		v, err := tscfmt.ReadCalibration(src)
		if err != nil {
			skipped = append(skipped, &SourceError{src.Name(), err})
			continue
		}
		vals = append(vals, v)
	}
	if len(vals) == 0 {
		return nil, &NoCalibrationError{Tried: len(srcs), Skipped: skipped}
	}

	f, err := reduce(vals, opts)
	if err != nil {
		return nil, err
	}
	var warns []error
	for _, se := range skipped {
		warns = append(warns, se)
	}
	f.Warnings = append(warns, f.Warnings...)
	return f, nil
}

// Fixed returns a Factor for a known frequency.
func Fixed(cyclesPerSecond float64) (*Factor, error) {
	if err := tscfmt.CheckFrequency(cyclesPerSecond); err != nil {
		return nil, err
	}
	return &Factor{CyclesPerSecond: cyclesPerSecond, Used: 1, Min: cyclesPerSecond, Max: cyclesPerSecond}, nil
}

// FromValues reduces already-decoded calibrations. Every value must be
// usable (see tscfmt.CheckFrequency).
func FromValues(vals []float64, opts Options) (*Factor, error) {
	if len(vals) == 0 {
		return nil, ErrNoCalibration
	}
	for _, v := range vals {
		if err := tscfmt.CheckFrequency(v); err != nil {
			return nil, err
		}
	}
	return reduce(vals, opts)
}

func reduce(vals []float64, opts Options) (*Factor, error) {
	s := stats.Sample{Xs: vals}
	lo, hi := s.Bounds()
	mean := s.Mean()
	if math.IsInf(mean, 0) {
		// Only possible when values near MaxFloat64 overflow the
		// running sum; fall back to a scaled mean.
		mean = 0
		for _, v := range vals {
			mean += v / float64(len(vals))
		}
	}
	if err := tscfmt.CheckFrequency(mean); err != nil {
		return nil, err
	}

	f := &Factor{CyclesPerSecond: mean, Used: len(vals), Min: lo, Max: hi}
	tol := opts.Tolerance
	if tol == 0 {
		tol = DefaultTolerance
	}
	if tol > 0 && hi-lo > tol {
		f.Warnings = append(f.Warnings, &DisagreementError{lo, hi, tol})
	}
	return f, nil
}

// Spread returns the difference between the highest and lowest
// calibration.
func (f *Factor) Spread() float64 {
	return f.Max - f.Min
}

// Nanoseconds converts a cycle count to nanoseconds.
//
// The multiply happens before the divide in float64, so counts up to
// 2^53 convert without losing integer precision.
func (f *Factor) Nanoseconds(cycles uint64) float64 {
	return float64(cycles) * 1e9 / f.CyclesPerSecond
}

// NanosecondsF is Nanoseconds for a fractional cycle count, such as a
// mean.
func (f *Factor) NanosecondsF(cycles float64) float64 {
	return cycles * 1e9 / f.CyclesPerSecond
}

// Cycles converts nanoseconds back to cycles.
func (f *Factor) Cycles(ns float64) float64 {
	return ns * f.CyclesPerSecond / 1e9
}

// String formats f for diagnostics, e.g. "2994.32 MHz (3 calibrations)".
func (f *Factor) String() string {
	s := "s"
	if f.Used == 1 {
		s = ""
	}
	return fmt.Sprintf("%.2f MHz (%d calibration%s)", f.CyclesPerSecond/1e6, f.Used, s)
}
