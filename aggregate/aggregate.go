// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package aggregate merges the run files of one allocator/size group
// into a single sample set.
//
// Merging sums the per-run totals field-wise and concatenates the
// per-run samples. Both are order-independent, so the statistics of
// a Result do not depend on the order in which runs were decoded.
// The concatenation order is nevertheless fixed (ascending run
// number) so reports are reproducible.
package aggregate

import (
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/arena-bench/tscstat/tscfmt"
)

// A Result is the merged form of a group of run files. It is not
// modified after Aggregate returns.
type Result struct {
	// Summary is the field-wise sum of every contributing run's
	// totals.
	Summary tscfmt.Summary

	// Samples is the concatenation of every contributing run's
	// samples, in ascending run order.
	Samples []uint64

	// Runs is the number of run files that contributed. It is
	// provenance only and is never used for weighting.
	Runs int

	// Skipped lists the run files that could not be decoded.
	Skipped []*RunError
}

// Warnings returns r.Skipped as a list of errors.
func (r *Result) Warnings() []error {
	var out []error
	for _, e := range r.Skipped {
		out = append(out, e)
	}
	return out
}

// A RunError records a run file that was skipped.
type RunError struct {
	Name string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("skipping run %s: %v", e.Name, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

// ErrEmpty is matched by the error Aggregate returns when no run file
// could be decoded.
var ErrEmpty = errors.New("empty aggregate")

// An EmptyError reports that none of Tried run files were usable.
type EmptyError struct {
	Tried   int
	Skipped []*RunError
}

func (e *EmptyError) Error() string {
	switch {
	case e.Tried == 0:
		return "empty aggregate: no run files"
	case len(e.Skipped) == 1:
		return fmt.Sprintf("empty aggregate: %v", e.Skipped[0])
	}
	return fmt.Sprintf("empty aggregate: all %d run files failed (first: %v)", e.Tried, e.Skipped[0])
}

func (e *EmptyError) Is(target error) bool {
	return target == ErrEmpty
}

// An Aggregator merges run files.
type Aggregator struct {
	// Parallelism bounds the number of run files decoded at once.
	// Zero or one decodes serially.
	Parallelism int
}

// Aggregate merges runs serially. See Aggregator.Aggregate.
func Aggregate(runs []tscfmt.Source) (*Result, error) {
	var a Aggregator
	return a.Aggregate(runs)
}

// Aggregate decodes each of runs and merges the results. runs is not
// modified; a sorted copy determines the merge order.
//
// A run that fails to decode is recorded in Result.Skipped and does
// not stop the others. If no run decodes, Aggregate returns an
// *EmptyError.
func (a *Aggregator) Aggregate(runs []tscfmt.Source) (*Result, error) {
	sorted := append([]tscfmt.Source(nil), runs...)
	tscfmt.SortRuns(sorted)

	type slot struct {
		rec *tscfmt.Record
		err error
	}
	slots := make([]slot, len(sorted))
	decode := func(i int) {
		slots[i].rec, slots[i].err = tscfmt.ReadRecord(sorted[i])
	}
	if a.Parallelism <= 1 {
		for i := range sorted {
			decode(i)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(a.Parallelism)
		for i := range sorted {
			i := i
			g.Go(func() error {
				decode(i)
				return nil
			})
		}
		g.Wait()
	}

	res := &Result{}
	n := 0
	for _, s := range slots {
		if s.err == nil {
			n += len(s.rec.Samples)
		}
	}
	res.Samples = make([]uint64, 0, n)
	for i, s := range slots {
		if s.err != nil {
			res.Skipped = append(res.Skipped, &RunError{sorted[i].Name(), s.err})
			continue
		}
		sum, err := res.Summary.Add(s.rec.Summary)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sorted[i].Name(), err)
		}
		res.Summary = sum
		res.Samples = append(res.Samples, s.rec.Samples...)
		res.Runs++
	}
	if res.Runs == 0 {
		return nil, &EmptyError{Tried: len(sorted), Skipped: res.Skipped}
	}
	return res, nil
}
