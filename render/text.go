// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/arena-bench/tscstat/internal/texttab"
	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscmath"
	"github.com/arena-bench/tscstat/tscunit"
)

// Text renders one aligned table per test.
type Text struct {
	// Buckets also lists the distinct values of each report.
	Buckets bool
}

func (t *Text) Render(w io.Writer, outcomes []*pipeline.Outcome) error {
	tests, groups := byTest(outcomes)
	for i, test := range tests {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := t.renderTest(w, test, groups[test]); err != nil {
			return err
		}
	}
	return nil
}

// column is one duration column of the summary table.
type column struct {
	name string
	get  func(r *tscmath.Report) float64
}

var summaryColumns = []column{
	{"mean", func(r *tscmath.Report) float64 { return r.Summary.Mean }},
	{"median", func(r *tscmath.Report) float64 { return r.Summary.Median }},
	{"stddev", func(r *tscmath.Report) float64 { return r.Summary.StdDev }},
	{"min", func(r *tscmath.Report) float64 { return r.Summary.Min }},
	{"max", func(r *tscmath.Report) float64 { return r.Summary.Max }},
	{"p95", func(r *tscmath.Report) float64 { return r.Summary.P95 }},
	{"p99", func(r *tscmath.Report) float64 { return r.Summary.P99 }},
	{"per-iter", func(r *tscmath.Report) float64 { return r.IterationMean }},
}

var filterColumns = []column{
	{"cutoff", func(r *tscmath.Report) float64 { return r.Outliers.Cutoff }},
	{"filtered mean", func(r *tscmath.Report) float64 { return r.Filtered.Mean }},
}

func (t *Text) renderTest(w io.Writer, test string, outcomes []*pipeline.Outcome) error {
	fmt.Fprintf(w, "test: %s\n", test)
	for _, o := range outcomes {
		if o.Factor != nil {
			fmt.Fprintf(w, "tsc: %s\n", o.Factor)
			break
		}
	}
	fmt.Fprintln(w)

	var reports []*tscmath.Report
	filtered := false
	for _, o := range outcomes {
		if o.Report != nil {
			reports = append(reports, o.Report)
			filtered = filtered || o.Report.Outliers != nil
		}
	}
	cols := summaryColumns
	if filtered {
		cols = append(append([]column(nil), cols...), filterColumns...)
	}
	scalers := make([]tscunit.Scaler, len(cols))
	for i, c := range cols {
		var vals []float64
		for _, r := range reports {
			if i >= len(summaryColumns) && r.Outliers == nil {
				continue
			}
			vals = append(vals, c.get(r))
		}
		scalers[i] = tscunit.CommonScale(vals, tscunit.Duration)
	}

	var tab texttab.Table
	tab.Row().Cell("group").Num("runs").Num("samples").Num("unique")
	for _, c := range cols {
		tab.Num(c.name)
	}
	if filtered {
		tab.Num("excluded")
	}
	tab.Header()

	for _, o := range outcomes {
		tab.Row().Cell(o.Group.Key.Name())
		if o.Err != nil {
			tab.Span(3+len(cols), fmt.Sprintf("%s: %v", o.Err.Stage, o.Err.Err), texttab.Left)
			continue
		}
		r := o.Report
		tab.Num(strconv.Itoa(r.Runs)).Num(strconv.Itoa(r.Summary.N)).Num(strconv.Itoa(r.Unique))
		for i, c := range cols {
			if r.Outliers == nil && i >= len(summaryColumns) {
				tab.Num("-")
				continue
			}
			tab.Num(scalers[i].Format(c.get(r)))
		}
		if filtered {
			if r.Outliers != nil {
				tab.Num(fmt.Sprintf("%d (>p%g)", r.Outliers.Excluded, r.Outliers.Percentile))
			} else {
				tab.Num("-")
			}
		}
	}
	if err := tab.Format(w); err != nil {
		return err
	}

	if t.Buckets {
		for _, o := range outcomes {
			if o.Report == nil {
				continue
			}
			if err := renderBuckets(w, o.Group.Key, o.Report); err != nil {
				return err
			}
		}
	}
	return nil
}

func renderBuckets(w io.Writer, key pipeline.Key, r *tscmath.Report) error {
	if _, err := fmt.Fprintf(w, "\n%s: %d of %d distinct values\n", key.Name(), len(r.Buckets), r.Unique); err != nil {
		return err
	}
	vals := make([]float64, len(r.Buckets))
	for i, b := range r.Buckets {
		vals[i] = b.Value
	}
	sc := tscunit.CommonScale(vals, tscunit.Duration)
	var tab texttab.Table
	tab.Row().Num("value").Num("cycles").Num("count").Header()
	for _, b := range r.Buckets {
		tab.Row().Num(sc.Format(b.Value)).Num(strconv.FormatFloat(r.Cycles(b.Value), 'f', 0, 64)).Num(strconv.Itoa(b.Count))
	}
	return tab.Format(w)
}
