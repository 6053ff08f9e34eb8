// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/arena-bench/tscstat/internal/texttab"
	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscunit"
)

// Averages renders, for each test, the mean time per iteration as a
// size by allocator matrix. Groups without a size are left out.
type Averages struct{}

func (*Averages) Render(w io.Writer, outcomes []*pipeline.Outcome) error {
	tests, groups := byTest(outcomes)
	first := true
	for _, t := range tests {
		ss := series(groups[t])
		if len(ss) == 0 {
			continue
		}
		if !first {
			fmt.Fprintln(w)
		}
		first = false

		var sizes []int
		seen := make(map[int]bool)
		var vals []float64
		for _, s := range ss {
			for _, p := range s.Points {
				if !seen[p.Size] {
					seen[p.Size] = true
					sizes = append(sizes, p.Size)
				}
				vals = append(vals, p.Mean)
			}
		}
		sort.Ints(sizes)
		sc := tscunit.CommonScale(vals, tscunit.Duration)

		fmt.Fprintf(w, "test: %s\n\n", t)
		var tab texttab.Table
		tab.Row().Num("size")
		for _, s := range ss {
			tab.Num(s.Allocator)
		}
		tab.Header()
		for _, size := range sizes {
			tab.Row().Num(tscunit.Size(size))
			for _, s := range ss {
				cell := "-"
				for _, p := range s.Points {
					if p.Size == size {
						cell = sc.Format(p.Mean)
						break
					}
				}
				tab.Num(cell)
			}
		}
		if err := tab.Format(w); err != nil {
			return err
		}
	}
	return nil
}
