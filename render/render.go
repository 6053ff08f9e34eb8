// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render formats the outcomes of a pipeline run.
//
// Every format implements Renderer. Renderers only read outcomes and
// never compute statistics of their own beyond grouping and ordering.
package render

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arena-bench/tscstat/pipeline"
)

// A Renderer writes outcomes to w in some output format.
type Renderer interface {
	Render(w io.Writer, outcomes []*pipeline.Outcome) error
}

// Formats lists the names accepted by ByName.
var Formats = []string{"text", "csv", "html", "latex"}

// ByName returns the Renderer with the given format name.
func ByName(name string) (Renderer, error) {
	switch strings.ToLower(name) {
	case "text", "":
		return &Text{}, nil
	case "csv":
		return &CSV{}, nil
	case "html":
		return &HTML{}, nil
	case "latex", "tex":
		return &LaTeX{}, nil
	}
	return nil, fmt.Errorf("unknown format %q (want one of %s)", name, strings.Join(Formats, ", "))
}

// byTest splits outcomes by test, keeping the order of first
// appearance of each test and the input order within a test.
func byTest(outcomes []*pipeline.Outcome) (tests []string, groups map[string][]*pipeline.Outcome) {
	groups = make(map[string][]*pipeline.Outcome)
	for _, o := range outcomes {
		t := o.Group.Key.Test
		if _, ok := groups[t]; !ok {
			tests = append(tests, t)
		}
		groups[t] = append(groups[t], o)
	}
	return tests, groups
}

// An allocatorSeries is the iteration mean of one allocator at each
// size.
type allocatorSeries struct {
	Allocator string
	Points    []point
}

type point struct {
	Size int
	Mean float64 // ns
}

// series collects the sized, successful outcomes of one test into
// one series per allocator. Allocators are sorted by name and points
// by size.
func series(outcomes []*pipeline.Outcome) []allocatorSeries {
	idx := make(map[string]int)
	var out []allocatorSeries
	for _, o := range outcomes {
		k := o.Group.Key
		if o.Report == nil || k.Size == pipeline.NoSize {
			continue
		}
		i, ok := idx[k.Allocator]
		if !ok {
			i = len(out)
			idx[k.Allocator] = i
			out = append(out, allocatorSeries{Allocator: k.Allocator})
		}
		out[i].Points = append(out[i].Points, point{k.Size, o.Report.IterationMean})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Allocator < out[j].Allocator })
	for _, s := range out {
		sort.SliceStable(s.Points, func(i, j int) bool { return s.Points[i].Size < s.Points[j].Size })
	}
	return out
}
