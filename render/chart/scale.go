// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package chart

import (
	"fmt"
	"math"
	"strings"
)

// An XScale is the scale of a chart's value axis.
type XScale string

const (
	// XRank places distinct values at consecutive positions in value
	// order, so dense clusters and far outliers are equally visible.
	XRank   XScale = "rank"
	XLinear XScale = "linear"
	XLog    XScale = "log"
)

// A YScale is the scale of a chart's count axis.
type YScale string

const (
	YLinear YScale = "linear"
	YLog    YScale = "log"
	// YSymLog is linear below Options.LinearThreshold and
	// logarithmic above it.
	YSymLog YScale = "symlog"
)

// Scales is one chart's pair of axis scales.
type Scales struct {
	X XScale
	Y YScale
}

func (s Scales) String() string {
	return string(s.X) + ":" + string(s.Y)
}

// DefaultScales are the charts drawn when none are configured.
var DefaultScales = []Scales{{XLog, YLinear}, {XLog, YLog}}

// ParseScales parses a comma-separated list of x:y scale pairs, such
// as "log:linear,rank:symlog".
func ParseScales(s string) ([]Scales, error) {
	var out []Scales
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		x, y, ok := strings.Cut(f, ":")
		if !ok {
			return nil, fmt.Errorf("chart scales %q: want x:y", f)
		}
		sc := Scales{XScale(x), YScale(y)}
		switch sc.X {
		case XRank, XLinear, XLog:
		default:
			return nil, fmt.Errorf("chart scales %q: unknown x scale %q", f, x)
		}
		switch sc.Y {
		case YLinear, YLog, YSymLog:
		default:
			return nil, fmt.Errorf("chart scales %q: unknown y scale %q", f, y)
		}
		out = append(out, sc)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("chart scales %q: empty", s)
	}
	return out, nil
}

// SymLogScale is a plot.Normalizer that is linear within Threshold of
// zero and logarithmic beyond it.
type SymLogScale struct {
	Threshold float64
}

func (s SymLogScale) transform(x float64) float64 {
	t := s.Threshold
	if !(t > 0) {
		t = 1
	}
	return math.Copysign(math.Log10(1+math.Abs(x)/t), x)
}

// Normalize implements plot.Normalizer.
func (s SymLogScale) Normalize(min, max, x float64) float64 {
	lo, hi := s.transform(min), s.transform(max)
	if hi == lo {
		return 0.5
	}
	return (s.transform(x) - lo) / (hi - lo)
}
