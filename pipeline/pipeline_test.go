// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arena-bench/tscstat/aggregate"
	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/tscfmt"
	"github.com/arena-bench/tscstat/tscmath"
)

func runs(test, group string, n int, samples ...uint64) []tscfmt.Source {
	var total uint64
	for _, s := range samples {
		total += s
	}
	rec := &tscfmt.Record{Summary: tscfmt.Summary{TotalCycles: total, Iterations: uint64(len(samples))}, Samples: samples}
	var out []tscfmt.Source
	for i := 0; i < n; i++ {
		out = append(out, tscfmt.BytesSource(fmt.Sprintf("%s/%s/%d.bin", test, group, i), tscfmt.Encode(rec)))
	}
	return out
}

func cals(test string, cps ...float64) []tscfmt.Source {
	var out []tscfmt.Source
	for i, v := range cps {
		out = append(out, tscfmt.BytesSource(fmt.Sprintf("%s/%d-tsc_freq.bin", test, i), tscfmt.EncodeCalibration(v)))
	}
	return out
}

func TestRun(t *testing.T) {
	c := cals("t", 1e9, 1e9)
	groups := []*Group{
		{Key: Key{"t", "glibc", 64}, Runs: runs("t", "glibc-64B", 3, 100, 100, 100), Calibrations: c},
		{Key: Key{"t", "glibc", 128}, Runs: nil, Calibrations: c},
		{Key: Key{"t", "mimalloc", 64}, Runs: append(runs("t", "mimalloc-64B", 2, 200), tscfmt.BytesSource("t/mimalloc-64B/9.bin", []byte("junk"))), Calibrations: c},
		{Key: Key{"u", "glibc", 64}, Runs: runs("u", "glibc-64B", 1, 5), Calibrations: nil},
	}
	out, err := Run(context.Background(), groups, Config{Workers: 3, DecodeWorkers: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != len(groups) {
		t.Fatalf("got %d outcomes, want %d", len(out), len(groups))
	}
	for i, o := range out {
		if o.Group != groups[i] {
			t.Errorf("outcome %d is for %v, want %v", i, o.Group.Key, groups[i].Key)
		}
	}

	if o := out[0]; o.Err != nil || o.Report.Summary.Mean != 100 || o.Report.Runs != 3 || o.Report.Summary.N != 9 {
		t.Errorf("glibc-64B: %+v %+v", o.Err, o.Report)
	}
	if o := out[1]; o.Err == nil || o.Err.Stage != StageAggregate || !errors.Is(o.Err, aggregate.ErrEmpty) {
		t.Errorf("glibc-128B: got %v, want empty aggregate", o.Err)
	}
	if o := out[2]; o.Err != nil || len(o.Warnings) != 1 || !errors.Is(o.Warnings[0], tscfmt.ErrMalformedRecord) {
		t.Errorf("mimalloc-64B: %v %v", o.Err, o.Warnings)
	}
	if o := out[3]; o.Err == nil || o.Err.Stage != StageCalibrate || !errors.Is(o.Err, calibrate.ErrNoCalibration) {
		t.Errorf("u/glibc-64B: got %v, want no calibration", o.Err)
	}
	if out[0].Factor != out[2].Factor {
		t.Errorf("groups of one test loaded calibration twice")
	}

	want := Stats{Processed: 2, Failed: 2, Skipped: 1}
	if diff := cmp.Diff(want, Summarize(out)); diff != "" {
		t.Errorf("Summarize (-want +got):\n%s", diff)
	}
}

func TestRunCalibrationPerSourceSet(t *testing.T) {
	fast, slow := cals("t", 2e9), []tscfmt.Source{tscfmt.BytesSource("t/other-tsc_freq.bin", tscfmt.EncodeCalibration(1e9))}
	groups := []*Group{
		{Key: Key{"t", "a", NoSize}, Runs: runs("t", "a", 1, 2000), Calibrations: fast},
		{Key: Key{"t", "b", NoSize}, Runs: runs("t", "b", 1, 2000), Calibrations: slow},
		{Key: Key{"t", "c", NoSize}, Runs: runs("t", "c", 1, 2000), Calibrations: cals("t", 2e9)},
	}
	out, err := Run(context.Background(), groups, Config{})
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []float64{1000, 2000, 1000} {
		if o := out[i]; o.Err != nil || o.Report.Summary.Mean != want {
			t.Errorf("group %v: got %v %+v, want mean %v", o.Group.Key, o.Err, o.Report, want)
		}
	}
	if out[0].Factor == out[1].Factor {
		t.Errorf("groups with different calibration files share a factor")
	}
	if out[0].Factor != out[2].Factor {
		t.Errorf("groups with the same calibration files loaded them twice")
	}
}

func TestRunNoCalibrationCauses(t *testing.T) {
	groups := []*Group{{
		Key:  Key{"t", "a", 8},
		Path: "t/a-8B",
		Runs: runs("t", "a-8B", 1, 5),
		Calibrations: []tscfmt.Source{
			tscfmt.BytesSource("t/0-tsc_freq.bin", []byte{1, 2}),
			tscfmt.BytesSource("t/1-tsc_freq.bin", tscfmt.EncodeCalibration(-1)),
		},
	}}
	out, err := Run(context.Background(), groups, Config{})
	if err != nil {
		t.Fatal(err)
	}
	var nc *calibrate.NoCalibrationError
	if o := out[0]; o.Err == nil || o.Err.Stage != StageCalibrate || !errors.As(o.Err, &nc) {
		t.Fatalf("got %v, want *calibrate.NoCalibrationError", o.Err)
	}
	var names []string
	for _, se := range nc.Skipped {
		names = append(names, se.Name)
	}
	if diff := cmp.Diff([]string{"t/0-tsc_freq.bin", "t/1-tsc_freq.bin"}, names); diff != "" {
		t.Errorf("skipped calibrations (-want +got):\n%s", diff)
	}
}

func TestRunFixedFrequency(t *testing.T) {
	groups := []*Group{{Key: Key{"t", "a", NoSize}, Runs: runs("t", "a", 1, 3_000_000_000)}}
	out, err := Run(context.Background(), groups, Config{CyclesPerSecond: 3e9})
	if err != nil {
		t.Fatal(err)
	}
	if o := out[0]; o.Err != nil || o.Report.Summary.Mean != 1e9 {
		t.Errorf("got %v %+v", o.Err, o.Report)
	}
}

func TestRunInvalidConfig(t *testing.T) {
	for _, cfg := range []Config{
		{Analysis: tscmath.Options{OutlierPercentile: 100}},
		{Analysis: tscmath.Options{TopN: -1}},
		{CyclesPerSecond: -1},
		{Workers: -2},
		{DecodeWorkers: -1},
	} {
		out, err := Run(context.Background(), []*Group{{Key: Key{"t", "a", 1}}}, cfg)
		if !errors.Is(err, tscmath.ErrInvalidOption) || out != nil {
			t.Errorf("Run(%+v) = %v, %v; want ErrInvalidOption", cfg, out, err)
		}
	}
}

func TestRunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	groups := []*Group{{Key: Key{"t", "a", 1}, Runs: runs("t", "a-1B", 1, 1)}}
	out, err := Run(ctx, groups, Config{CyclesPerSecond: 1e9})
	if err != nil {
		t.Fatal(err)
	}
	if o := out[0]; o.Err == nil || o.Err.Stage != StageCanceled || !errors.Is(o.Err, context.Canceled) {
		t.Errorf("got %v, want canceled", o.Err)
	}
}

func TestKey(t *testing.T) {
	keys := []Key{
		{"b", "a", 1},
		{"a", "z", 8},
		{"a", "a", 64},
		{"a", "a", NoSize},
		{"a", "a", 8},
	}
	check := func(k Key, name, str string) {
		t.Helper()
		if k.Name() != name || k.String() != str {
			t.Errorf("%#v: Name=%q String=%q, want %q %q", k, k.Name(), k.String(), name, str)
		}
	}
	check(keys[0], "a-1B", "b/a-1B")
	check(keys[3], "a", "a/a")

	for i, a := range keys {
		if a.Less(a) {
			t.Errorf("%v.Less(itself)", a)
		}
		for _, b := range keys[i+1:] {
			if a.Less(b) == b.Less(a) {
				t.Errorf("%v and %v are not strictly ordered", a, b)
			}
		}
	}
	if !keys[3].Less(keys[4]) || !keys[4].Less(keys[2]) || !keys[2].Less(keys[1]) || !keys[1].Less(keys[0]) {
		t.Errorf("unexpected order")
	}
}
