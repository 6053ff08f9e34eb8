// Copyright 2017 The Go Authors.  All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package reportdb_test

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arena-bench/tscstat/aggregate"
	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/pipeline"
	. "github.com/arena-bench/tscstat/reportdb"
	"github.com/arena-bench/tscstat/reportdb/dbtest"
	"github.com/arena-bench/tscstat/tscfmt"
	"github.com/arena-bench/tscstat/tscmath"
)

func analyze(t *testing.T, opts tscmath.Options, samples ...uint64) *tscmath.Report {
	t.Helper()
	var total uint64
	for _, s := range samples {
		total += s
	}
	res := &aggregate.Result{
		Summary: tscfmt.Summary{TotalCycles: total, Iterations: uint64(len(samples))},
		Samples: samples,
		Runs:    2,
	}
	f, err := calibrate.Fixed(3e9)
	if err != nil {
		t.Fatal(err)
	}
	r, err := tscmath.Analyze(res, f, opts)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestInsertList(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)

	plain := analyze(t, tscmath.Options{}, 300, 300, 600)
	filtered := analyze(t, tscmath.Options{OutlierPercentile: 50}, 300, 300, 600, 900)
	keys := []pipeline.Key{
		{Test: "small", Allocator: "glibc", Size: 64},
		{Test: "small", Allocator: "mimalloc", Size: pipeline.NoSize},
		{Test: "large", Allocator: "glibc", Size: 4096},
	}
	var ids []int64
	for i, r := range []*tscmath.Report{plain, filtered, plain} {
		id, err := db.InsertReport(ctx, keys[i], r)
		if err != nil {
			t.Fatalf("InsertReport(%s): %v", keys[i], err)
		}
		ids = append(ids, id)
	}
	if ids[0] >= ids[1] || ids[1] >= ids[2] {
		t.Errorf("ids not increasing: %v", ids)
	}

	rows, err := db.ListReports(ctx, "small")
	if err != nil {
		t.Fatal(err)
	}
	want := []*Row{
		{
			ID: ids[0], Key: keys[0], Runs: 2,
			Summary: plain.Summary, Unique: 2,
			IterationMean: plain.IterationMean, CyclesPerSecond: 3e9,
			Buckets: plain.Buckets,
		},
		{
			ID: ids[1], Key: keys[1], Runs: 2,
			Summary: filtered.Summary, Unique: 3,
			IterationMean: filtered.IterationMean, CyclesPerSecond: 3e9,
			Outliers:     filtered.Outliers,
			FilteredMean: filtered.Filtered.Mean,
			Buckets:      filtered.Buckets,
		},
	}
	if diff := cmp.Diff(want, rows); diff != "" {
		t.Errorf("ListReports(small) (-want +got):\n%s", diff)
	}

	all, err := db.ListReports(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[2].Key != keys[2] || len(all[2].Buckets) != 2 {
		t.Errorf("ListReports() = %+v", all)
	}

	none, err := db.ListReports(ctx, "missing")
	if err != nil || none != nil {
		t.Errorf("ListReports(missing) = %v, %v; want nil, nil", none, err)
	}
}

func TestDeleteCascades(t *testing.T) {
	ctx := context.Background()
	db := dbtest.NewDB(t)
	id, err := db.InsertReport(ctx, pipeline.Key{Test: "t", Allocator: "a", Size: 8}, analyze(t, tscmath.Options{}, 3, 6, 9))
	if err != nil {
		t.Fatal(err)
	}
	sqlDB := DBSQL(db)
	if _, err := sqlDB.Exec("DELETE FROM Reports WHERE ReportID = ?", id); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM Buckets").Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d bucket(s) left after deleting their report", n)
	}
}

func TestInsertCanceled(t *testing.T) {
	db := dbtest.NewDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := db.InsertReport(ctx, pipeline.Key{Test: "t", Allocator: "a", Size: 8}, analyze(t, tscmath.Options{}, 3)); err == nil {
		t.Fatal("InsertReport succeeded with canceled context")
	}
	n, err := db.CountReports(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("CountReports = %d, want 0", n)
	}
}
