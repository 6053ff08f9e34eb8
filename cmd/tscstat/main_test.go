// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/arena-bench/tscstat/reportdb"
	"github.com/arena-bench/tscstat/tscfmt"
)

func writeFile(t *testing.T, name string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(name), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(name, data, 0666); err != nil {
		t.Fatal(err)
	}
}

func record(samples ...uint64) []byte {
	var total uint64
	for _, s := range samples {
		total += s
	}
	return tscfmt.Encode(&tscfmt.Record{Summary: tscfmt.Summary{TotalCycles: total, Iterations: uint64(len(samples))}, Samples: samples})
}

// logTree writes a log tree with a healthy test "good" and a test
// "bad" whose only group cannot be decoded.
func logTree(t *testing.T) string {
	t.Helper()
	// Keep config files of the user out of the tests.
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good/1-tsc_freq.bin"), tscfmt.EncodeCalibration(1e9))
	writeFile(t, filepath.Join(dir, "good/glibc-64B/0.bin"), record(100, 100, 200))
	writeFile(t, filepath.Join(dir, "good/glibc-64B/1.bin"), record(100, 300))
	writeFile(t, filepath.Join(dir, "good/mimalloc-64B/0.bin"), record(50, 50))
	writeFile(t, filepath.Join(dir, "bad/1-tsc_freq.bin"), tscfmt.EncodeCalibration(1e9))
	writeFile(t, filepath.Join(dir, "bad/junk-8B/0.bin"), []byte("junk"))
	return dir
}

func runCmd(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestAnalyze(t *testing.T) {
	logs := logTree(t)
	code, out, errOut := runCmd(t, "analyze", "--logs", logs, "--format", "csv", "good")
	if code != 0 {
		t.Fatalf("exit %d:\n%s", code, errOut)
	}
	recs, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	var got [][]string
	for _, r := range recs[1:] {
		got = append(got, r[:7])
	}
	want := [][]string{
		{"good", "glibc", "64", "2", "5", "3", "160"},
		{"good", "mimalloc", "64", "1", "2", "1", "50"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rows (-want +got):\n%s", diff)
	}
	for _, want := range []string{`level=info msg=analyzed group=glibc-64B`, `msg=done`, `processed=2`} {
		if !strings.Contains(errOut, want) {
			t.Errorf("log does not contain %q:\n%s", want, errOut)
		}
	}
}

func TestAnalyzeFailure(t *testing.T) {
	logs := logTree(t)
	code, out, errOut := runCmd(t, "analyze", "--logs", logs)
	if code != 1 {
		t.Fatalf("exit %d, want 1:\n%s", code, errOut)
	}
	if !strings.Contains(out, "test: bad") || !strings.Contains(out, "test: good") {
		t.Errorf("missing tests in output:\n%s", out)
	}
	for _, want := range []string{"level=error", "stage=aggregate", "level=warning", "path=bad/junk-8B/0.bin", "failed=1"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("log does not contain %q:\n%s", want, errOut)
		}
	}
	if strings.Contains(errOut, "tscstat: failed") {
		t.Errorf("logged failure reported again:\n%s", errOut)
	}
}

func TestAnalyzeNoCalibration(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t/0-tsc_freq.bin"), []byte{1, 2})
	writeFile(t, filepath.Join(dir, "t/1-tsc_freq.bin"), tscfmt.EncodeCalibration(-1))
	writeFile(t, filepath.Join(dir, "t/a-8B/0.bin"), record(100))
	code, _, errOut := runCmd(t, "analyze", "--logs", dir)
	if code != 1 {
		t.Fatalf("exit %d, want 1:\n%s", code, errOut)
	}
	for _, want := range []string{"stage=calibrate", "path=t/0-tsc_freq.bin", "truncated", "path=t/1-tsc_freq.bin", "not positive"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("log does not contain %q:\n%s", want, errOut)
		}
	}
}

func TestUsage(t *testing.T) {
	logs := logTree(t)
	for _, args := range [][]string{
		{"analyze", "--logs", logs, "--outlier-percentile", "150"},
		{"analyze", "--logs", logs, "--format", "pdf"},
		{"analyze", "--logs", logs, "--chart.dir", t.TempDir(), "--chart.scales", "log:cubic"},
		{"analyze", "--logs", logs, "--workers", "-1"},
		{"analyze", "--logs", logs, "missing"},
		{"analyze", "--nope"},
		{"averages", "--logs", logs, "--format", "csv"},
		{"decode"},
		{"analyse"},
		{"analyze", "--config", filepath.Join(logs, "missing.yaml")},
	} {
		if code, _, errOut := runCmd(t, args...); code != 2 {
			t.Errorf("%q: exit %d, want 2:\n%s", args, code, errOut)
		}
	}
}

func TestConfigSources(t *testing.T) {
	logs := logTree(t)

	cfg := filepath.Join(t.TempDir(), "tscstat.yaml")
	writeFile(t, cfg, []byte("format: html\nlogs: "+logs+"\n"))
	_, out, _ := runCmd(t, "analyze", "--config", cfg, "good")
	if !strings.HasPrefix(out, "<!DOCTYPE html>") {
		t.Errorf("config file ignored:\n%s", out)
	}

	// The environment wins over the config file.
	t.Setenv("TSCSTAT_FORMAT", "csv")
	_, out, _ = runCmd(t, "analyze", "--config", cfg, "good")
	if !strings.HasPrefix(out, "test,allocator,") {
		t.Errorf("TSCSTAT_FORMAT=csv ignored:\n%s", out)
	}

	// Flags win over the environment.
	_, out, _ = runCmd(t, "analyze", "--config", cfg, "--format", "text", "good")
	if !strings.HasPrefix(out, "test: good\n") {
		t.Errorf("--format text ignored:\n%s", out)
	}
}

func TestChartsAndDatabase(t *testing.T) {
	logs := logTree(t)
	charts := t.TempDir()
	dsn := filepath.Join(t.TempDir(), "reports.db")
	args := []string{"analyze", "--logs", logs,
		"--chart.dir", charts, "--chart.scales", "rank:symlog",
		"--db.driver", "sqlite3", "--db.dsn", dsn,
		"good"}
	for i := 0; i < 2; i++ {
		if code, _, errOut := runCmd(t, args...); code != 0 {
			t.Fatalf("exit %d:\n%s", code, errOut)
		}
	}
	for _, name := range []string{
		"good/glibc-64B/1/glibc-64-rank-symlog.png",
		"good/glibc-64B/2/glibc-64-rank-symlog.png",
		"good/mimalloc-64B/2/mimalloc-64-rank-symlog.png",
	} {
		if _, err := os.Stat(filepath.Join(charts, name)); err != nil {
			t.Error(err)
		}
	}

	db, err := reportdb.OpenSQL("sqlite3", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	rows, err := db.ListReports(context.Background(), "good")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d stored reports, want 4", len(rows))
	}
	if r := rows[0]; r.Key.Name() != "glibc-64B" || r.Summary.N != 5 || r.Runs != 2 {
		t.Errorf("first report = %+v", r)
	}
}

func TestAverages(t *testing.T) {
	logs := logTree(t)
	code, out, errOut := runCmd(t, "averages", "--logs", logs, "--format", "latex", "good")
	if code != 0 {
		t.Fatalf("exit %d:\n%s", code, errOut)
	}
	for _, want := range []string{`\addlegendentry{glibc}`, "(64, 160.00)", "(64, 50.00)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
	if !strings.Contains(errOut, `msg="glibc - 64B: 160.00 ns"`) {
		t.Errorf("missing average log line:\n%s", errOut)
	}

	_, out, _ = runCmd(t, "averages", "--logs", logs, "good")
	for _, want := range []string{"mimalloc", "160.00ns", "50.00ns"} {
		if !strings.Contains(out, want) {
			t.Errorf("text averages do not contain %q:\n%s", want, out)
		}
	}
}

func TestDecode(t *testing.T) {
	dir := t.TempDir()
	var samples []uint64
	for v := uint64(30); v >= 1; v-- {
		samples = append(samples, v)
	}
	good := filepath.Join(dir, "0.bin")
	writeFile(t, good, record(samples...))
	bad := filepath.Join(dir, "1.bin")
	writeFile(t, bad, []byte{1, 2, 3})

	code, out, errOut := runCmd(t, "decode", "--cpu-freq", "1e9", good, bad)
	if code != 1 {
		t.Errorf("exit %d, want 1", code)
	}
	want := good + `:
  total cycles  465
  iterations    30
  samples       30
  average       15.50 cycles (15.50ns)
  smallest      1 2 3 4 5 6 7 8 9 10
  largest       21 22 23 24 25 26 27 28 29 30
`
	if diff := cmp.Diff(want, strings.TrimSuffix(out, "\n")); diff != "" {
		t.Errorf("decode (-want +got):\n%s", diff)
	}
	if !strings.Contains(errOut, "path="+bad) {
		t.Errorf("missing error for %s:\n%s", bad, errOut)
	}
}
