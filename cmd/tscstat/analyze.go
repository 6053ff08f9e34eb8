// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/GoogleCloudPlatform/cloudsql-proxy/proxy/dialers/mysql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/render"
	"github.com/arena-bench/tscstat/render/chart"
	"github.com/arena-bench/tscstat/reportdb"
	_ "github.com/arena-bench/tscstat/reportdb/sqlite3"
)

func (a *app) analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze [test...]",
		Short: "Print the sample distribution of every group",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.analyze(cmd.Context(), args)
		},
	}
	f := cmd.Flags()
	f.Float64("outlier-percentile", 0, "exclude samples above percentile `p` from the filtered statistics")
	f.Int("top-n", 0, "list only the `n` most frequent values")
	f.Int("min-count", 0, "list only values seen at least `n` times")
	f.Bool("buckets", false, "list the distinct values of each group in text output")
	f.String("chart.dir", "", "write PNG charts below `dir`")
	f.String("chart.scales", "log:linear,log:log", "comma-separated x:y `scales` of the charts")
	f.String("db.driver", "", "store reports in a database using `driver` (sqlite3 or mysql)")
	f.String("db.dsn", "", "data source `name` of the report database")
	a.bind(f)
	return cmd
}

func (a *app) analyze(ctx context.Context, tests []string) error {
	v := a.v
	r, err := render.ByName(v.GetString("format"))
	if err != nil {
		return usageError{err}
	}
	if t, ok := r.(*render.Text); ok {
		t.Buckets = v.GetBool("buckets")
	}
	var chartOpts *chart.Options
	if dir := v.GetString("chart.dir"); dir != "" {
		scales, err := chart.ParseScales(v.GetString("chart.scales"))
		if err != nil {
			return usageError{err}
		}
		chartOpts = &chart.Options{Scales: scales}
	}
	driver := v.GetString("db.driver")

	out, err := a.process(ctx, tests)
	if err != nil {
		return err
	}
	if err := r.Render(a.stdout, out); err != nil {
		return err
	}
	if chartOpts != nil {
		if err := a.writeCharts(v.GetString("chart.dir"), out, *chartOpts); err != nil {
			return err
		}
	}
	if driver != "" {
		if err := a.store(ctx, driver, v.GetString("db.dsn"), out); err != nil {
			return err
		}
	}
	if failed(out) {
		return errFailed
	}
	return nil
}

// writeCharts draws the charts of each report into the next numbered
// directory below dir/<test>/<group>.
func (a *app) writeCharts(dir string, out []*pipeline.Outcome, opts chart.Options) error {
	for _, o := range out {
		if o.Report == nil {
			continue
		}
		k := o.Group.Key
		sub, err := chart.NextOutputDir(filepath.Join(dir, k.Test, k.Name()))
		if err != nil {
			return err
		}
		files, err := chart.Write(sub, k, o.Report, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", k, err)
		}
		a.log.WithFields(logrus.Fields{"test": k.Test, "group": k.Name(), "dir": sub}).
			Debugf("wrote %s", strings.Join(files, ", "))
	}
	return nil
}

// store inserts every report into the database.
func (a *app) store(ctx context.Context, driver, dsn string, out []*pipeline.Outcome) error {
	db, err := reportdb.OpenSQL(driver, dsn)
	if err != nil {
		return fmt.Errorf("open %s database: %w", driver, err)
	}
	defer db.Close()
	n := 0
	for _, o := range out {
		if o.Report == nil {
			continue
		}
		id, err := db.InsertReport(ctx, o.Group.Key, o.Report)
		if err != nil {
			return fmt.Errorf("store %s: %w", o.Group.Key, err)
		}
		a.log.WithFields(logrus.Fields{"test": o.Group.Key.Test, "group": o.Group.Key.Name(), "id": id}).Debug("stored report")
		n++
	}
	a.log.WithFields(logrus.Fields{"driver": driver, "reports": n}).Info("stored reports")
	return nil
}
