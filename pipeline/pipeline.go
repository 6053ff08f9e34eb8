// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/arena-bench/tscstat/aggregate"
	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/tscfmt"
	"github.com/arena-bench/tscstat/tscmath"
)

// Config configures Run.
type Config struct {
	// Analysis holds the distribution options applied to every group.
	Analysis tscmath.Options

	// Calibration configures the loading of calibration files.
	Calibration calibrate.Options

	// CyclesPerSecond, if non-zero, is used for every group instead
	// of the groups' calibration files.
	CyclesPerSecond float64

	// Workers bounds the number of groups processed at once. Zero
	// means one.
	Workers int

	// DecodeWorkers bounds the number of run files decoded at once
	// within a group. Zero means serial decoding.
	DecodeWorkers int
}

// Validate reports whether c is usable.
func (c *Config) Validate() error {
	if err := c.Analysis.Validate(); err != nil {
		return err
	}
	if c.CyclesPerSecond != 0 {
		if err := tscfmt.CheckFrequency(c.CyclesPerSecond); err != nil {
			return &tscmath.OptionError{Field: "cpu frequency", Value: c.CyclesPerSecond, Msg: err.Error()}
		}
	}
	if math.IsNaN(c.Calibration.Tolerance) {
		return &tscmath.OptionError{Field: "tolerance", Value: c.Calibration.Tolerance, Msg: "must be a number"}
	}
	if c.Workers < 0 {
		return &tscmath.OptionError{Field: "workers", Value: c.Workers, Msg: "must be positive"}
	}
	if c.DecodeWorkers < 0 {
		return &tscmath.OptionError{Field: "decode workers", Value: c.DecodeWorkers, Msg: "must be positive"}
	}
	return nil
}

// A Stage names the step of a group's processing that failed.
type Stage string

const (
	StageCalibrate Stage = "calibrate"
	StageAggregate Stage = "aggregate"
	StageAnalyze   Stage = "analyze"
	StageCanceled  Stage = "canceled"
)

// A GroupError is the failure of one group.
type GroupError struct {
	Key   Key
	Stage Stage
	Path  string
	Err   error
}

func (e *GroupError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Key, e.Stage, e.Err)
}

func (e *GroupError) Unwrap() error { return e.Err }

// An Outcome is the result of processing one Group. Exactly one of
// Report and Err is non-nil.
type Outcome struct {
	Group *Group

	// Factor is the calibration used. It is shared by all outcomes
	// of the same test, and so are its Warnings.
	Factor *calibrate.Factor

	Aggregate *aggregate.Result
	Report    *tscmath.Report

	// Warnings lists the group's skipped run files.
	Warnings []error

	Err *GroupError
}

// Run processes groups and returns one Outcome per group, in the
// order of groups. It returns an error only if cfg is invalid, in
// which case no group is processed.
//
// If ctx is done, groups that have not started yet fail with
// StageCanceled.
func Run(ctx context.Context, groups []*Group, cfg Config) ([]*Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r := &runner{cfg: cfg, factors: make(map[string]*factorOnce)}

	out := make([]*Outcome, len(groups))
	var g errgroup.Group
	g.SetLimit(max(cfg.Workers, 1))
	for i, grp := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i] = &Outcome{Group: grp, Err: &GroupError{grp.Key, StageCanceled, grp.Path, err}}
				return nil
			}
			out[i] = r.process(grp)
			return nil
		})
	}
	g.Wait()
	return out, nil
}

type factorOnce struct {
	once sync.Once
	f    *calibrate.Factor
	err  error
}

type runner struct {
	cfg Config

	mu      sync.Mutex
	factors map[string]*factorOnce
}

// factor loads the calibration of grp's test, once per test and set
// of calibration files.
func (r *runner) factor(grp *Group) (*calibrate.Factor, error) {
	if r.cfg.CyclesPerSecond != 0 {
		return calibrate.Fixed(r.cfg.CyclesPerSecond)
	}
	key := calibrationKey(grp)
	r.mu.Lock()
	fo, ok := r.factors[key]
	if !ok {
		fo = new(factorOnce)
		r.factors[key] = fo
	}
	r.mu.Unlock()
	fo.once.Do(func() {
		fo.f, fo.err = calibrate.Load(grp.Calibrations, r.cfg.Calibration)
	})
	return fo.f, fo.err
}

func calibrationKey(grp *Group) string {
	var b strings.Builder
	b.WriteString(grp.Key.Test)
	for _, src := range grp.Calibrations {
		b.WriteByte(0)
		b.WriteString(src.Name())
	}
	return b.String()
}

func (r *runner) process(grp *Group) *Outcome {
	o := &Outcome{Group: grp}
	fail := func(stage Stage, err error) *Outcome {
		o.Err = &GroupError{grp.Key, stage, grp.Path, err}
		return o
	}

	f, err := r.factor(grp)
	if err != nil {
		return fail(StageCalibrate, err)
	}
	o.Factor = f

	agg := aggregate.Aggregator{Parallelism: r.cfg.DecodeWorkers}
	res, err := agg.Aggregate(grp.Runs)
	if err != nil {
		return fail(StageAggregate, err)
	}
	o.Aggregate = res
	o.Warnings = res.Warnings()

	rep, err := tscmath.Analyze(res, f, r.cfg.Analysis)
	if err != nil {
		return fail(StageAnalyze, err)
	}
	o.Report = rep
	return o
}

// Stats counts the outcomes of a Run.
type Stats struct {
	Processed int // groups with a report
	Failed    int // groups with an error
	Skipped   int // run files skipped across all processed groups
}

// Summarize counts outcomes.
func Summarize(outcomes []*Outcome) Stats {
	var s Stats
	for _, o := range outcomes {
		if o.Err != nil {
			s.Failed++
			continue
		}
		s.Processed++
		s.Skipped += len(o.Warnings)
	}
	return s
}
