// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/render"
)

func (a *app) averagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "averages [test...]",
		Short: "Print the mean time per iteration by allocator and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.averages(cmd.Context(), args)
		},
	}
}

func (a *app) averages(ctx context.Context, tests []string) error {
	var r render.Renderer
	switch format := strings.ToLower(a.v.GetString("format")); format {
	case "text", "":
		r = &render.Averages{}
	case "latex", "tex":
		r = &render.LaTeX{}
	default:
		return usageError{fmt.Errorf("averages: unsupported format %q (want text or latex)", format)}
	}

	out, err := a.process(ctx, tests)
	if err != nil {
		return err
	}
	for _, o := range out {
		k := o.Group.Key
		if o.Report == nil || k.Size == pipeline.NoSize {
			continue
		}
		a.log.WithFields(logrus.Fields{"test": k.Test, "group": k.Name(), "runs": o.Report.Runs}).
			Infof("%s - %dB: %.2f ns", k.Allocator, k.Size, o.Report.IterationMean)
	}
	if err := r.Render(a.stdout, out); err != nil {
		return err
	}
	if failed(out) {
		return errFailed
	}
	return nil
}
