// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"runtime"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/arena-bench/tscstat/aggregate"
	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/internal/gcsfs"
	"github.com/arena-bench/tscstat/layout"
	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/render"
	"github.com/arena-bench/tscstat/tscmath"
	"github.com/arena-bench/tscstat/tscunit"
)

// errFailed is returned by commands that already logged their
// failures.
var errFailed = errors.New("failed")

// A usageError is an invalid command line or configuration.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func isUsage(err error) bool {
	var ue usageError
	return errors.As(err, &ue) || errors.Is(err, tscmath.ErrInvalidOption)
}

func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

type app struct {
	v       *viper.Viper
	log     *logrus.Logger
	stdout  io.Writer
	cfgFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), log: logrus.New(), stdout: stdout}
	a.log.SetOutput(stderr)
	a.log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	root := &cobra.Command{
		Use:           "tscstat",
		Short:         "Summarize timestamp counter measurements of memory allocators",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				return usageError{fmt.Errorf("unknown command %q", args[0])}
			}
			return cmd.Help()
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError{err}
	})

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config `file` (default tscstat.yaml in . or $HOME/.config/tscstat)")
	pf.String("logs", "./logs", "log tree `dir`, or object prefix with --gcs.bucket")
	pf.String("gcs.bucket", "", "read the log tree from Cloud Storage `bucket`")
	pf.String("gcs.credentials", "", "service account credentials `file` for --gcs.bucket")
	pf.Float64("cpu-freq", 0, "use `hz` cycles per second instead of the calibration files")
	pf.Float64("tolerance", 0, "largest accepted calibration spread in `hz`; negative disables the check")
	pf.Int("workers", runtime.GOMAXPROCS(0), "number of groups processed at once")
	pf.Int("decode-workers", 0, "number of run files decoded at once per group; 0 decodes serially")
	pf.String("format", "text", "output `format`: "+strings.Join(render.Formats, ", "))
	pf.BoolP("verbose", "v", false, "log debug messages")
	a.bind(pf)

	root.AddCommand(a.analyzeCmd(), a.averagesCmd(), a.decodeCmd())
	return root
}

// bind makes every flag of fs visible through a.v under its own name.
func (a *app) bind(fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name != "config" {
			a.v.BindPFlag(f.Name, f)
		}
	})
}

// loadConfig reads the optional config file and the environment
// below the command line flags.
func (a *app) loadConfig() error {
	v := a.v
	v.SetEnvPrefix("TSCSTAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("tscstat")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/tscstat")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return usageError{fmt.Errorf("config: %w", err)}
		}
	}

	if v.GetBool("verbose") {
		a.log.SetLevel(logrus.DebugLevel)
	}
	if f := v.ConfigFileUsed(); f != "" {
		a.log.WithField("file", f).Debug("read config")
	}
	return nil
}

func (a *app) pipelineConfig() pipeline.Config {
	v := a.v
	return pipeline.Config{
		Analysis: tscmath.Options{
			OutlierPercentile: v.GetFloat64("outlier-percentile"),
			TopN:              v.GetInt("top-n"),
			MinCount:          v.GetInt("min-count"),
		},
		Calibration:     calibrate.Options{Tolerance: v.GetFloat64("tolerance")},
		CyclesPerSecond: v.GetFloat64("cpu-freq"),
		Workers:         v.GetInt("workers"),
		DecodeWorkers:   v.GetInt("decode-workers"),
	}
}

// openTree returns the file system holding the log tree and a
// function releasing it.
func (a *app) openTree(ctx context.Context) (fs.FS, func(), error) {
	logs := a.v.GetString("logs")
	bucket := a.v.GetString("gcs.bucket")
	if bucket == "" {
		return os.DirFS(logs), func() {}, nil
	}
	client, err := gcsfs.NewClient(ctx, a.v.GetString("gcs.credentials"))
	if err != nil {
		return nil, nil, fmt.Errorf("cloud storage: %w", err)
	}
	prefix := path.Clean(logs)
	if prefix == "." {
		prefix = ""
	}
	a.log.WithFields(logrus.Fields{"bucket": bucket, "prefix": prefix}).Debug("reading log tree from cloud storage")
	return gcsfs.New(ctx, client, bucket, prefix), func() { client.Close() }, nil
}

// process scans and analyzes the named tests, or every test, and
// logs each outcome.
func (a *app) process(ctx context.Context, tests []string) ([]*pipeline.Outcome, error) {
	cfg := a.pipelineConfig()
	if err := cfg.Validate(); err != nil {
		return nil, usageError{err}
	}
	fsys, release, err := a.openTree(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	groups, err := layout.Scan(fsys, ".", tests...)
	if err != nil {
		var notFound *layout.TestNotFoundError
		if errors.As(err, &notFound) {
			return nil, usageError{err}
		}
		return nil, err
	}
	if len(groups) == 0 {
		a.log.WithField("logs", a.v.GetString("logs")).Warn("no groups found")
	}
	a.log.WithField("groups", len(groups)).Debug("scanned log tree")

	out, err := pipeline.Run(ctx, groups, cfg)
	if err != nil {
		return nil, usageError{err}
	}
	a.logOutcomes(out)
	return out, nil
}

func (a *app) logOutcomes(out []*pipeline.Outcome) {
	seen := make(map[*calibrate.Factor]bool)
	for _, o := range out {
		k := o.Group.Key
		if f := o.Factor; f != nil && !seen[f] {
			seen[f] = true
			tl := a.log.WithField("test", k.Test)
			for _, w := range f.Warnings {
				warnWithPath(tl, w)
			}
			tl.Debugf("tsc frequency %s", f)
		}

		l := a.log.WithFields(logrus.Fields{"test": k.Test, "group": k.Name()})
		for _, w := range o.Warnings {
			warnWithPath(l, w)
		}
		if o.Err != nil {
			var empty *aggregate.EmptyError
			if errors.As(o.Err, &empty) {
				for _, w := range empty.Skipped {
					warnWithPath(l, w)
				}
			}
			var nocal *calibrate.NoCalibrationError
			if errors.As(o.Err, &nocal) {
				for _, w := range nocal.Skipped {
					warnWithPath(l, w)
				}
			}
			l.WithFields(logrus.Fields{"path": o.Err.Path, "stage": o.Err.Stage}).Error(o.Err.Err)
			continue
		}
		r := o.Report
		l.WithFields(logrus.Fields{
			"runs":    r.Runs,
			"samples": r.Summary.N,
			"mean":    tscunit.Scale(r.Summary.Mean, tscunit.Duration),
		}).Info("analyzed")
	}
	s := pipeline.Summarize(out)
	a.log.WithFields(logrus.Fields{
		"processed": s.Processed,
		"failed":    s.Failed,
		"skipped":   s.Skipped,
	}).Info("done")
}

// warnWithPath logs w, naming the file it is about when known.
func warnWithPath(l *logrus.Entry, w error) {
	var run *aggregate.RunError
	var cal *calibrate.SourceError
	switch {
	case errors.As(w, &run):
		l = l.WithField("path", run.Name)
	case errors.As(w, &cal):
		l = l.WithField("path", cal.Name)
	}
	l.Warn(w)
}

// failed reports whether any outcome failed.
func failed(out []*pipeline.Outcome) bool {
	return pipeline.Summarize(out).Failed > 0
}
