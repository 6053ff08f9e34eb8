// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package chart draws the value distribution of a report as PNG bar
// charts.
//
// Each chart plots the count of every distinct sample value of the
// report's buckets, in cycles, with the report's summary in the
// legend. One chart is drawn per requested pair of axis scales.
package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscmath"
)

// Options configures the charts.
type Options struct {
	// Scales lists the charts to draw. Nil means DefaultScales.
	Scales []Scales

	// LinearThreshold is the linear range of YSymLog. Zero means 10.
	LinearThreshold float64

	// Width and Height are the image size. Zero means 12×8 inches.
	Width, Height vg.Length

	// DPI is the image resolution. Zero means 150.
	DPI int
}

func (o *Options) scales() []Scales {
	if o.Scales == nil {
		return DefaultScales
	}
	return o.Scales
}

func (o *Options) threshold() float64 {
	if o.LinearThreshold > 0 {
		return o.LinearThreshold
	}
	return 10
}

// maxRankTicks bounds the labeled ticks of a rank axis.
const maxRankTicks = 10

// Plot returns the chart of rep with scales s.
func Plot(key pipeline.Key, rep *tscmath.Report, s Scales, opts Options) (*plot.Plot, error) {
	if len(rep.Buckets) == 0 {
		return nil, fmt.Errorf("%s: no values to plot", key)
	}

	var xys plotter.XYs
	var labels []string
	for _, b := range rep.Buckets {
		v := rep.Cycles(b.Value)
		if s.X == XLog && !(v > 0) {
			continue
		}
		x := v
		if s.X == XRank {
			x = float64(len(xys))
		}
		xys = append(xys, plotter.XY{X: x, Y: float64(b.Count)})
		labels = append(labels, strconv.FormatFloat(v, 'f', 2, 64))
	}
	if len(xys) == 0 {
		return nil, fmt.Errorf("%s: no positive values for a log axis", key)
	}

	p := plot.New()
	p.Title.Text = title(key, s, opts.threshold())
	p.Y.Label.Text = "Count"
	p.Add(plotter.NewGrid())

	bars := &stems{xys: xys, color: color.NRGBA{0x1f, 0x77, 0xb4, 0xff}}
	switch s.Y {
	case YLog:
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{}
		bars.base = 0.5
	case YSymLog:
		p.Y.Scale = SymLogScale{opts.threshold()}
	}

	switch s.X {
	case XRank:
		p.X.Label.Text = "TSC cycles (ordered by value)"
		bars.width = 0.8
		p.X.Tick.Marker = plot.ConstantTicks(rankTicks(labels))
		p.X.Tick.Label.Rotation = math.Pi / 4
		p.X.Tick.Label.XAlign = draw.XRight
		p.X.Tick.Label.YAlign = draw.YCenter
	case XLog:
		p.X.Label.Text = "TSC cycles"
		p.X.Scale = plot.LogScale{}
		p.X.Tick.Marker = plot.LogTicks{}
	default:
		p.X.Label.Text = "TSC cycles"
	}
	p.Add(bars)

	sum := rep.Summary
	if s.X != XRank {
		mean := &vline{x: rep.Cycles(sum.Mean), style: draw.LineStyle{
			Color: color.NRGBA{0xff, 0, 0, 0xb0}, Width: vg.Points(1.5), Dashes: []vg.Length{vg.Points(6), vg.Points(3)},
		}}
		median := &vline{x: rep.Cycles(sum.Median), style: draw.LineStyle{
			Color: color.NRGBA{0, 0x80, 0, 0xb0}, Width: vg.Points(1.5), Dashes: []vg.Length{vg.Points(1.5), vg.Points(3)},
		}}
		for _, l := range []struct {
			name string
			line *vline
		}{{"Mean", mean}, {"Median", median}} {
			if l.line.x >= xys[0].X && l.line.x <= xys[len(xys)-1].X {
				p.Add(l.line)
				p.Legend.Add(fmt.Sprintf("%s: %.2f", l.name, l.line.x), l.line)
			}
		}
	}
	for _, line := range statLines(rep, len(xys)) {
		p.Legend.Add(line)
	}
	p.Legend.Top = true

	// Keep single values and log axes away from degenerate ranges.
	if s.X == XRank {
		p.X.Min, p.X.Max = -0.5, float64(len(xys))-0.5
	} else if p.X.Min == p.X.Max {
		if s.X == XLog {
			p.X.Min, p.X.Max = p.X.Min/2, p.X.Max*2
		} else {
			p.X.Min, p.X.Max = p.X.Min-1, p.X.Max+1
		}
	}
	if s.Y == YLog {
		p.Y.Min = bars.base
	}
	return p, nil
}

func title(key pipeline.Key, s Scales, threshold float64) string {
	t := "TSC Value Distribution for " + key.Allocator
	if key.Size != pipeline.NoSize {
		t += fmt.Sprintf(" (%dB)", key.Size)
	}
	t += fmt.Sprintf(" [x-axis: %s] [y-axis: %s", s.X, s.Y)
	if s.Y == YSymLog {
		t += fmt.Sprintf(" (linear threshold %g)", threshold)
	}
	return t + "]"
}

func statLines(rep *tscmath.Report, shown int) []string {
	sum := rep.Summary
	stat := func(name string, ns float64) string {
		return fmt.Sprintf("%s: %.2f cycles (~%.2f ns)", name, rep.Cycles(ns), ns)
	}
	lines := []string{
		stat("Mean", sum.Mean),
		stat("Median", sum.Median),
		stat("Min", sum.Min),
		stat("Max", sum.Max),
		stat("Std Dev", sum.StdDev),
		stat("95th %ile", sum.P95),
		stat("99th %ile", sum.P99),
		fmt.Sprintf("Total samples: %d", sum.N),
		fmt.Sprintf("Unique values: %d", rep.Unique),
		fmt.Sprintf("Displayed values: %d", shown),
		fmt.Sprintf("Runs included: %d", rep.Runs),
	}
	if o := rep.Outliers; o != nil && o.Excluded > 0 {
		lines = append(lines, fmt.Sprintf("Excluded outliers: %d (%g %%ile)", o.Excluded, o.Percentile))
	}
	return lines
}

// rankTicks labels at most maxRankTicks evenly spaced ranks.
func rankTicks(labels []string) []plot.Tick {
	n := min(maxRankTicks, len(labels))
	var ticks []plot.Tick
	for i := 0; i < n; i++ {
		r := 0
		if n > 1 {
			r = i * (len(labels) - 1) / (n - 1)
		}
		ticks = append(ticks, plot.Tick{Value: float64(r), Label: labels[r]})
	}
	return ticks
}

// FileName returns the image file name of the chart for key with
// scales s.
func FileName(key pipeline.Key, s Scales) string {
	name := key.Allocator
	if key.Size != pipeline.NoSize {
		name += "-" + strconv.Itoa(key.Size)
	}
	return fmt.Sprintf("%s-%s-%s.png", name, s.X, s.Y)
}

// WritePNG draws p as a PNG image to w.
func WritePNG(w io.Writer, p *plot.Plot, opts Options) error {
	width, height := opts.Width, opts.Height
	if width == 0 {
		width = 12 * vg.Inch
	}
	if height == 0 {
		height = 8 * vg.Inch
	}
	dpi := opts.DPI
	if dpi == 0 {
		dpi = 150
	}
	c := vgimg.PngCanvas{Canvas: vgimg.NewWith(vgimg.UseWH(width, height), vgimg.UseDPI(dpi), vgimg.UseBackgroundColor(color.White))}
	p.Draw(draw.New(c))
	_, err := c.WriteTo(w)
	return err
}

// Write draws every configured chart of rep into dir and returns the
// paths of the files written.
func Write(dir string, key pipeline.Key, rep *tscmath.Report, opts Options) ([]string, error) {
	var files []string
	for _, s := range opts.scales() {
		p, err := Plot(key, rep, s, opts)
		if err != nil {
			return files, err
		}
		file := filepath.Join(dir, FileName(key, s))
		f, err := os.Create(file)
		if err != nil {
			return files, err
		}
		err = WritePNG(f, p, opts)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return files, fmt.Errorf("%s: %w", file, err)
		}
		files = append(files, file)
	}
	return files, nil
}

// NextOutputDir creates and returns the next numbered directory under
// base: base/1 if base has no numbered directories, and one past the
// highest otherwise.
func NextOutputDir(base string) (string, error) {
	ents, err := os.ReadDir(base)
	if err != nil && !os.IsNotExist(err) {
		return "", err
	}
	next := 1
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n >= next {
			next = n + 1
		}
	}
	dir := filepath.Join(base, strconv.Itoa(next))
	if err := os.MkdirAll(dir, 0777); err != nil {
		return "", err
	}
	return dir, nil
}

// stems draws a vertical bar from base to each point.
type stems struct {
	xys   plotter.XYs
	base  float64
	width float64 // in x data units; zero draws hairlines
	color color.Color
}

func (s *stems) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	lw := vg.Points(1)
	if s.width > 0 {
		lw = trX(s.width) - trX(0)
	}
	sty := draw.LineStyle{Color: s.color, Width: lw}
	y0 := trY(math.Max(s.base, plt.Y.Min))
	for _, p := range s.xys {
		x := trX(p.X)
		if !c.ContainsX(x) {
			continue
		}
		c.StrokeLine2(sty, x, y0, x, trY(p.Y))
	}
}

func (s *stems) DataRange() (xmin, xmax, ymin, ymax float64) {
	xmin, xmax, _, ymax = plotter.XYRange(s.xys)
	return xmin, xmax, s.base, ymax
}

// vline marks one x value across the whole plot.
type vline struct {
	x     float64
	style draw.LineStyle
}

func (l *vline) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, _ := plt.Transforms(&c)
	x := trX(l.x)
	if c.ContainsX(x) {
		c.StrokeLine2(l.style, x, c.Min.Y, x, c.Max.Y)
	}
}

// Thumbnail implements plot.Thumbnailer for the legend.
func (l *vline) Thumbnail(c *draw.Canvas) {
	y := c.Center().Y
	c.StrokeLine2(l.style, c.Min.X, y, c.Max.X, y)
}
