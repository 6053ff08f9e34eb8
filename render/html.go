// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"io"

	"github.com/google/safehtml/template"

	"github.com/arena-bench/tscstat/calibrate"
	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscunit"
)

// HTML renders a standalone HTML page with one table per test.
type HTML struct{}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"ns":   func(v float64) string { return tscunit.Scale(v, tscunit.Duration) },
	"size": tscunit.Size,
}).Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>tscstat report</title>
<style>
table.tscstat { border-collapse: collapse; margin-bottom: 2em; }
table.tscstat td, table.tscstat th { padding: 0 0.5em; text-align: right; }
table.tscstat td.group, table.tscstat td.err { text-align: left; }
table.tscstat td.err { color: #a00; }
</style>
</head>
<body>
{{- range .}}
<h2>{{.Test}}</h2>
{{- with .Factor}}
<p>TSC frequency {{.String}}</p>
{{- end}}
<table class="tscstat">
<tr><th>allocator<th>size<th>runs<th>samples<th>unique<th>mean<th>median<th>stddev<th>min<th>max<th>p95<th>p99<th>per-iter<th>excluded</tr>
{{- range .Outcomes}}
<tr><td class="group">{{.Group.Key.Allocator}}<td>{{if ge .Group.Key.Size 0}}{{size .Group.Key.Size}}{{end}}
{{- if .Err}}<td class="err" colspan="12">{{.Err.Stage}}: {{.Err.Err}}
{{- else}}{{with .Report}}<td>{{.Runs}}<td>{{.Summary.N}}<td>{{.Unique}}<td>{{ns .Summary.Mean}}<td>{{ns .Summary.Median}}<td>{{ns .Summary.StdDev}}<td>{{ns .Summary.Min}}<td>{{ns .Summary.Max}}<td>{{ns .Summary.P95}}<td>{{ns .Summary.P99}}<td>{{ns .IterationMean}}<td>{{with .Outliers}}{{.Excluded}} &gt; {{ns .Cutoff}}{{end}}{{end}}
{{- end}}</tr>
{{- end}}
</table>
{{- end}}
</body>
</html>
`))

type htmlTest struct {
	Test     string
	Factor   *calibrate.Factor
	Outcomes []*pipeline.Outcome
}

func (*HTML) Render(w io.Writer, outcomes []*pipeline.Outcome) error {
	tests, groups := byTest(outcomes)
	var data []htmlTest
	for _, t := range tests {
		ht := htmlTest{Test: t, Outcomes: groups[t]}
		for _, o := range groups[t] {
			if o.Factor != nil {
				ht.Factor = o.Factor
				break
			}
		}
		data = append(data, ht)
	}
	return htmlTemplate.Execute(w, data)
}
