// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package render

import (
	"io"
	"strconv"
	"strings"
	"text/template"

	"github.com/arena-bench/tscstat/pipeline"
)

// LaTeX renders a pgfplots document with one figure per test,
// plotting the mean time per iteration against the allocation size
// for each allocator. Groups without a size are left out.
type LaTeX struct{}

var latexColors = []string{"red", "blue", "green!60!black", "black", "orange", "violet", "brown", "teal"}

var latexTemplate = template.Must(template.New("latex").Funcs(template.FuncMap{
	"tex":   texEscape,
	"color": func(i int) string { return latexColors[i%len(latexColors)] },
	"num":   func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
}).Parse(`\documentclass{article}
\usepackage{pgfplots}
\usepackage{tikz}
\pgfplotsset{compat=1.17}

\begin{document}
{{range .}}
\begin{figure}
    \centering
    \begin{tikzpicture}
        \begin{axis}[
            title={Memory Allocator Performance by Allocation Size ({{tex .Test}})},
            xlabel={Allocation Size (bytes)},
            ylabel={Average Time (ns)},
            grid=both,
            legend pos=north west,
            width=12cm,
            height=8cm,
            xmode=log,
        ]
{{- range $i, $s := .Series}}
        \addplot[
            color={{color $i}},
            mark=*,
        ] coordinates {
            {{range $j, $p := $s.Points}}{{if $j}} {{end}}({{$p.Size}}, {{num $p.Mean}}){{end}}
        };
        \addlegendentry{ {{- tex $s.Allocator -}} }
{{- end}}
        \end{axis}
    \end{tikzpicture}
    \caption{Comparison of memory allocator performance across allocation sizes in {{tex .Test}}.}
    \label{fig:allocator-performance-{{.Label}}}
\end{figure}
{{end}}
\end{document}
`))

var texReplacer = strings.NewReplacer(
	`\`, `\textbackslash{}`,
	`{`, `\{`, `}`, `\}`,
	`_`, `\_`, `%`, `\%`, `$`, `\$`, `#`, `\#`, `&`, `\&`,
	`~`, `\textasciitilde{}`, `^`, `\textasciicircum{}`,
)

func texEscape(s string) string {
	return texReplacer.Replace(s)
}

type latexFigure struct {
	Test   string
	Label  string
	Series []allocatorSeries
}

func (*LaTeX) Render(w io.Writer, outcomes []*pipeline.Outcome) error {
	tests, groups := byTest(outcomes)
	var figs []latexFigure
	for _, t := range tests {
		s := series(groups[t])
		if len(s) == 0 {
			continue
		}
		label := strings.Map(func(r rune) rune {
			if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' {
				return r
			}
			return '-'
		}, t)
		figs = append(figs, latexFigure{t, label, s})
	}
	return latexTemplate.Execute(w, figs)
}
