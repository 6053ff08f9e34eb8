// Copyright 2020 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package texttab lays out aligned plain-text tables.
package texttab

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"unicode/utf8"
)

// Table accumulates cells and writes them as aligned columns.
//
// Methods that add cells return the Table so calls can be chained.
type Table struct {
	cells  []cell
	cols   int
	row    int
	col    int
	header int // number of header rows, underlined on output
}

type cell struct {
	row, col, span int
	value          string
	align          Align
}

// Align is the alignment of a cell within its columns.
type Align int

const (
	Left Align = iota
	Center
	Right
)

func (a Align) pad(s string, w int) string {
	n := w - utf8.RuneCountInString(s)
	if n <= 0 {
		return s
	}
	switch a {
	case Center:
		return strings.Repeat(" ", n/2) + s
	case Right:
		return strings.Repeat(" ", n) + s
	}
	return s
}

// Row starts a new row.
func (t *Table) Row() *Table {
	if len(t.cells) > 0 || t.col > 0 {
		t.row++
	}
	t.col = 0
	return t
}

// Header marks every row added so far as a header row. Format
// separates the header from the body with a rule.
func (t *Table) Header() *Table {
	t.header = t.row + 1
	return t
}

// Cell adds a left-aligned cell in the next column.
func (t *Table) Cell(value string) *Table {
	return t.Span(1, value, Left)
}

// Num adds a right-aligned cell in the next column.
func (t *Table) Num(value string) *Table {
	return t.Span(1, value, Right)
}

// Span adds a cell covering cols columns.
func (t *Table) Span(cols int, value string, a Align) *Table {
	if cols < 1 {
		panic(fmt.Sprintf("texttab: span of %d columns", cols))
	}
	t.cells = append(t.cells, cell{t.row, t.col, cols, value, a})
	t.col += cols
	t.cols = max(t.cols, t.col)
	return t
}

// Format writes the table to w. Columns are separated by two spaces
// and lines carry no trailing space.
func (t *Table) Format(w io.Writer) error {
	const gap = 2

	widths := make([]int, t.cols)
	cells := append([]cell(nil), t.cells...)
	// Single-column cells first, so spanning cells only widen
	// columns that are too narrow for them.
	sort.SliceStable(cells, func(i, j int) bool { return cells[i].span < cells[j].span })
	for _, c := range cells {
		need := utf8.RuneCountInString(c.value)
		if c.span == 1 {
			widths[c.col] = max(widths[c.col], need)
			continue
		}
		have := gap * (c.span - 1)
		for col := c.col; col < c.col+c.span; col++ {
			have += widths[col]
		}
		// Spread the shortfall over the spanned columns, the
		// rightmost ones taking any remainder.
		for i, short := 0, need-have; short > 0; i++ {
			col := c.col + c.span - 1 - i%c.span
			widths[col]++
			short--
		}
	}

	offs := make([]int, t.cols+1)
	for i, wd := range widths {
		offs[i+1] = offs[i] + wd + gap
	}
	width := offs[t.cols] - gap

	sort.SliceStable(cells, func(i, j int) bool {
		if cells[i].row != cells[j].row {
			return cells[i].row < cells[j].row
		}
		return cells[i].col < cells[j].col
	})

	var line strings.Builder
	flush := func() error {
		_, err := fmt.Fprintln(w, strings.TrimRight(line.String(), " "))
		line.Reset()
		return err
	}
	row, pos := 0, 0
	for _, c := range cells {
		for row < c.row {
			if err := flush(); err != nil {
				return err
			}
			row++
			pos = 0
			if row == t.header {
				fmt.Fprint(&line, strings.Repeat("-", width))
				if err := flush(); err != nil {
					return err
				}
			}
		}
		line.WriteString(strings.Repeat(" ", offs[c.col]-pos))
		cw := offs[c.col+c.span] - offs[c.col] - gap
		s := c.align.pad(c.value, cw)
		line.WriteString(s)
		pos = offs[c.col] + utf8.RuneCountInString(s)
	}
	if len(cells) > 0 {
		return flush()
	}
	return nil
}
