// Copyright 2022 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tscunit formats timings, cycle counts and allocation sizes
// for human consumption.
package tscunit

import (
	"fmt"
	"math"
	"strconv"
)

// A Class is a kind of quantity, which determines the units used to
// display it.
type Class int

const (
	// Duration values are nanoseconds and are displayed in ns, µs,
	// ms or s.
	Duration Class = iota
	// Count values, such as cycles, are displayed with SI prefixes.
	Count
	// Bytes values are displayed with binary prefixes.
	Bytes
)

func (c Class) String() string {
	switch c {
	case Duration:
		return "duration"
	case Count:
		return "count"
	case Bytes:
		return "bytes"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// A Scaler formats values with a common unit and precision.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Value of one Unit
	Unit   string  // Unit or prefix, such as "µs", "M" or "Ki"
}

// Format formats val in s's unit. For example, the Scaler for
// microseconds formats 12345 (ns) as "12.35µs".
func (s Scaler) Format(val float64) string {
	buf := make([]byte, 0, 20)
	buf = strconv.AppendFloat(buf, val/s.Factor, 'f', s.Prec, 64)
	buf = append(buf, s.Unit...)
	return string(buf)
}

// RawScaler formats values exactly, with no unit. It is meant for
// machine-readable output such as CSV.
var RawScaler = Scaler{-1, 1, ""}

type unit struct {
	factor float64
	name   string
	// Smallest values printed as 100.0, 10.00 and 1.000 in this unit.
	t100, t10, t1 float64
}

var (
	durationUnits = mkUnits([]string{"s", "ms", "µs", "ns"}, 1e9, 1e3)
	countUnits    = mkUnits([]string{"T", "G", "M", "k", ""}, 1e12, 1e3)
	byteUnits     = mkUnits([]string{"Ti", "Gi", "Mi", "Ki", ""}, 1<<40, 1<<10)
)

// mkUnits returns units from largest to smallest, dividing by step
// from largest down.
func mkUnits(names []string, largest, step float64) []unit {
	var units []unit
	f := largest
	for _, name := range names {
		thresh := func(s string) float64 {
			v, _ := strconv.ParseFloat(s, 64)
			return v * f
		}
		units = append(units, unit{f, name, thresh("99.995"), thresh("9.9995"), thresh(".99995")})
		f /= step
	}
	return units
}

func (c Class) units() []unit {
	switch c {
	case Duration:
		return durationUnits
	case Count:
		return countUnits
	case Bytes:
		return byteUnits
	}
	panic(fmt.Sprintf("bad Class %v", c))
}

// Scale formats val with at least three significant digits.
func Scale(val float64, c Class) string {
	return CommonScale([]float64{val}, c).Format(val)
}

// CommonScale returns a Scaler that shows every value in vals with at
// least three significant digits. The non-zero value closest to zero
// determines the unit.
func CommonScale(vals []float64, c Class) Scaler {
	units := c.units()
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && !math.IsInf(v, 0) && !math.IsNaN(v) && (min == 0 || v < min) {
			min = v
		}
	}
	smallest := units[len(units)-1]
	if min == 0 {
		return Scaler{0, smallest.factor, smallest.name}
	}

	for _, u := range units {
		switch {
		case min >= u.t100:
			return Scaler{1, u.factor, u.name}
		case min >= u.t10:
			return Scaler{2, u.factor, u.name}
		case min >= u.t1:
			return Scaler{3, u.factor, u.name}
		}
	}

	// Below one smallest unit, add digits until three are
	// significant, up to ten after the point.
	v := min / smallest.factor
	prec := 3
	for t := 0.099995; v < t && prec < 10; t /= 10 {
		prec++
	}
	return Scaler{prec, smallest.factor, smallest.name}
}

// Size formats an allocation size in bytes, using the largest binary
// unit that divides it exactly, such as "64B" or "4KiB".
func Size(bytes int) string {
	if bytes < 0 {
		return "-"
	}
	for _, u := range byteUnits {
		f := int64(u.factor)
		if int64(bytes) >= f && int64(bytes)%f == 0 {
			return strconv.FormatInt(int64(bytes)/f, 10) + u.name + "B"
		}
	}
	return strconv.Itoa(bytes) + "B"
}
