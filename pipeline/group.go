// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline folds the analysis core over a set of
// allocator/size groups.
//
// Each group is calibrated, aggregated and analyzed independently. A
// failure in one group is recorded in that group's Outcome and never
// stops the others.
package pipeline

import (
	"fmt"

	"github.com/arena-bench/tscstat/tscfmt"
)

// NoSize is the Key.Size of a group whose name carries no size.
const NoSize = -1

// A Key identifies a group of run files.
type Key struct {
	Test      string
	Allocator string
	Size      int // bytes, or NoSize
}

// Name returns the group's directory name.
func (k Key) Name() string {
	if k.Size == NoSize {
		return k.Allocator
	}
	return fmt.Sprintf("%s-%dB", k.Allocator, k.Size)
}

func (k Key) String() string {
	return k.Test + "/" + k.Name()
}

// Less orders keys by test, then allocator, then size. Groups without
// a size sort before sized groups of the same allocator.
func (k Key) Less(o Key) bool {
	if k.Test != o.Test {
		return k.Test < o.Test
	}
	if k.Allocator != o.Allocator {
		return k.Allocator < o.Allocator
	}
	return k.Size < o.Size
}

// A Group is the unit of work of Run.
type Group struct {
	Key Key

	// Path locates the group's run files, for messages.
	Path string

	// Runs are the group's run files.
	Runs []tscfmt.Source

	// Calibrations are the calibration files of the group's test.
	// Run loads each distinct list once per test. Sources are
	// identified by name, so groups of one test that list the same
	// names share a Factor.
	Calibrations []tscfmt.Source
}
