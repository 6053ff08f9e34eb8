// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout finds the run and calibration files of a log tree.
//
// A log tree has one directory per test. Each test directory holds
// the test's calibration files, named n-tsc_freq.bin, and one
// directory per allocator/size group, named allocator-sizeB, holding
// the group's run files, named n.bin:
//
//	logs/
//	    small/
//	        0-tsc_freq.bin
//	        1-tsc_freq.bin
//	        glibc-64B/
//	            0.bin
//	            1.bin
//	        mimalloc-64B/
//	            0.bin
package layout

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/arena-bench/tscstat/pipeline"
	"github.com/arena-bench/tscstat/tscfmt"
)

var (
	sizeRE        = regexp.MustCompile(`^(\d+)B$`)
	calibrationRE = regexp.MustCompile(`^(\d+)-tsc_freq\.bin$`)
)

// ParseGroupDir splits a group directory name into an allocator and a
// size in bytes. If the name does not end in -sizeB, the whole name is
// the allocator and ok is false.
func ParseGroupDir(name string) (allocator string, size int, ok bool) {
	i := strings.LastIndexByte(name, '-')
	if i < 0 {
		return name, pipeline.NoSize, false
	}
	m := sizeRE.FindStringSubmatch(name[i+1:])
	if m == nil {
		return name, pipeline.NoSize, false
	}
	size, err := strconv.Atoi(m[1])
	if err != nil {
		// Too large for an int.
		return name, pipeline.NoSize, false
	}
	return name[:i], size, true
}

// IsCalibration reports whether name is a calibration file name.
func IsCalibration(name string) bool {
	return calibrationRE.MatchString(path.Base(name))
}

// A TestNotFoundError reports a requested test that is not in the log
// tree.
type TestNotFoundError struct {
	Root string
	Test string
}

func (e *TestNotFoundError) Error() string {
	return fmt.Sprintf("test %q not found in %s", e.Test, e.Root)
}

func (e *TestNotFoundError) Is(target error) bool {
	return target == fs.ErrNotExist
}

// Tests lists the test directories under root, in lexical order.
func Tests(fsys fs.FS, root string) ([]string, error) {
	ents, err := fs.ReadDir(fsys, clean(root))
	if err != nil {
		return nil, err
	}
	var tests []string
	for _, e := range ents {
		if e.IsDir() {
			tests = append(tests, e.Name())
		}
	}
	return tests, nil
}

// Scan returns the groups of the named tests under root in fsys. If
// no tests are named, every test under root is scanned. Group
// directories without numbered run files are ignored. The groups are
// sorted by key.
func Scan(fsys fs.FS, root string, tests ...string) ([]*pipeline.Group, error) {
	root = clean(root)
	if len(tests) == 0 {
		var err error
		if tests, err = Tests(fsys, root); err != nil {
			return nil, err
		}
	}

	var groups []*pipeline.Group
	for _, test := range tests {
		g, err := scanTest(fsys, root, test)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g...)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Key.Less(groups[j].Key)
	})
	return groups, nil
}

func scanTest(fsys fs.FS, root, test string) ([]*pipeline.Group, error) {
	dir := path.Join(root, test)
	ents, err := fs.ReadDir(fsys, dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &TestNotFoundError{root, test}
	} else if err != nil {
		return nil, err
	}

	var cals []tscfmt.Source
	var dirs []string
	for _, e := range ents {
		switch {
		case e.IsDir():
			dirs = append(dirs, e.Name())
		case IsCalibration(e.Name()):
			cals = append(cals, tscfmt.FSSource(fsys, path.Join(dir, e.Name())))
		}
	}
	sort.SliceStable(cals, func(i, j int) bool {
		return calibrationNumber(cals[i].Name()) < calibrationNumber(cals[j].Name())
	})

	var groups []*pipeline.Group
	for _, name := range dirs {
		gdir := path.Join(dir, name)
		runs, err := runFiles(fsys, gdir)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			continue
		}
		alloc, size, _ := ParseGroupDir(name)
		groups = append(groups, &pipeline.Group{
			Key:          pipeline.Key{Test: test, Allocator: alloc, Size: size},
			Path:         gdir,
			Runs:         runs,
			Calibrations: cals,
		})
	}
	return groups, nil
}

func runFiles(fsys fs.FS, dir string) ([]tscfmt.Source, error) {
	ents, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	var runs []tscfmt.Source
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		if _, ok := tscfmt.RunNumber(e.Name()); ok {
			runs = append(runs, tscfmt.FSSource(fsys, path.Join(dir, e.Name())))
		}
	}
	tscfmt.SortRuns(runs)
	return runs, nil
}

func calibrationNumber(name string) int {
	m := calibrationRE.FindStringSubmatch(path.Base(name))
	if m == nil {
		return -1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return -1
	}
	return n
}

func clean(root string) string {
	if root == "" {
		return "."
	}
	return path.Clean(strings.TrimPrefix(root, "./"))
}
