// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tscfmt

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"sort"
	"strconv"
	"strings"
)

// A Source supplies the bytes of one encoded record or calibration.
//
// Name is used in error messages and for ordering run files; it is
// otherwise purely diagnostic.
type Source interface {
	Name() string
	ReadAll() ([]byte, error)
}

// FileSource returns a Source that reads the named file from the
// local file system.
func FileSource(name string) Source {
	return fileSource(name)
}

type fileSource string

func (f fileSource) Name() string             { return string(f) }
func (f fileSource) ReadAll() ([]byte, error) { return os.ReadFile(string(f)) }

// FSSource returns a Source that reads name from fsys.
func FSSource(fsys fs.FS, name string) Source {
	return &fsSource{fsys, name}
}

type fsSource struct {
	fsys fs.FS
	name string
}

func (f *fsSource) Name() string             { return f.name }
func (f *fsSource) ReadAll() ([]byte, error) { return fs.ReadFile(f.fsys, f.name) }

// BytesSource returns a Source over an in-memory buffer.
func BytesSource(name string, data []byte) Source {
	return &bytesSource{name, data}
}

type bytesSource struct {
	name string
	data []byte
}

func (b *bytesSource) Name() string             { return b.name }
func (b *bytesSource) ReadAll() ([]byte, error) { return b.data, nil }

// ReadRecord reads and decodes the record in src. Structural errors
// carry src's name.
func ReadRecord(src Source) (*Record, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	r, err := Decode(data)
	if err != nil {
		var me *MalformedRecordError
		if errors.As(err, &me) {
			me.File = src.Name()
		}
		return nil, err
	}
	return r, nil
}

// ReadCalibration reads and decodes the calibration in src.
func ReadCalibration(src Source) (float64, error) {
	data, err := src.ReadAll()
	if err != nil {
		return 0, err
	}
	v, err := DecodeCalibration(data)
	if err != nil {
		var me *MalformedCalibrationError
		if errors.As(err, &me) {
			me.File = src.Name()
		}
		return 0, err
	}
	return v, nil
}

// RunNumber returns the sequence number n of a run file named "n.bin"
// (in any directory).
func RunNumber(name string) (int, bool) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	num, ok := strings.CutSuffix(base, ".bin")
	if !ok || num == "" {
		return 0, false
	}
	for _, c := range num {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(num)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortRuns sorts srcs in place by ascending run number. Sources whose
// names are not numbered run files sort after all numbered ones, in
// lexical order. The sort is stable.
func SortRuns(srcs []Source) {
	sort.SliceStable(srcs, func(i, j int) bool {
		ni, oki := RunNumber(srcs[i].Name())
		nj, okj := RunNumber(srcs[j].Name())
		switch {
		case oki && okj:
			return ni < nj
		case oki != okj:
			return oki
		}
		return srcs[i].Name() < srcs[j].Name()
	})
}
