// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gcsfs

import (
	"errors"
	"io"
	"io/fs"
	"testing"
)

func TestObjectNames(t *testing.T) {
	check := func(prefix, name, object, dir string) {
		t.Helper()
		f := &FS{prefix: prefix}
		if got := f.object(name); got != object {
			t.Errorf("prefix %q: object(%q) = %q, want %q", prefix, name, got, object)
		}
		if got := f.dirPrefix(name); got != dir {
			t.Errorf("prefix %q: dirPrefix(%q) = %q, want %q", prefix, name, got, dir)
		}
	}
	check("", ".", "", "")
	check("", "small/0.bin", "small/0.bin", "small/0.bin/")
	check("runs/2024", ".", "runs/2024", "runs/2024/")
	check("runs/2024", "small", "runs/2024/small", "runs/2024/small/")
}

func TestInvalidPath(t *testing.T) {
	f := &FS{}
	for _, name := range []string{"/abs", "a/../b", "a//b", ""} {
		if _, err := f.ReadFile(name); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("ReadFile(%q) = %v, want ErrInvalid", name, err)
		}
		if _, err := f.ReadDir(name); !errors.Is(err, fs.ErrInvalid) {
			t.Errorf("ReadDir(%q) = %v, want ErrInvalid", name, err)
		}
	}
}

func TestDirReadDir(t *testing.T) {
	ents := []fs.DirEntry{&info{name: "a"}, &info{name: "b", dir: true}, &info{name: "c"}}
	d := &dir{info: &info{name: "x", dir: true}, ents: ents}

	got, err := d.ReadDir(2)
	if err != nil || len(got) != 2 || got[1].Name() != "b" || !got[1].IsDir() {
		t.Fatalf("ReadDir(2) = %v, %v", got, err)
	}
	got, err = d.ReadDir(2)
	if err != nil || len(got) != 1 || got[0].Name() != "c" {
		t.Fatalf("ReadDir(2) = %v, %v", got, err)
	}
	if _, err := d.ReadDir(1); err != io.EOF {
		t.Fatalf("ReadDir at end = %v, want EOF", err)
	}
	if got, err := d.ReadDir(-1); err != nil || len(got) != 0 {
		t.Fatalf("ReadDir(-1) at end = %v, %v", got, err)
	}
	if _, err := d.Read(nil); err == nil {
		t.Errorf("Read of a directory succeeded")
	}
}

func TestInfo(t *testing.T) {
	fi := &info{name: "0.bin", size: 32}
	if fi.IsDir() || fi.Mode() != 0444 || fi.Type() != 0 || fi.Size() != 32 {
		t.Errorf("file info: %v %v %v", fi.IsDir(), fi.Mode(), fi.Type())
	}
	di := &info{name: "glibc-64B", dir: true}
	if !di.IsDir() || di.Type() != fs.ModeDir {
		t.Errorf("dir info: %v %v", di.IsDir(), di.Type())
	}
	if got, _ := di.Info(); got != di {
		t.Errorf("Info() = %v", got)
	}
}
