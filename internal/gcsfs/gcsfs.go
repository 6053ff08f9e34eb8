// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gcsfs presents a Google Cloud Storage bucket as a read-only
// fs.FS, so log trees uploaded by the benchmark harness can be
// analyzed without copying them to a local disk.
//
// Object names are split at "/" into directories. Cloud Storage has
// no empty directories, so a directory exists exactly when some object
// name has it as a prefix.
package gcsfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// NewClient returns a Cloud Storage client with read-only access. If
// credentialsFile is empty, the application default credentials are
// used when available, and the client is unauthenticated otherwise.
func NewClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opt option.ClientOption
	if credentialsFile != "" {
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, err
		}
		creds, err := google.CredentialsFromJSON(ctx, data, storage.ScopeReadOnly)
		if err != nil {
			return nil, err
		}
		opt = option.WithCredentials(creds)
	} else if creds, err := google.FindDefaultCredentials(ctx, storage.ScopeReadOnly); err == nil {
		opt = option.WithCredentials(creds)
	} else {
		opt = option.WithoutAuthentication()
	}
	return storage.NewClient(ctx, opt)
}

// FS is a file system over the objects of a bucket below a prefix.
type FS struct {
	ctx    context.Context
	bucket *storage.BucketHandle
	prefix string
}

// New returns an FS rooted at prefix in bucket. ctx is used for every
// request the FS makes.
func New(ctx context.Context, client *storage.Client, bucket, prefix string) *FS {
	return &FS{ctx, client.Bucket(bucket), strings.Trim(prefix, "/")}
}

var (
	_ fs.ReadDirFS  = (*FS)(nil)
	_ fs.ReadFileFS = (*FS)(nil)
	_ fs.StatFS     = (*FS)(nil)
)

// object returns the object name of the fs path name.
func (f *FS) object(name string) string {
	if name == "." {
		return f.prefix
	}
	if f.prefix == "" {
		return name
	}
	return f.prefix + "/" + name
}

// dirPrefix returns the listing prefix of the directory name.
func (f *FS) dirPrefix(name string) string {
	if o := f.object(name); o != "" {
		return o + "/"
	}
	return ""
}

// ReadFile reads the whole object name.
func (f *FS) ReadFile(name string) ([]byte, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrInvalid}
	}
	r, err := f.bucket.Object(f.object(name)).NewReader(f.ctx)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: mapErr(err)}
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// ReadDir lists the directory name, sorted by name.
func (f *FS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	prefix := f.dirPrefix(name)
	it := f.bucket.Objects(f.ctx, &storage.Query{Prefix: prefix, Delimiter: "/"})
	var ents []fs.DirEntry
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, &fs.PathError{Op: "readdir", Path: name, Err: mapErr(err)}
		}
		if attrs.Prefix != "" {
			ents = append(ents, &info{name: path.Base(strings.TrimSuffix(attrs.Prefix, "/")), dir: true})
			continue
		}
		if attrs.Name == prefix {
			// A placeholder object for the directory itself.
			continue
		}
		ents = append(ents, &info{name: path.Base(attrs.Name), size: attrs.Size, mod: attrs.Updated})
	}
	if len(ents) == 0 && name != "." {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	// Listings are lexical by object name, and a directory prefix
	// "a/" sorts after an object "a-b", which fs.ReadDir does not
	// allow.
	sort.Slice(ents, func(i, j int) bool {
		return ents[i].Name() < ents[j].Name()
	})
	return ents, nil
}

// Stat returns the FileInfo of name.
func (f *FS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	if name == "." {
		return &info{name: ".", dir: true}, nil
	}
	attrs, err := f.bucket.Object(f.object(name)).Attrs(f.ctx)
	if err == nil {
		return &info{name: path.Base(name), size: attrs.Size, mod: attrs.Updated}, nil
	}
	if !errors.Is(err, storage.ErrObjectNotExist) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: err}
	}
	if _, err := f.ReadDir(name); err != nil {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return &info{name: path.Base(name), dir: true}, nil
}

// Open opens name. Files are read into memory on open.
func (f *FS) Open(name string) (fs.File, error) {
	fi, err := f.Stat(name)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		ents, err := f.ReadDir(name)
		if err != nil {
			return nil, err
		}
		return &dir{info: fi.(*info), ents: ents}, nil
	}
	data, err := f.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return &file{info: fi.(*info), Reader: bytes.NewReader(data)}, nil
}

func mapErr(err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return fs.ErrNotExist
	}
	return err
}

type info struct {
	name string
	size int64
	mod  time.Time
	dir  bool
}

func (i *info) Name() string { return i.name }
func (i *info) Size() int64  { return i.size }
func (i *info) Mode() fs.FileMode {
	if i.dir {
		return fs.ModeDir | 0555
	}
	return 0444
}
func (i *info) ModTime() time.Time         { return i.mod }
func (i *info) IsDir() bool                { return i.dir }
func (i *info) Sys() any                   { return nil }
func (i *info) Type() fs.FileMode          { return i.Mode().Type() }
func (i *info) Info() (fs.FileInfo, error) { return i, nil }

type file struct {
	*info
	*bytes.Reader
}

func (f *file) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *file) Close() error               { return nil }

type dir struct {
	*info
	ents []fs.DirEntry
}

func (d *dir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *dir) Close() error               { return nil }
func (d *dir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.name, Err: errors.New("is a directory")}
}

func (d *dir) ReadDir(n int) ([]fs.DirEntry, error) {
	if n <= 0 {
		ents := d.ents
		d.ents = nil
		return ents, nil
	}
	if len(d.ents) == 0 {
		return nil, io.EOF
	}
	n = min(n, len(d.ents))
	ents := d.ents[:n]
	d.ents = d.ents[n:]
	return ents, nil
}
