// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tscfmt reads and writes the binary timing records produced
// by the allocator benchmark harness.
//
// A run file holds exactly one record. All fields are little-endian
// and there is no padding or magic number:
//
//	offset 0   u64 total_cycles
//	offset 8   u64 iteration_count
//	offset 16  u64 sample_count = N
//	offset 24  N × u64 per-iteration cycle counts
//
// A calibration file holds a single little-endian IEEE-754 double
// giving the timestamp counter frequency in cycles per second.
package tscfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// HeaderSize is the size in bytes of the fixed record header.
const HeaderSize = 24

// maxSamples is the largest sample count whose byte length fits in an
// int alongside the header.
const maxSamples = (math.MaxInt - HeaderSize) / 8

// A Summary is the pair of totals at the head of every record.
type Summary struct {
	TotalCycles uint64
	Iterations  uint64
}

// ErrZeroIterations is returned by Summary.Average when there is
// nothing to average over.
var ErrZeroIterations = errors.New("iteration count is zero")

// Average returns the mean number of cycles per iteration.
func (s Summary) Average() (float64, error) {
	if s.Iterations == 0 {
		return 0, ErrZeroIterations
	}
	return float64(s.TotalCycles) / float64(s.Iterations), nil
}

// Add returns the field-wise sum of s and o. It fails if either sum
// overflows 64 bits.
func (s Summary) Add(o Summary) (Summary, error) {
	cycles := s.TotalCycles + o.TotalCycles
	if cycles < s.TotalCycles {
		return s, fmt.Errorf("total cycles overflow adding %d to %d", o.TotalCycles, s.TotalCycles)
	}
	iters := s.Iterations + o.Iterations
	if iters < s.Iterations {
		return s, fmt.Errorf("iteration count overflow adding %d to %d", o.Iterations, s.Iterations)
	}
	return Summary{cycles, iters}, nil
}

// A Record is one decoded run file.
type Record struct {
	Summary

	// Samples are the per-iteration cycle counts in the order the
	// harness wrote them. The declared sample count of the encoded
	// form is always len(Samples).
	Samples []uint64
}

// ErrMalformedRecord is matched by every *MalformedRecordError.
var ErrMalformedRecord = errors.New("malformed timing record")

// A MalformedRecordError reports a structural problem with an encoded
// record at a particular byte offset.
type MalformedRecordError struct {
	File   string // source name, or "" if unknown
	Offset int    // byte offset of the offending field
	Msg    string
}

func (e *MalformedRecordError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("offset %d: %s", e.Offset, e.Msg)
	}
	return fmt.Sprintf("%s: offset %d: %s", e.File, e.Offset, e.Msg)
}

func (e *MalformedRecordError) Is(target error) bool {
	return target == ErrMalformedRecord
}

func malformed(off int, format string, args ...interface{}) *MalformedRecordError {
	return &MalformedRecordError{Offset: off, Msg: fmt.Sprintf(format, args...)}
}

// Decode parses a single record from b. It never repairs its input:
// short buffers, a sample count that exceeds the buffer length, and a
// zero iteration count are all reported as a *MalformedRecordError.
// Bytes after the last declared sample are ignored.
func Decode(b []byte) (*Record, error) {
	if len(b) < HeaderSize {
		return nil, malformed(len(b), "truncated header: have %d bytes, need %d", len(b), HeaderSize)
	}
	r := &Record{}
	r.TotalCycles = binary.LittleEndian.Uint64(b[0:])
	r.Iterations = binary.LittleEndian.Uint64(b[8:])
	if r.Iterations == 0 {
		return nil, malformed(8, "iteration count is zero")
	}
	n := binary.LittleEndian.Uint64(b[16:])
	if n > maxSamples {
		return nil, malformed(16, "sample count %d is too large", n)
	}
	end := HeaderSize + 8*int(n)
	if len(b) < end {
		return nil, malformed(16, "sample count %d needs %d bytes, have %d", n, end, len(b))
	}
	r.Samples = make([]uint64, n)
	for i := range r.Samples {
		r.Samples[i] = binary.LittleEndian.Uint64(b[HeaderSize+8*i:])
	}
	return r, nil
}

// AppendBinary appends the encoded form of r to dst.
func (r *Record) AppendBinary(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint64(dst, r.TotalCycles)
	dst = binary.LittleEndian.AppendUint64(dst, r.Iterations)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(len(r.Samples)))
	for _, v := range r.Samples {
		dst = binary.LittleEndian.AppendUint64(dst, v)
	}
	return dst
}

// Encode returns the encoded form of r.
//
// Encode does not validate r; a record with zero iterations encodes
// fine but will not decode.
func Encode(r *Record) []byte {
	return r.AppendBinary(make([]byte, 0, HeaderSize+8*len(r.Samples)))
}
