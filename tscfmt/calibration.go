// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tscfmt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// CalibrationSize is the size in bytes of an encoded calibration.
const CalibrationSize = 8

// ErrMalformedCalibration is matched by every
// *MalformedCalibrationError.
var ErrMalformedCalibration = errors.New("malformed calibration")

// A MalformedCalibrationError reports a calibration file that is too
// short or whose frequency is not a positive finite number.
type MalformedCalibrationError struct {
	File  string
	Value float64 // decoded value, if any
	Msg   string
}

func (e *MalformedCalibrationError) Error() string {
	if e.File == "" {
		return e.Msg
	}
	return e.File + ": " + e.Msg
}

func (e *MalformedCalibrationError) Is(target error) bool {
	return target == ErrMalformedCalibration
}

// DecodeCalibration parses a frequency in cycles per second from the
// first 8 bytes of b. Bytes past the first 8 are ignored.
func DecodeCalibration(b []byte) (float64, error) {
	if len(b) < CalibrationSize {
		return 0, &MalformedCalibrationError{Msg: fmt.Sprintf("truncated calibration: have %d bytes, need %d", len(b), CalibrationSize)}
	}
	v := math.Float64frombits(binary.LittleEndian.Uint64(b))
	if err := CheckFrequency(v); err != nil {
		return 0, err
	}
	return v, nil
}

// EncodeCalibration returns the encoded form of a frequency.
func EncodeCalibration(cyclesPerSecond float64) []byte {
	return binary.LittleEndian.AppendUint64(make([]byte, 0, CalibrationSize), math.Float64bits(cyclesPerSecond))
}

// CheckFrequency reports whether v is usable as a cycles-per-second
// conversion factor.
func CheckFrequency(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &MalformedCalibrationError{Value: v, Msg: fmt.Sprintf("frequency %v is not finite", v)}
	}
	if v <= 0 {
		return &MalformedCalibrationError{Value: v, Msg: fmt.Sprintf("frequency %v is not positive", v)}
	}
	return nil
}
