// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"syscall"
)

var (
	// ErrInvalidArgument covers bad buffers, unknown sensor ids and negative intervals.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported is returned when a source cannot honor a rate change.
	ErrUnsupported = errors.New("operation not supported")
)

// IOError wraps a failure of a control channel, a raw read or a readiness wait.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

// Code returns the underlying errno, or 0 when the cause is not a system error.
func (e *IOError) Code() syscall.Errno {
	var errno syscall.Errno
	if errors.As(e.Err, &errno) {
		return errno
	}
	return 0
}

// delayError classifies a controller's SetDelay failure.
func delayError(name string, err error) error {
	if err == nil || errors.Is(err, ErrUnsupported) || errors.Is(err, ErrInvalidArgument) {
		return err
	}
	return &IOError{Op: name + " set delay", Err: err}
}
