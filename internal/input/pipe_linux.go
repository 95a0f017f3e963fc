// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"
	"golang.org/x/sys/unix"
)

// ErrPipeFull is returned by Pipe.Write when the reader has fallen behind.
var ErrPipeFull = errors.New("input pipe full")

// Pipe is an in-process input device: events written on one end are read
// back from a pollable descriptor, and written field values are remembered
// for AbsInfo the way the kernel tracks absolute axes.
type Pipe struct {
	r, w int

	mu  sync.Mutex
	abs map[uint16]int32
	buf []byte
}

// NewPipe creates a non-blocking pipe device.
func NewPipe() (*Pipe, error) {
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, fmt.Errorf("pipe2: %w", err)
	}
	return &Pipe{r: fds[0], w: fds[1], abs: map[uint16]int32{}}, nil
}

// Fd returns the read end.
func (p *Pipe) Fd() int { return p.r }

// Read reads queued records without blocking.
func (p *Pipe) Read(b []byte) (int, error) {
	n, err := unix.Read(p.r, b)
	if errors.Is(err, unix.EAGAIN) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Write queues events as one atomic write and records EvAbs values.
func (p *Pipe) Write(events ...Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.buf = p.buf[:0]
	for _, ev := range events {
		p.buf = AppendEvent(p.buf, ev)
	}
	n, err := unix.Write(p.w, p.buf)
	if errors.Is(err, unix.EAGAIN) {
		return ErrPipeFull
	}
	if err != nil {
		return err
	}
	if n != len(p.buf) {
		return fmt.Errorf("input pipe: short write %d/%d", n, len(p.buf))
	}
	for _, ev := range events {
		if ev.Type == EvAbs {
			p.abs[ev.Code] = ev.Value
		}
	}
	return nil
}

// SetAbs records an absolute axis value without queuing an event.
func (p *Pipe) SetAbs(code uint16, value int32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abs[code] = value
}

// AbsInfo returns the last value written for code.
func (p *Pipe) AbsInfo(code uint16) (AbsInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.abs[code]
	if !ok {
		return AbsInfo{}, fmt.Errorf("abs %#x: %w", code, unix.EINVAL)
	}
	return AbsInfo{Value: v}, nil
}

// Close closes both ends.
func (p *Pipe) Close() error {
	return multierr.Combine(unix.Close(p.r), unix.Close(p.w))
}
