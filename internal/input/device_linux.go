// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package input

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// DevInputGlob matches the evdev nodes scanned by OpenByName.
var DevInputGlob = "/dev/input/event*"

// Device is a non-blocking handle on an evdev node.
type Device struct {
	fd   int
	path string
}

// Open opens the evdev node at path for non-blocking reads.
func Open(path string) (*Device, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// OpenByName scans the evdev nodes and opens the first whose driver name is name.
func OpenByName(name string) (*Device, error) {
	paths, err := filepath.Glob(DevInputGlob)
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	for _, p := range paths {
		d, err := Open(p)
		if err != nil {
			continue
		}
		devName, err := d.Name()
		if err == nil && devName == name {
			return d, nil
		}
		d.Close()
	}
	return nil, fmt.Errorf("no input device named %q", name)
}

// Path returns the node the device was opened from.
func (d *Device) Path() string { return d.path }

// Fd returns the descriptor used for readiness polling.
func (d *Device) Fd() int { return d.fd }

// Read reads raw input_event records. It never blocks: when the kernel has
// nothing queued it returns 0, nil.
func (d *Device) Read(p []byte) (int, error) {
	n, err := unix.Read(d.fd, p)
	if errors.Is(err, unix.EAGAIN) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

// AbsInfo returns the current state of absolute axis code.
func (d *Device) AbsInfo(code uint16) (AbsInfo, error) {
	var info AbsInfo
	if err := Ioctl(d.fd, eviocgabs(code), unsafe.Pointer(&info)); err != nil {
		return AbsInfo{}, fmt.Errorf("EVIOCGABS(%#x) on %s: %w", code, d.path, err)
	}
	return info, nil
}

// Name returns the driver-reported device name.
func (d *Device) Name() (string, error) {
	buf := make([]byte, 256)
	if err := Ioctl(d.fd, eviocgname(len(buf)), unsafe.Pointer(&buf[0])); err != nil {
		return "", fmt.Errorf("EVIOCGNAME on %s: %w", d.path, err)
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf), nil
}

// Close releases the descriptor.
func (d *Device) Close() error {
	return unix.Close(d.fd)
}
