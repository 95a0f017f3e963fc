// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// Driver control nodes.
const (
	LightControlPath     = "/dev/lightsensor"
	ProximityControlPath = "/dev/cm3602"
	CompassControlPath   = "/dev/akm8973_aot"
)

// Input device names reported by the drivers.
const (
	LightInputName     = "lightsensor-level"
	ProximityInputName = "proximity"
	CompassInputName   = "compass"
)

// The light and proximity drivers declare their argument as int *.
var intPtrSize = unsafe.Sizeof(uintptr(0))

var (
	lightGetEnabled = input.IOR('l', 1, intPtrSize)
	lightEnable     = input.IOW('l', 2, intPtrSize)

	proximityGetEnabled = input.IOR('c', 1, intPtrSize)
	proximityEnable     = input.IOW('c', 2, intPtrSize)
)

// AKM8973 application ioctls; every argument is a short.
const akmIO = 0xA1

var (
	shortSize = unsafe.Sizeof(int16(0))

	akmSetMFlag  = input.IOW(akmIO, 0x11, shortSize)
	akmGetMFlag  = input.IOW(akmIO, 0x12, shortSize)
	akmSetAFlag  = input.IOW(akmIO, 0x13, shortSize)
	akmGetAFlag  = input.IOR(akmIO, 0x14, shortSize)
	akmSetTFlag  = input.IOR(akmIO, 0x15, shortSize)
	akmGetTFlag  = input.IOR(akmIO, 0x16, shortSize)
	akmSetDelay  = input.IOW(akmIO, 0x18, shortSize)
	akmSetMVFlag = input.IOW(akmIO, 0x19, shortSize)
	akmGetMVFlag = input.IOR(akmIO, 0x1A, shortSize)
)

func openControl(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, err)
	}
	return fd, nil
}

// flagControl drives a single-sensor driver with GET/SET enabled ioctls.
type flagControl struct {
	fd     int
	path   string
	id     reading.SensorID
	get    uint
	enable uint
}

// OpenLightControl opens the light sensor's control node.
func OpenLightControl(path string) (Controller, error) {
	fd, err := openControl(path)
	if err != nil {
		return nil, err
	}
	return &flagControl{fd: fd, path: path, id: reading.Light, get: lightGetEnabled, enable: lightEnable}, nil
}

// OpenProximityControl opens the proximity sensor's control node.
func OpenProximityControl(path string) (Controller, error) {
	fd, err := openControl(path)
	if err != nil {
		return nil, err
	}
	return &flagControl{fd: fd, path: path, id: reading.Proximity, get: proximityGetEnabled, enable: proximityEnable}, nil
}

func (c *flagControl) Enabled(id reading.SensorID) (bool, error) {
	if id != c.id {
		return false, ErrInvalidArgument
	}
	v, err := unix.IoctlGetInt(c.fd, c.get)
	if err != nil {
		return false, fmt.Errorf("%s: get enabled: %w", c.path, err)
	}
	return v != 0, nil
}

func (c *flagControl) SetEnabled(id reading.SensorID, on bool) error {
	if id != c.id {
		return ErrInvalidArgument
	}
	flag := 0
	if on {
		flag = 1
	}
	if err := unix.IoctlSetPointerInt(c.fd, c.enable, flag); err != nil {
		return fmt.Errorf("%s: enable: %w", c.path, err)
	}
	return nil
}

// SetDelay is not offered by these drivers.
func (c *flagControl) SetDelay(time.Duration) error { return ErrUnsupported }

func (c *flagControl) Close() error { return unix.Close(c.fd) }

// akmControl drives the AKM8973 daemon interface, one flag per channel.
type akmControl struct {
	fd   int
	path string
}

// OpenCompassControl opens the compass control node.
func OpenCompassControl(path string) (Controller, error) {
	fd, err := openControl(path)
	if err != nil {
		return nil, err
	}
	return &akmControl{fd: fd, path: path}, nil
}

func akmFlagRequests(id reading.SensorID) (get, set uint, ok bool) {
	switch id {
	case reading.Accelerometer:
		return akmGetAFlag, akmSetAFlag, true
	case reading.MagneticField:
		return akmGetMVFlag, akmSetMVFlag, true
	case reading.Orientation:
		return akmGetMFlag, akmSetMFlag, true
	case reading.Temperature:
		return akmGetTFlag, akmSetTFlag, true
	}
	return 0, 0, false
}

func (c *akmControl) Enabled(id reading.SensorID) (bool, error) {
	get, _, ok := akmFlagRequests(id)
	if !ok {
		return false, ErrInvalidArgument
	}
	var flag int16
	if err := input.Ioctl(c.fd, get, unsafe.Pointer(&flag)); err != nil {
		return false, fmt.Errorf("%s: get %v flag: %w", c.path, id, err)
	}
	return flag != 0, nil
}

func (c *akmControl) SetEnabled(id reading.SensorID, on bool) error {
	_, set, ok := akmFlagRequests(id)
	if !ok {
		return ErrInvalidArgument
	}
	var flag int16
	if on {
		flag = 1
	}
	if err := input.Ioctl(c.fd, set, unsafe.Pointer(&flag)); err != nil {
		return fmt.Errorf("%s: set %v flag: %w", c.path, id, err)
	}
	return nil
}

// SetDelay passes the interval to the daemon in milliseconds.
func (c *akmControl) SetDelay(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	ms := d.Milliseconds()
	if ms > 1<<15-1 {
		ms = 1<<15 - 1
	}
	delay := int16(ms)
	if err := input.Ioctl(c.fd, akmSetDelay, unsafe.Pointer(&delay)); err != nil {
		return fmt.Errorf("%s: set delay: %w", c.path, err)
	}
	return nil
}

func (c *akmControl) Close() error { return unix.Close(c.fd) }
