// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package input reads raw field updates from Linux input (evdev) devices.
package input

import (
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Event types used by the sensor drivers.
const (
	EvSyn uint16 = 0x00
	EvAbs uint16 = 0x03
)

// Absolute axis codes as reported by the sensor drivers.
// The compass driver reuses joystick axes for its fields.
const (
	AbsAccelX       uint16 = 0x00 // ABS_X
	AbsAccelZ       uint16 = 0x01 // ABS_Y
	AbsAccelY       uint16 = 0x02 // ABS_Z
	AbsYaw          uint16 = 0x03 // ABS_RX
	AbsPitch        uint16 = 0x04 // ABS_RY
	AbsRoll         uint16 = 0x05 // ABS_RZ
	AbsTemperature  uint16 = 0x06 // ABS_THROTTLE
	AbsOrientStatus uint16 = 0x07 // ABS_RUDDER
	AbsAccelStatus  uint16 = 0x08 // ABS_WHEEL
	AbsStepCount    uint16 = 0x09 // ABS_GAS
	AbsMagZ         uint16 = 0x0a // ABS_BRAKE
	AbsMagX         uint16 = 0x10 // ABS_HAT0X
	AbsMagY         uint16 = 0x11 // ABS_HAT0Y
	AbsDistance     uint16 = 0x19 // ABS_DISTANCE
	AbsLight        uint16 = 0x28 // ABS_MISC
)

// Event is one raw record from an input device.
// Type EvSyn is the commit marker and carries only a timestamp.
type Event struct {
	Time  int64 // ns since the epoch
	Type  uint16
	Code  uint16
	Value int32
}

// IsSync reports whether e is a SYN_REPORT marker.
func (e Event) IsSync() bool {
	return e.Type == EvSyn
}

// wireEvent mirrors struct input_event.
type wireEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// EventSize is the size of one struct input_event on this platform.
var EventSize = binary.Size(wireEvent{})

// AppendEvent appends the kernel encoding of e to dst.
func AppendEvent(dst []byte, e Event) []byte {
	w := wireEvent{
		Time:  unix.NsecToTimeval(e.Time),
		Type:  e.Type,
		Code:  e.Code,
		Value: e.Value,
	}
	out, err := binary.Append(dst, binary.NativeEndian, &w)
	if err != nil {
		// wireEvent is fixed size, Append cannot fail on it.
		panic(err)
	}
	return out
}

// DecodeEvent decodes one struct input_event from the front of b.
func DecodeEvent(b []byte) (Event, error) {
	var w wireEvent
	if _, err := binary.Decode(b, binary.NativeEndian, &w); err != nil {
		return Event{}, fmt.Errorf("decode input event: %w", err)
	}
	return Event{
		Time:  w.Time.Nano(),
		Type:  w.Type,
		Code:  w.Code,
		Value: w.Value,
	}, nil
}

// SyncAt returns a SYN_REPORT marker stamped with t.
func SyncAt(t time.Time) Event {
	return Event{Time: t.UnixNano(), Type: EvSyn}
}

// Abs returns a field update for code.
func Abs(code uint16, value int32) Event {
	return Event{Type: EvAbs, Code: code, Value: value}
}
