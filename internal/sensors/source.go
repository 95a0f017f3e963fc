// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"time"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// Stream is the raw side of a physical source: a pollable, non-blocking
// record stream plus the current value of each absolute axis.
type Stream interface {
	Fd() int
	Read(p []byte) (int, error)
	AbsInfo(code uint16) (input.AbsInfo, error)
	Close() error
}

// Controller is the control channel of a physical source.
type Controller interface {
	Enabled(id reading.SensorID) (bool, error)
	SetEnabled(id reading.SensorID, on bool) error
	SetDelay(d time.Duration) error
	Close() error
}

// Source is one physical device turning raw field updates into readings.
// Implementations are driven from a single goroutine and are not safe for
// concurrent use.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Fd is the descriptor polled for readiness.
	Fd() int
	// Sensors lists the logical sensors this source serves.
	Sensors() []reading.SensorID
	// ReadEvents fills buf with committed readings and returns how many were written.
	ReadEvents(buf []reading.Reading) (int, error)
	Enable(id reading.SensorID, on bool) error
	SetDelay(d time.Duration) error
	Close() error
}
