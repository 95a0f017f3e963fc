// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
	"github.com/relabs-tech/sensorhub/internal/sensors"
)

// errWoken aborts a blocked PollEvents after Wake.
var errWoken = errors.New("poll woken for shutdown")

// wakeSource is a sensorless source polled next to the sensors. Writing to
// it makes a blocked PollEvents return errWoken.
type wakeSource struct {
	pipe    *input.Pipe
	scratch []byte
}

func newWakeSource() (*wakeSource, error) {
	p, err := input.NewPipe()
	if err != nil {
		return nil, fmt.Errorf("wake pipe: %w", err)
	}
	return &wakeSource{pipe: p, scratch: make([]byte, 4*input.EventSize)}, nil
}

// Wake interrupts the current or next PollEvents.
func (w *wakeSource) Wake() {
	// a full pipe already guarantees a wake-up
	_ = w.pipe.Write(input.SyncAt(time.Now()))
}

func (w *wakeSource) Name() string                { return "wake" }
func (w *wakeSource) Fd() int                     { return w.pipe.Fd() }
func (w *wakeSource) Sensors() []reading.SensorID { return nil }

func (w *wakeSource) ReadEvents([]reading.Reading) (int, error) {
	n, err := w.pipe.Read(w.scratch)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, errWoken
	}
	return 0, nil
}

func (w *wakeSource) Enable(reading.SensorID, bool) error { return sensors.ErrInvalidArgument }
func (w *wakeSource) SetDelay(time.Duration) error        { return sensors.ErrUnsupported }
func (w *wakeSource) Close() error                        { return w.pipe.Close() }
