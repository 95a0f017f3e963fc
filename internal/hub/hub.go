// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package hub multiplexes several sensor sources behind one poll call.
package hub

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/reading"
	"github.com/relabs-tech/sensorhub/internal/sensors"
)

// Hub owns a fixed set of sources and drains their readings into one buffer.
// It is meant to be driven from a single goroutine.
type Hub struct {
	sources []sensors.Source
	fds     []int
	// ready marks sources that may still hold readings from an earlier
	// wake-up or were just activated.
	ready  []bool
	routes map[reading.SensorID]int
	waiter Waiter
	logger *zap.SugaredLogger
}

// New builds a hub polling sources in the given order. Each sensor id may be
// served by only one source.
func New(logger *zap.SugaredLogger, sources ...sensors.Source) (*Hub, error) {
	return newHub(&PollWaiter{}, logger, sources...)
}

func newHub(w Waiter, logger *zap.SugaredLogger, sources ...sensors.Source) (*Hub, error) {
	h := &Hub{
		sources: sources,
		fds:     make([]int, len(sources)),
		ready:   make([]bool, len(sources)),
		routes:  map[reading.SensorID]int{},
		waiter:  w,
		logger:  logger,
	}
	for i, src := range sources {
		h.fds[i] = src.Fd()
		for _, id := range src.Sensors() {
			if prev, dup := h.routes[id]; dup {
				return nil, fmt.Errorf("sensor %v served by both %s and %s", id, sources[prev].Name(), src.Name())
			}
			h.routes[id] = i
		}
	}
	return h, nil
}

// Sensors lists every routed sensor id.
func (h *Hub) Sensors() []reading.SensorID {
	ids := make([]reading.SensorID, 0, len(h.routes))
	for _, src := range h.sources {
		ids = append(ids, src.Sensors()...)
	}
	return ids
}

func (h *Hub) route(id reading.SensorID) (int, error) {
	i, ok := h.routes[id]
	if !ok {
		return 0, fmt.Errorf("sensor %v: %w", id, sensors.ErrInvalidArgument)
	}
	return i, nil
}

// Activate enables or disables one sensor. A newly enabled source is
// checked on the next PollEvents even if its descriptor is not readable, so
// an initial value is delivered without waiting for the device.
func (h *Hub) Activate(id reading.SensorID, on bool) error {
	i, err := h.route(id)
	if err != nil {
		return err
	}
	if err := h.sources[i].Enable(id, on); err != nil {
		return err
	}
	if on {
		h.ready[i] = true
	}
	h.logger.Debugf("hub: %v active=%v", id, on)
	return nil
}

// SetInterval requests a sampling interval for a sensor. Sources sharing one
// driver share the interval.
func (h *Hub) SetInterval(id reading.SensorID, d time.Duration) error {
	i, err := h.route(id)
	if err != nil {
		return err
	}
	if d < 0 {
		return sensors.ErrInvalidArgument
	}
	return h.sources[i].SetDelay(d)
}

// PollEvents fills buf with readings from all sources. It blocks until at
// least one reading is available and returns once buf is full or no source
// has more to give. Readings that did not fit stay with their source for the
// next call.
func (h *Hub) PollEvents(buf []reading.Reading) (int, error) {
	if len(buf) < 1 {
		return 0, sensors.ErrInvalidArgument
	}

	n := 0
	for {
		for i, src := range h.sources {
			if n == len(buf) {
				break
			}
			if !h.ready[i] {
				continue
			}
			want := len(buf) - n
			got, err := src.ReadEvents(buf[n:])
			if err != nil {
				h.logger.Errorf("hub: %s: %v", src.Name(), err)
				return 0, err
			}
			if got < want {
				h.ready[i] = false
			}
			n += got
		}
		if n == len(buf) {
			return n, nil
		}

		found, err := h.waiter.Wait(h.fds, h.ready, n == 0)
		if err != nil {
			h.logger.Errorf("hub: poll: %v", err)
			return 0, &sensors.IOError{Op: "poll", Err: err}
		}
		if found == 0 && n > 0 {
			return n, nil
		}
	}
}

// Close closes every source.
func (h *Hub) Close() error {
	var err error
	for _, src := range h.sources {
		err = multierr.Append(err, src.Close())
	}
	return err
}
