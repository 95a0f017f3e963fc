// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// invalidValue is what the light and proximity drivers report when the
// conversion failed. It is never a real index.
const invalidValue = -1

const scalarReaderCapacity = 4

// luxTable maps the light driver's level index to lux.
var luxTable = [...]float32{10, 160, 225, 320, 640, 1280, 2600, 10240}

// proximityThresholdCM is the distance reported per proximity step.
const proximityThresholdCM = 9.0

// LuxFromIndex converts a light level index to lux. Indices past the table
// clamp to the brightest entry.
func LuxFromIndex(index int32) float32 {
	switch {
	case index < 0:
		index = 0
	case int(index) >= len(luxTable):
		index = int32(len(luxTable) - 1)
	}
	return luxTable[index]
}

// DistanceFromIndex converts a proximity step to centimetres.
func DistanceFromIndex(index int32) float32 {
	return float32(index) * proximityThresholdCM
}

// ScalarSensor accumulates a single-valued source (light or proximity).
type ScalarSensor struct {
	name    string
	id      reading.SensorID
	code    uint16
	convert func(int32) float32

	stream Stream
	ctrl   Controller
	reader *input.Reader
	clock  clock.Clock
	logger *zap.SugaredLogger

	enabled         bool
	hasInitialValue bool
	pending         reading.Reading
}

// NewLightSensor builds the ambient light source.
func NewLightSensor(stream Stream, ctrl Controller, logger *zap.SugaredLogger, clk clock.Clock) *ScalarSensor {
	return newScalarSensor("light", reading.Light, reading.TypeLight, input.AbsLight, LuxFromIndex, stream, ctrl, logger, clk)
}

// NewProximitySensor builds the proximity source.
func NewProximitySensor(stream Stream, ctrl Controller, logger *zap.SugaredLogger, clk clock.Clock) *ScalarSensor {
	return newScalarSensor("proximity", reading.Proximity, reading.TypeProximity, input.AbsDistance, DistanceFromIndex, stream, ctrl, logger, clk)
}

func newScalarSensor(
	name string,
	id reading.SensorID,
	typ reading.SensorType,
	code uint16,
	convert func(int32) float32,
	stream Stream,
	ctrl Controller,
	logger *zap.SugaredLogger,
	clk clock.Clock,
) *ScalarSensor {
	s := &ScalarSensor{
		name:    name,
		id:      id,
		code:    code,
		convert: convert,
		stream:  stream,
		ctrl:    ctrl,
		reader:  input.NewReader(scalarReaderCapacity),
		clock:   clk,
		logger:  logger,
		pending: reading.Reading{Sensor: id, Type: typ},
	}

	// A source that is already running gets its current value reported
	// on the first read instead of waiting for the next change.
	on, err := ctrl.Enabled(id)
	if err != nil {
		logger.Warnf("%s: cannot query enabled state: %v", name, err)
		return s
	}
	if on {
		s.enabled = true
		s.setInitialState()
	}
	return s
}

func (s *ScalarSensor) setInitialState() {
	info, err := s.stream.AbsInfo(s.code)
	if err != nil {
		s.logger.Debugf("%s: no initial value: %v", s.name, err)
		return
	}
	if info.Value == invalidValue {
		return
	}
	s.pending.Scalar = s.convert(info.Value)
	s.hasInitialValue = true
}

// Name implements Source.
func (s *ScalarSensor) Name() string { return s.name }

// Fd implements Source.
func (s *ScalarSensor) Fd() int { return s.stream.Fd() }

// Sensors implements Source.
func (s *ScalarSensor) Sensors() []reading.SensorID { return []reading.SensorID{s.id} }

// Enable switches the source on or off. Asking for the current state is a no-op.
func (s *ScalarSensor) Enable(id reading.SensorID, on bool) error {
	if id != s.id {
		return fmt.Errorf("%s: sensor %v: %w", s.name, id, ErrInvalidArgument)
	}
	if on == s.enabled {
		return nil
	}
	if err := s.ctrl.SetEnabled(id, on); err != nil {
		s.logger.Errorf("%s: enable(%v) failed: %v", s.name, on, err)
		return &IOError{Op: s.name + " enable", Err: err}
	}
	s.enabled = on
	if on {
		s.setInitialState()
	}
	return nil
}

// SetDelay forwards a sampling interval to the driver.
func (s *ScalarSensor) SetDelay(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	return delayError(s.name, s.ctrl.SetDelay(d))
}

// ReadEvents fills buf with committed readings.
func (s *ScalarSensor) ReadEvents(buf []reading.Reading) (int, error) {
	if len(buf) < 1 {
		return 0, ErrInvalidArgument
	}

	if s.hasInitialValue {
		s.hasInitialValue = false
		s.pending.Timestamp = s.clock.Now().UnixNano()
		buf[0] = s.pending
		return 1, nil
	}

	if _, err := s.reader.Fill(s.stream); err != nil {
		return 0, &IOError{Op: s.name + " read", Err: err}
	}

	n := 0
	for n < len(buf) {
		ev, ok := s.reader.Next()
		if !ok {
			break
		}
		switch ev.Type {
		case input.EvAbs:
			if ev.Code == s.code && ev.Value != invalidValue {
				s.pending.Scalar = s.convert(ev.Value)
			}
		case input.EvSyn:
			s.pending.Timestamp = ev.Time
			buf[n] = s.pending
			n++
		}
		s.reader.Advance()
	}
	return n, nil
}

// Close releases the stream and the control channel.
func (s *ScalarSensor) Close() error {
	return multierr.Combine(s.stream.Close(), s.ctrl.Close())
}
