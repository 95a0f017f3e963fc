// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

const compassReaderCapacity = 32

// Unit conversion for the compass driver's native counts.
const (
	gravityEarth = 9.80665
	accelLSB     = 720.0 // counts per g

	convertA  = gravityEarth / accelLSB
	convertAX = -convertA
	convertAY = convertA
	convertAZ = -convertA

	convertM  = 1.0 / 16.0 // µT per count
	convertMX = -convertM
	convertMY = -convertM
	convertMZ = convertM

	// statusMask keeps the defined bits of the orientation status field.
	statusMask = 0x7FFF
)

type channel int

const (
	chAccel channel = iota
	chMagnetic
	chOrientation
	chTemperature
	numChannels
)

// channelSensors is also the commit order.
var channelSensors = [numChannels]reading.SensorID{
	chAccel:       reading.Accelerometer,
	chMagnetic:    reading.MagneticField,
	chOrientation: reading.Orientation,
	chTemperature: reading.Temperature,
}

// channelSet is a small bit set of compass channels.
type channelSet uint8

func (s channelSet) has(c channel) bool { return s&(1<<c) != 0 }
func (s *channelSet) add(c channel)     { *s |= 1 << c }
func (s *channelSet) remove(c channel)  { *s &^= 1 << c }
func (s channelSet) empty() bool        { return s == 0 }

func channelFor(id reading.SensorID) (channel, bool) {
	for c, sid := range channelSensors {
		if sid == id {
			return channel(c), true
		}
	}
	return 0, false
}

// CompassSensor accumulates the combined accelerometer, magnetometer,
// orientation and temperature source. One SYNC marker commits every channel
// that changed since the previous one.
type CompassSensor struct {
	stream Stream
	ctrl   Controller
	reader *input.Reader
	logger *zap.SugaredLogger

	enabled  channelSet
	pending  channelSet
	readings [numChannels]reading.Reading
}

// NewCompassSensor builds the combined source. Channels the driver reports
// as already enabled are marked enabled and their current values loaded.
func NewCompassSensor(stream Stream, ctrl Controller, logger *zap.SugaredLogger) *CompassSensor {
	c := &CompassSensor{
		stream: stream,
		ctrl:   ctrl,
		reader: input.NewReader(compassReaderCapacity),
		logger: logger,
	}
	c.readings[chAccel] = reading.Reading{
		Sensor: reading.Accelerometer, Type: reading.TypeAccelerometer,
		Acceleration: reading.Vector{Status: reading.StatusHigh},
	}
	c.readings[chMagnetic] = reading.Reading{
		Sensor: reading.MagneticField, Type: reading.TypeMagneticField,
		Magnetic: reading.Vector{Status: reading.StatusHigh},
	}
	c.readings[chOrientation] = reading.Reading{
		Sensor: reading.Orientation, Type: reading.TypeOrientation,
		Orientation: reading.Angles{Status: reading.StatusHigh},
	}
	c.readings[chTemperature] = reading.Reading{
		Sensor: reading.Temperature, Type: reading.TypeTemperature,
	}

	for ch, id := range channelSensors {
		on, err := ctrl.Enabled(id)
		if err != nil {
			logger.Warnf("compass: cannot query %v state: %v", id, err)
			continue
		}
		if on {
			c.enabled.add(channel(ch))
			c.warmRead(channel(ch))
		}
	}
	return c
}

// warmRead loads the current absolute values of ch without marking it pending.
func (c *CompassSensor) warmRead(ch channel) {
	for _, code := range channelCodes[ch] {
		info, err := c.stream.AbsInfo(code)
		if err != nil {
			continue
		}
		c.applyField(code, info.Value)
	}
}

var channelCodes = [numChannels][]uint16{
	chAccel:       {input.AbsAccelX, input.AbsAccelY, input.AbsAccelZ},
	chMagnetic:    {input.AbsMagX, input.AbsMagY, input.AbsMagZ},
	chOrientation: {input.AbsYaw, input.AbsPitch, input.AbsRoll, input.AbsOrientStatus},
	chTemperature: {input.AbsTemperature},
}

// applyField stores one scaled field and returns the channel it belongs to.
func (c *CompassSensor) applyField(code uint16, value int32) (channel, bool) {
	v := float32(value)
	switch code {
	case input.AbsAccelX:
		c.readings[chAccel].Acceleration.X = v * convertAX
	case input.AbsAccelY:
		c.readings[chAccel].Acceleration.Y = v * convertAY
	case input.AbsAccelZ:
		c.readings[chAccel].Acceleration.Z = v * convertAZ
	case input.AbsMagX:
		c.readings[chMagnetic].Magnetic.X = v * convertMX
	case input.AbsMagY:
		c.readings[chMagnetic].Magnetic.Y = v * convertMY
	case input.AbsMagZ:
		c.readings[chMagnetic].Magnetic.Z = v * convertMZ
	case input.AbsYaw:
		c.readings[chOrientation].Orientation.Azimuth = v
	case input.AbsPitch:
		c.readings[chOrientation].Orientation.Pitch = v
	case input.AbsRoll:
		c.readings[chOrientation].Orientation.Roll = -v
	case input.AbsOrientStatus:
		c.readings[chOrientation].Orientation.Status = orientationStatus(value)
	case input.AbsTemperature:
		c.readings[chTemperature].Scalar = v
	default:
		return 0, false
	}
	return fieldChannel[code], true
}

// orientationStatus maps the raw status field to an accuracy level. Values
// outside the defined levels are reported as unreliable.
func orientationStatus(value int32) int8 {
	s := value & statusMask
	if s > int32(reading.StatusHigh) {
		return reading.StatusUnreliable
	}
	return int8(s)
}

var fieldChannel = map[uint16]channel{
	input.AbsAccelX:       chAccel,
	input.AbsAccelY:       chAccel,
	input.AbsAccelZ:       chAccel,
	input.AbsMagX:         chMagnetic,
	input.AbsMagY:         chMagnetic,
	input.AbsMagZ:         chMagnetic,
	input.AbsYaw:          chOrientation,
	input.AbsPitch:        chOrientation,
	input.AbsRoll:         chOrientation,
	input.AbsOrientStatus: chOrientation,
	input.AbsTemperature:  chTemperature,
}

// Name implements Source.
func (c *CompassSensor) Name() string { return "compass" }

// Fd implements Source.
func (c *CompassSensor) Fd() int { return c.stream.Fd() }

// Sensors implements Source.
func (c *CompassSensor) Sensors() []reading.SensorID { return channelSensors[:] }

// Enable switches one channel. Other channels keep their state and pending data.
func (c *CompassSensor) Enable(id reading.SensorID, on bool) error {
	ch, ok := channelFor(id)
	if !ok {
		return fmt.Errorf("compass: sensor %v: %w", id, ErrInvalidArgument)
	}
	if c.enabled.has(ch) == on {
		return nil
	}
	if err := c.ctrl.SetEnabled(id, on); err != nil {
		c.logger.Errorf("compass: enable %v(%v) failed: %v", id, on, err)
		return &IOError{Op: "compass enable " + id.String(), Err: err}
	}
	if on {
		c.enabled.add(ch)
		c.warmRead(ch)
	} else {
		c.enabled.remove(ch)
	}
	return nil
}

// SetDelay sets the driver's sampling interval, shared by all channels.
func (c *CompassSensor) SetDelay(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	return delayError("compass", c.ctrl.SetDelay(d))
}

// ReadEvents fills buf with committed readings in channel order. When buf
// fills up in the middle of a commit, the SYNC marker is kept so the
// remaining channels are committed with the same timestamp on the next call.
func (c *CompassSensor) ReadEvents(buf []reading.Reading) (int, error) {
	if len(buf) < 1 {
		return 0, ErrInvalidArgument
	}

	if _, err := c.reader.Fill(c.stream); err != nil {
		return 0, &IOError{Op: "compass read", Err: err}
	}

	n := 0
	for n < len(buf) {
		ev, ok := c.reader.Next()
		if !ok {
			break
		}
		switch ev.Type {
		case input.EvAbs:
			if ch, ok := c.applyField(ev.Code, ev.Value); ok {
				c.pending.add(ch)
			}
			c.reader.Advance()
		case input.EvSyn:
			for ch := chAccel; ch < numChannels && n < len(buf); ch++ {
				if !c.pending.has(ch) {
					continue
				}
				c.pending.remove(ch)
				c.readings[ch].Timestamp = ev.Time
				buf[n] = c.readings[ch]
				n++
			}
			if c.pending.empty() {
				c.reader.Advance()
			}
		default:
			c.reader.Advance()
		}
	}
	return n, nil
}

// Close releases the stream and the control channel.
func (c *CompassSensor) Close() error {
	return multierr.Combine(c.stream.Close(), c.ctrl.Close())
}
