// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/relabs-tech/sensorhub/internal/env"
	"github.com/relabs-tech/sensorhub/internal/imu"
	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/orientation"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// Bridge sampling intervals.
const (
	DefaultBridgeInterval = 100 * time.Millisecond
	MinBridgeInterval     = 5 * time.Millisecond
)

// IMUBridge emulates the compass driver on top of an SPI IMU and an
// optional barometer. It samples on its own goroutine and writes field
// updates in the compass driver's native units into a pipe, so a
// CompassSensor reads it like the real device. It serves as both the
// Stream and the Controller of that sensor.
type IMUBridge struct {
	pipe   *input.Pipe
	imu    imu.Reader
	env    env.Reader
	clock  clock.Clock
	ticker *clock.Ticker
	logger *zap.SugaredLogger

	mu      sync.Mutex
	enabled channelSet

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// NewIMUBridge starts a bridge sampling every DefaultBridgeInterval.
// envReader may be nil, in which case no temperature is reported.
func NewIMUBridge(imuReader imu.Reader, envReader env.Reader, clk clock.Clock, logger *zap.SugaredLogger) (*IMUBridge, error) {
	p, err := input.NewPipe()
	if err != nil {
		return nil, fmt.Errorf("imu bridge: %w", err)
	}
	b := &IMUBridge{
		pipe:   p,
		imu:    imuReader,
		env:    envReader,
		clock:  clk,
		ticker: clk.Ticker(DefaultBridgeInterval),
		logger: logger,
		done:   make(chan struct{}),
	}
	b.wg.Add(1)
	go b.run()
	return b, nil
}

func (b *IMUBridge) run() {
	defer b.wg.Done()
	for {
		select {
		case <-b.done:
			return
		case now := <-b.ticker.C:
			if err := b.sampleOnce(now); err != nil {
				b.logger.Warnf("imu bridge: %v", err)
			}
		}
	}
}

// sampleOnce reads the devices and queues one committed update for every
// enabled channel.
func (b *IMUBridge) sampleOnce(now time.Time) error {
	b.mu.Lock()
	enabled := b.enabled
	b.mu.Unlock()
	if enabled.empty() {
		return nil
	}

	var events []input.Event
	if enabled.has(chAccel) || enabled.has(chMagnetic) || enabled.has(chOrientation) {
		raw, err := b.imu.ReadRaw()
		if err != nil {
			return err
		}
		events = appendIMUFields(events, raw, enabled)
	}
	if enabled.has(chTemperature) && b.env != nil {
		s, err := b.env.ReadEnv()
		if err != nil {
			b.logger.Debugf("imu bridge: %v", err)
		} else {
			events = append(events, input.Abs(input.AbsTemperature, int32(math.Round(s.Temperature))))
		}
	}
	if len(events) == 0 {
		return nil
	}

	events = append(events, input.SyncAt(now))
	if err := b.pipe.Write(events...); err != nil {
		if errors.Is(err, input.ErrPipeFull) {
			b.logger.Debugf("imu bridge: reader behind, sample dropped")
			return nil
		}
		return err
	}
	return nil
}

// appendIMUFields converts raw IMU counts into compass driver counts. The
// signs undo the ones CompassSensor applies.
func appendIMUFields(events []input.Event, raw imu.IMURaw, enabled channelSet) []input.Event {
	ax := float64(raw.Ax) / imu.AccelLSBPerG
	ay := float64(raw.Ay) / imu.AccelLSBPerG
	az := float64(raw.Az) / imu.AccelLSBPerG

	if enabled.has(chAccel) {
		events = append(events,
			input.Abs(input.AbsAccelX, roundCount(-ax*accelLSB)),
			input.Abs(input.AbsAccelY, roundCount(ay*accelLSB)),
			input.Abs(input.AbsAccelZ, roundCount(-az*accelLSB)),
		)
	}

	// µT×10 to driver counts of 1/16 µT
	const magScale = 16.0 / 10.0
	if enabled.has(chMagnetic) && raw.HasMag {
		events = append(events,
			input.Abs(input.AbsMagX, roundCount(-float64(raw.Mx)*magScale)),
			input.Abs(input.AbsMagY, roundCount(-float64(raw.My)*magScale)),
			input.Abs(input.AbsMagZ, roundCount(float64(raw.Mz)*magScale)),
		)
	}

	if enabled.has(chOrientation) {
		var pose orientation.Pose
		if raw.HasMag {
			pose = orientation.ComputePoseFromAccelMag(ax, ay, az, float64(raw.Mx), float64(raw.My), float64(raw.Mz))
		} else {
			pose = orientation.ComputePoseFromAccel(ax, ay, az)
		}
		events = append(events,
			input.Abs(input.AbsYaw, roundCount(pose.Yaw)),
			input.Abs(input.AbsPitch, roundCount(pose.Pitch)),
			input.Abs(input.AbsRoll, roundCount(-pose.Roll)),
			input.Abs(input.AbsOrientStatus, int32(reading.StatusHigh)),
		)
	}
	return events
}

func roundCount(v float64) int32 { return int32(math.Round(v)) }

// Fd implements Stream.
func (b *IMUBridge) Fd() int { return b.pipe.Fd() }

// Read implements Stream.
func (b *IMUBridge) Read(p []byte) (int, error) { return b.pipe.Read(p) }

// AbsInfo implements Stream.
func (b *IMUBridge) AbsInfo(code uint16) (input.AbsInfo, error) { return b.pipe.AbsInfo(code) }

// Enabled implements Controller.
func (b *IMUBridge) Enabled(id reading.SensorID) (bool, error) {
	ch, ok := channelFor(id)
	if !ok {
		return false, ErrInvalidArgument
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled.has(ch), nil
}

// SetEnabled implements Controller.
func (b *IMUBridge) SetEnabled(id reading.SensorID, on bool) error {
	ch, ok := channelFor(id)
	if !ok {
		return ErrInvalidArgument
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if on {
		b.enabled.add(ch)
	} else {
		b.enabled.remove(ch)
	}
	return nil
}

// SetDelay retunes the sampling ticker. Intervals below MinBridgeInterval
// are raised to it.
func (b *IMUBridge) SetDelay(d time.Duration) error {
	if d < 0 {
		return ErrInvalidArgument
	}
	if d < MinBridgeInterval {
		d = MinBridgeInterval
	}
	b.ticker.Reset(d)
	return nil
}

// Close stops sampling and closes the pipe. It is safe to call more than
// once; the CompassSensor closes the bridge as stream and as controller.
func (b *IMUBridge) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
		b.ticker.Stop()
		b.wg.Wait()
		b.closeErr = b.pipe.Close()
	})
	return b.closeErr
}
