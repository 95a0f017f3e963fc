// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"math"

	"github.com/benbjohnson/clock"

	"github.com/relabs-tech/sensorhub/internal/imu"
)

// mockFieldUT is the horizontal field strength reported by the mock IMU.
const mockFieldUT = 30.0

type mockIMU struct {
	clock clock.Clock
	start int64
}

// NewMockIMU creates an IMU reader that generates a smoothly tilting and
// turning board.
func NewMockIMU(clk clock.Clock) imu.Reader {
	return &mockIMU{clock: clk, start: clk.Now().UnixNano()}
}

func (m *mockIMU) ReadRaw() (imu.IMURaw, error) {
	elapsed := float64(m.clock.Now().UnixNano()-m.start) / 1e9

	roll := 20 * math.Sin(elapsed) * math.Pi / 180
	pitch := 15 * math.Cos(elapsed*0.7) * math.Pi / 180
	yaw := math.Mod(elapsed*30, 360) * math.Pi / 180

	return imu.IMURaw{
		Source: "mock",
		Ax:     int16(math.Round(-math.Sin(pitch) * imu.AccelLSBPerG)),
		Ay:     int16(math.Round(math.Sin(roll) * math.Cos(pitch) * imu.AccelLSBPerG)),
		Az:     int16(math.Round(math.Cos(roll) * math.Cos(pitch) * imu.AccelLSBPerG)),
		Mx:     int16(math.Round(mockFieldUT * 10 * math.Cos(yaw))),
		My:     int16(math.Round(-mockFieldUT * 10 * math.Sin(yaw))),
		HasMag: true,
	}, nil
}
