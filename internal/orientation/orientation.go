// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package orientation

import (
	"math"
)

// Pose is an orientation estimate in degrees.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// ComputePoseFromAccel computes roll and pitch from accelerometer data only.
// Yaw is 0 since there is no heading reference without a magnetometer.
//
// Uses simple tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
func ComputePoseFromAccel(ax, ay, az float64) Pose {
	rollRad := math.Atan2(ay, az)
	pitchRad := math.Atan2(-ax, math.Sqrt(ay*ay+az*az))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
	}
}

// ComputePoseFromAccelMag adds a tilt-compensated heading from the
// magnetometer to the accelerometer tilt. Yaw is in [0, 360).
func ComputePoseFromAccelMag(ax, ay, az, mx, my, mz float64) Pose {
	p := ComputePoseFromAccel(ax, ay, az)
	if mx == 0 && my == 0 && mz == 0 {
		return p
	}

	roll := p.Roll * math.Pi / 180.0
	pitch := p.Pitch * math.Pi / 180.0

	// rotate the field back to the horizontal plane
	xh := mx*math.Cos(pitch) + mz*math.Sin(pitch)
	yh := mx*math.Sin(roll)*math.Sin(pitch) + my*math.Cos(roll) - mz*math.Sin(roll)*math.Cos(pitch)

	yaw := math.Atan2(-yh, xh) * 180.0 / math.Pi
	if yaw < 0 {
		yaw += 360
	}
	p.Yaw = yaw
	return p
}
