// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

// IMURaw represents a single raw IMU sample in device counts.
type IMURaw struct {
	Source string `json:"source"`

	Ax int16 `json:"ax"` // accel, AccelLSBPerG counts per g
	Ay int16 `json:"ay"`
	Az int16 `json:"az"`

	Gx int16 `json:"gx"` // gyro
	Gy int16 `json:"gy"`
	Gz int16 `json:"gz"`

	Mx int16 `json:"mx"` // magnetometer, µT×10
	My int16 `json:"my"`
	Mz int16 `json:"mz"`

	HasMag bool `json:"has_mag"`
}

// AccelLSBPerG is the accelerometer sensitivity at the ±2g range.
const AccelLSBPerG = 16384.0

// Reader is anything that can sample an IMU.
type Reader interface {
	ReadRaw() (IMURaw, error)
}
