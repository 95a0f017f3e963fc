// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package reading

import "fmt"

// SensorID is the logical sensor handle exposed to consumers.
type SensorID int

const (
	Accelerometer SensorID = iota
	MagneticField
	Orientation
	Temperature
	Proximity
	Light
)

var sensorNames = map[SensorID]string{
	Accelerometer: "accelerometer",
	MagneticField: "magnetic_field",
	Orientation:   "orientation",
	Temperature:   "temperature",
	Proximity:     "proximity",
	Light:         "light",
}

func (id SensorID) String() string {
	if name, ok := sensorNames[id]; ok {
		return name
	}
	return fmt.Sprintf("sensor(%d)", int(id))
}

// ParseSensorID maps a sensor name (as used in config and MQTT topics) back to its id.
func ParseSensorID(name string) (SensorID, error) {
	for id, n := range sensorNames {
		if n == name {
			return id, nil
		}
	}
	return 0, fmt.Errorf("unknown sensor %q", name)
}

// SensorType tags the value union of a Reading.
type SensorType int

const (
	TypeAccelerometer SensorType = 1
	TypeMagneticField SensorType = 2
	TypeOrientation   SensorType = 3
	TypeLight         SensorType = 5
	TypeTemperature   SensorType = 7
	TypeProximity     SensorType = 8
)

// Accuracy status reported with vector and orientation readings.
const (
	StatusUnreliable int8 = 0
	StatusLow        int8 = 1
	StatusMedium     int8 = 2
	StatusHigh       int8 = 3
)

// Vector is a 3-axis sample (m/s² for acceleration, µT for magnetic field).
type Vector struct {
	X      float32 `json:"x"`
	Y      float32 `json:"y"`
	Z      float32 `json:"z"`
	Status int8    `json:"status"`
}

// Angles is an orientation sample in degrees.
type Angles struct {
	Azimuth float32 `json:"azimuth"`
	Pitch   float32 `json:"pitch"`
	Roll    float32 `json:"roll"`
	Status  int8    `json:"status"`
}

// Reading is one committed, timestamped sensor sample.
// Which value field is meaningful depends on Type.
type Reading struct {
	Sensor    SensorID   `json:"sensor"`
	Type      SensorType `json:"type"`
	Timestamp int64      `json:"timestamp"` // ns

	Acceleration Vector  `json:"acceleration"`
	Magnetic     Vector  `json:"magnetic"`
	Orientation  Angles  `json:"orientation"`
	Scalar       float32 `json:"scalar"` // °C, lux or cm
}
