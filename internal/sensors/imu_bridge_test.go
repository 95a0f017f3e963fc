package sensors

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/relabs-tech/sensorhub/internal/env"
	"github.com/relabs-tech/sensorhub/internal/imu"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

type fixedIMU struct {
	raw imu.IMURaw
	err error
}

func (f *fixedIMU) ReadRaw() (imu.IMURaw, error) { return f.raw, f.err }

type fixedEnv struct{ temp float64 }

func (f fixedEnv) ReadEnv() (env.Sample, error) {
	return env.Sample{Source: "test", Temperature: f.temp, Pressure: 101325}, nil
}

func newTestBridge(t *testing.T, r imu.Reader, e env.Reader) (*IMUBridge, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(at(1_000_000))
	b, err := NewIMUBridge(r, e, mock, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b, mock
}

func TestIMUBridgeFeedsCompass(t *testing.T) {
	level := &fixedIMU{raw: imu.IMURaw{Az: imu.AccelLSBPerG, Mx: 300, HasMag: true}}
	b, mock := newTestBridge(t, level, fixedEnv{temp: 21.6})

	require.NoError(t, b.SetEnabled(reading.Accelerometer, true))
	require.NoError(t, b.SetEnabled(reading.MagneticField, true))
	require.NoError(t, b.SetEnabled(reading.Orientation, true))
	require.NoError(t, b.SetEnabled(reading.Temperature, true))
	c := NewCompassSensor(b, b, zaptest.NewLogger(t).Sugar())

	require.NoError(t, b.sampleOnce(mock.Now()))

	buf := make([]reading.Reading, 8)
	n, err := c.ReadEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 4, n)

	for i := 0; i < n; i++ {
		assert.Equal(t, mock.Now().UnixNano(), buf[i].Timestamp)
	}

	accel := buf[0].Acceleration
	assert.InDelta(t, 0, accel.X, 1e-5)
	assert.InDelta(t, 0, accel.Y, 1e-5)
	assert.InDelta(t, gravityEarth, accel.Z, 1e-5)

	assert.InDelta(t, 30, buf[1].Magnetic.X, 1e-5)
	assert.InDelta(t, 0, buf[1].Magnetic.Y, 1e-5)

	o := buf[2].Orientation
	assert.InDelta(t, 0, o.Roll, 1e-5)
	assert.InDelta(t, 0, o.Pitch, 1e-5)
	assert.InDelta(t, 0, o.Azimuth, 1e-5)
	assert.Equal(t, reading.StatusHigh, o.Status)

	assert.Equal(t, float32(22), buf[3].Scalar)
}

func TestIMUBridgeSignsSurviveCompassConversion(t *testing.T) {
	// half a g on each axis
	tilted := &fixedIMU{raw: imu.IMURaw{Ax: 8192, Ay: -8192, Az: 8192}}
	b, mock := newTestBridge(t, tilted, nil)
	require.NoError(t, b.SetEnabled(reading.Accelerometer, true))
	require.NoError(t, b.SetEnabled(reading.Orientation, true))
	c := NewCompassSensor(b, b, zaptest.NewLogger(t).Sugar())

	require.NoError(t, b.sampleOnce(mock.Now()))
	buf := make([]reading.Reading, 4)
	n, err := c.ReadEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	accel := buf[0].Acceleration
	assert.InDelta(t, gravityEarth/2, accel.X, 1e-5)
	assert.InDelta(t, -gravityEarth/2, accel.Y, 1e-5)
	assert.InDelta(t, gravityEarth/2, accel.Z, 1e-5)

	// roll = atan2(-0.5, 0.5)
	assert.InDelta(t, -45, buf[1].Orientation.Roll, 1e-5)
}

func TestIMUBridgeOnlySamplesEnabledChannels(t *testing.T) {
	src := &fixedIMU{err: errors.New("not wired")}
	b, mock := newTestBridge(t, src, fixedEnv{temp: 19})

	require.NoError(t, b.sampleOnce(mock.Now()), "nothing enabled, nothing read")

	require.NoError(t, b.SetEnabled(reading.Temperature, true))
	require.NoError(t, b.sampleOnce(mock.Now()), "temperature does not need the IMU")

	require.NoError(t, b.SetEnabled(reading.Accelerometer, true))
	require.Error(t, b.sampleOnce(mock.Now()))

	on, err := b.Enabled(reading.Temperature)
	require.NoError(t, err)
	assert.True(t, on)
	_, err = b.Enabled(reading.Light)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestIMUBridgeTicker(t *testing.T) {
	b, mock := newTestBridge(t, NewMockIMU(clock.NewMock()), nil)
	require.NoError(t, b.SetEnabled(reading.Accelerometer, true))
	c := NewCompassSensor(b, b, zaptest.NewLogger(t).Sugar())

	require.ErrorIs(t, b.SetDelay(-time.Second), ErrInvalidArgument)
	require.NoError(t, b.SetDelay(50*time.Millisecond))

	buf := make([]reading.Reading, 4)
	require.Eventually(t, func() bool {
		mock.Add(50 * time.Millisecond)
		n, err := c.ReadEvents(buf)
		return err == nil && n > 0 && buf[0].Sensor == reading.Accelerometer
	}, time.Second, 10*time.Millisecond)
}

func TestIMUBridgeCloseTwice(t *testing.T) {
	b, _ := newTestBridge(t, &fixedIMU{}, nil)
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestMockIMUStartsLevel(t *testing.T) {
	raw, err := NewMockIMU(clock.NewMock()).ReadRaw()
	require.NoError(t, err)
	assert.True(t, raw.HasMag)
	assert.Equal(t, int16(300), raw.Mx)
	// pitch starts at 15 degrees
	assert.InDelta(t, -4240, raw.Ax, 2)
}
