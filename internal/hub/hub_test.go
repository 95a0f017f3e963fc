package hub

import (
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sys/unix"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
	"github.com/relabs-tech/sensorhub/internal/sensors"
)

// fakeSource hands out queued readings.
type fakeSource struct {
	name    string
	fd      int
	ids     []reading.SensorID
	queue   []reading.Reading
	readErr error

	enableErr error
	delayErr  error
	enables   []bool
	delays    []time.Duration
	reads     int
	closed    bool
}

func (s *fakeSource) Name() string                { return s.name }
func (s *fakeSource) Fd() int                     { return s.fd }
func (s *fakeSource) Sensors() []reading.SensorID { return s.ids }

func (s *fakeSource) ReadEvents(buf []reading.Reading) (int, error) {
	s.reads++
	if s.readErr != nil {
		return 0, s.readErr
	}
	n := copy(buf, s.queue)
	s.queue = s.queue[n:]
	return n, nil
}

func (s *fakeSource) Enable(_ reading.SensorID, on bool) error {
	s.enables = append(s.enables, on)
	return s.enableErr
}

func (s *fakeSource) SetDelay(d time.Duration) error {
	s.delays = append(s.delays, d)
	return s.delayErr
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

func readings(id reading.SensorID, count int) []reading.Reading {
	out := make([]reading.Reading, count)
	for i := range out {
		out[i] = reading.Reading{Sensor: id, Timestamp: int64(i + 1)}
	}
	return out
}

// scriptWaiter replays one step per Wait call.
type scriptWaiter struct {
	steps  []waitStep
	blocks []bool
}

type waitStep struct {
	ready []int
	err   error
}

func (w *scriptWaiter) Wait(_ []int, ready []bool, block bool) (int, error) {
	w.blocks = append(w.blocks, block)
	if len(w.steps) == 0 {
		return 0, nil
	}
	step := w.steps[0]
	w.steps = w.steps[1:]
	if step.err != nil {
		return 0, step.err
	}
	for _, i := range step.ready {
		ready[i] = true
	}
	return len(step.ready), nil
}

func newFakeHub(t *testing.T, w Waiter, sources ...sensors.Source) *Hub {
	t.Helper()
	h, err := newHub(w, zaptest.NewLogger(t).Sugar(), sources...)
	require.NoError(t, err)
	return h
}

func TestPollEventsKeepsLeftovers(t *testing.T) {
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, queue: readings(reading.Light, 5)}
	w := &scriptWaiter{steps: []waitStep{{ready: []int{0}}}}
	h := newFakeHub(t, w, light)

	buf := make([]reading.Reading, 3)
	n, err := h.PollEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.Equal(t, int64(1), buf[0].Timestamp)
	assert.Equal(t, []bool{true}, w.blocks, "nothing collected yet, so the wait blocks")

	// the source filled the buffer, so it stays flagged without a new wake-up
	n, err = h.PollEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, int64(4), buf[0].Timestamp)
	assert.Equal(t, int64(5), buf[1].Timestamp)
	assert.Equal(t, []bool{true, false}, w.blocks)
}

func TestPollEventsSourceOrder(t *testing.T) {
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, queue: readings(reading.Light, 1)}
	compass := &fakeSource{name: "compass", fd: 4, ids: []reading.SensorID{reading.Accelerometer, reading.MagneticField},
		queue: []reading.Reading{{Sensor: reading.Accelerometer}, {Sensor: reading.MagneticField}}}
	w := &scriptWaiter{steps: []waitStep{{ready: []int{1, 0}}}}
	h := newFakeHub(t, w, light, compass)

	buf := make([]reading.Reading, 8)
	n, err := h.PollEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	assert.Equal(t, reading.Light, buf[0].Sensor)
	assert.Equal(t, reading.Accelerometer, buf[1].Sensor)
	assert.Equal(t, reading.MagneticField, buf[2].Sensor)
}

func TestPollEventsWaitErrorDiscardsResults(t *testing.T) {
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, queue: readings(reading.Light, 1)}
	w := &scriptWaiter{steps: []waitStep{{err: unix.EBADF}}}
	h := newFakeHub(t, w, light)
	require.NoError(t, h.Activate(reading.Light, true))

	n, err := h.PollEvents(make([]reading.Reading, 4))
	assert.Equal(t, 0, n)
	var ioErr *sensors.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, unix.EBADF, ioErr.Code())
	assert.Equal(t, []bool{false}, w.blocks)
}

func TestPollEventsReadErrorAborts(t *testing.T) {
	boom := errors.New("boom")
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, readErr: boom}
	h := newFakeHub(t, &scriptWaiter{steps: []waitStep{{ready: []int{0}}}}, light)

	n, err := h.PollEvents(make([]reading.Reading, 2))
	assert.Equal(t, 0, n)
	require.ErrorIs(t, err, boom)
}

func TestActivatePrimesSource(t *testing.T) {
	prox := &fakeSource{name: "proximity", fd: 3, ids: []reading.SensorID{reading.Proximity}, queue: readings(reading.Proximity, 1)}
	w := &scriptWaiter{}
	h := newFakeHub(t, w, prox)

	require.NoError(t, h.Activate(reading.Proximity, true))
	assert.Equal(t, []bool{true}, prox.enables)

	n, err := h.PollEvents(make([]reading.Reading, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, w.blocks, "a full buffer needs no wait")
}

func TestActivateFailureDoesNotPrime(t *testing.T) {
	prox := &fakeSource{name: "proximity", fd: 3, ids: []reading.SensorID{reading.Proximity}, enableErr: sensors.ErrInvalidArgument}
	h := newFakeHub(t, &scriptWaiter{}, prox)

	require.ErrorIs(t, h.Activate(reading.Proximity, true), sensors.ErrInvalidArgument)
	assert.False(t, h.ready[0])
}

func TestPollEventsBlockingWaitRetriesOnNothing(t *testing.T) {
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, queue: readings(reading.Light, 1)}
	w := &scriptWaiter{steps: []waitStep{{}, {ready: []int{0}}}}
	h := newFakeHub(t, w, light)

	n, err := h.PollEvents(make([]reading.Reading, 2))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []bool{true, true, false}, w.blocks)
}

func TestRouting(t *testing.T) {
	light := &fakeSource{name: "light", fd: 3, ids: []reading.SensorID{reading.Light}, delayErr: sensors.ErrUnsupported}
	compass := &fakeSource{name: "compass", fd: 4, ids: []reading.SensorID{reading.Accelerometer, reading.Temperature}}
	h := newFakeHub(t, &scriptWaiter{}, light, compass)

	assert.Equal(t, []reading.SensorID{reading.Light, reading.Accelerometer, reading.Temperature}, h.Sensors())

	require.ErrorIs(t, h.Activate(reading.Orientation, true), sensors.ErrInvalidArgument)
	require.ErrorIs(t, h.SetInterval(reading.SensorID(42), time.Second), sensors.ErrInvalidArgument)

	require.ErrorIs(t, h.SetInterval(reading.Temperature, -time.Second), sensors.ErrInvalidArgument)
	assert.Empty(t, compass.delays)

	require.NoError(t, h.SetInterval(reading.Temperature, 200*time.Millisecond))
	assert.Equal(t, []time.Duration{200 * time.Millisecond}, compass.delays)

	require.ErrorIs(t, h.SetInterval(reading.Light, time.Second), sensors.ErrUnsupported)

	_, err := h.PollEvents(nil)
	require.ErrorIs(t, err, sensors.ErrInvalidArgument)

	require.NoError(t, h.Close())
	assert.True(t, light.closed)
	assert.True(t, compass.closed)
}

func TestDuplicateRoute(t *testing.T) {
	a := &fakeSource{name: "a", ids: []reading.SensorID{reading.Light}}
	b := &fakeSource{name: "b", ids: []reading.SensorID{reading.Light}}
	_, err := newHub(&scriptWaiter{}, zap.NewNop().Sugar(), a, b)
	require.Error(t, err)
}

func TestPollWaiter(t *testing.T) {
	idle, err := input.NewPipe()
	require.NoError(t, err)
	defer idle.Close()
	busy, err := input.NewPipe()
	require.NoError(t, err)
	defer busy.Close()

	w := &PollWaiter{}
	ready := make([]bool, 2)
	fds := []int{idle.Fd(), busy.Fd()}

	found, err := w.Wait(fds, ready, false)
	require.NoError(t, err)
	assert.Equal(t, 0, found)

	require.NoError(t, busy.Write(input.SyncAt(time.Unix(1, 0))))
	found, err = w.Wait(fds, ready, true)
	require.NoError(t, err)
	assert.Equal(t, 1, found)
	assert.Equal(t, []bool{false, true}, ready)
}

// TestHubWithDevices drives real accumulators over pipes.
func TestHubWithDevices(t *testing.T) {
	logger := zaptest.NewLogger(t).Sugar()

	lightPipe, err := input.NewPipe()
	require.NoError(t, err)
	compassPipe, err := input.NewPipe()
	require.NoError(t, err)

	lightPipe.SetAbs(input.AbsLight, 1)
	mock := clock.NewMock()
	mock.Set(time.Unix(1_700_000_000, 0))
	light := sensors.NewLightSensor(lightPipe, &flagControl{}, logger, mock)
	compass := sensors.NewCompassSensor(compassPipe, &flagControl{}, logger)

	h, err := New(logger, light, compass)
	require.NoError(t, err)
	defer h.Close()

	require.NoError(t, h.Activate(reading.Light, true))
	require.NoError(t, h.Activate(reading.Accelerometer, true))
	require.NoError(t, h.Activate(reading.MagneticField, true))

	require.NoError(t, compassPipe.Write(
		input.Abs(input.AbsAccelX, 100),
		input.Abs(input.AbsAccelY, -50),
		input.Abs(input.AbsMagZ, 30),
		input.SyncAt(time.Unix(0, 1000*int64(time.Microsecond))),
	))

	buf := make([]reading.Reading, 2)
	n, err := h.PollEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	assert.Equal(t, reading.Light, buf[0].Sensor, "initial light value comes first")
	assert.Equal(t, float32(160), buf[0].Scalar)
	assert.Equal(t, mock.Now().UnixNano(), buf[0].Timestamp)
	assert.Equal(t, reading.Accelerometer, buf[1].Sensor)

	n, err = h.PollEvents(buf)
	require.NoError(t, err)
	require.Equal(t, 1, n, "the kept SYNC commits the magnetometer")
	assert.Equal(t, reading.MagneticField, buf[0].Sensor)
	assert.Equal(t, int64(1000*time.Microsecond), buf[0].Timestamp)
}

// flagControl is an always-succeeding controller.
type flagControl struct{ on map[reading.SensorID]bool }

func (c *flagControl) Enabled(id reading.SensorID) (bool, error) { return c.on[id], nil }
func (c *flagControl) SetEnabled(id reading.SensorID, on bool) error {
	if c.on == nil {
		c.on = map[reading.SensorID]bool{}
	}
	c.on[id] = on
	return nil
}
func (c *flagControl) SetDelay(time.Duration) error { return nil }
func (c *flagControl) Close() error                 { return nil }
