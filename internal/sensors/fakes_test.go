package sensors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sensorhub/internal/input"
	"github.com/relabs-tech/sensorhub/internal/reading"
)

// fakeControl records every control call.
type fakeControl struct {
	enabled    map[reading.SensorID]bool
	setCalls   int
	delays     []time.Duration
	enableErr  error
	delayErr   error
	queryErr   error
	closeCalls int
}

func newFakeControl(on ...reading.SensorID) *fakeControl {
	c := &fakeControl{enabled: map[reading.SensorID]bool{}}
	for _, id := range on {
		c.enabled[id] = true
	}
	return c
}

func (c *fakeControl) Enabled(id reading.SensorID) (bool, error) {
	if c.queryErr != nil {
		return false, c.queryErr
	}
	return c.enabled[id], nil
}

func (c *fakeControl) SetEnabled(id reading.SensorID, on bool) error {
	c.setCalls++
	if c.enableErr != nil {
		return c.enableErr
	}
	c.enabled[id] = on
	return nil
}

func (c *fakeControl) SetDelay(d time.Duration) error {
	c.delays = append(c.delays, d)
	return c.delayErr
}

func (c *fakeControl) Close() error {
	c.closeCalls++
	return nil
}

func newTestPipe(t *testing.T) *input.Pipe {
	t.Helper()
	p, err := input.NewPipe()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

// at returns a timestamp with microsecond resolution, which survives the
// kernel's timeval encoding.
func at(us int64) time.Time {
	return time.Unix(0, us*int64(time.Microsecond))
}
