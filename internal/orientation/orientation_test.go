package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePoseFromAccel(t *testing.T) {
	// flat, gravity on +Z
	p := ComputePoseFromAccel(0, 0, 1)
	assert.InDelta(t, 0, p.Roll, 1e-9)
	assert.InDelta(t, 0, p.Pitch, 1e-9)
	assert.Zero(t, p.Yaw)

	// rolled onto the +Y side
	p = ComputePoseFromAccel(0, 1, 0)
	assert.InDelta(t, 90, p.Roll, 1e-9)

	// nose down
	p = ComputePoseFromAccel(-1, 0, 0)
	assert.InDelta(t, 90, p.Pitch, 1e-9)
}

func TestComputePoseFromAccelMagHeading(t *testing.T) {
	// level, field pointing along +X: heading 0
	p := ComputePoseFromAccelMag(0, 0, 1, 30, 0, 0)
	assert.InDelta(t, 0, p.Yaw, 1e-9)

	// level, field along -Y: heading 90
	p = ComputePoseFromAccelMag(0, 0, 1, 0, -30, 0)
	assert.InDelta(t, 90, p.Yaw, 1e-9)

	// no field leaves yaw at 0
	p = ComputePoseFromAccelMag(0, 0, 1, 0, 0, 0)
	assert.Zero(t, p.Yaw)
}
