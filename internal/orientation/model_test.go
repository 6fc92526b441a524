package orientation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

func TestTiltFromAccel(t *testing.T) {
	// Flat on the table: gravity straight down the Z axis.
	p := TiltFromAccel(telemetry.Vec3{X: 0, Y: 0, Z: 1})
	assert.InDelta(t, 0, p.Roll, 1e-9)
	assert.InDelta(t, 0, p.Pitch, 1e-9)

	// Rolled 90° to the right.
	p = TiltFromAccel(telemetry.Vec3{X: 0, Y: 1, Z: 0})
	assert.InDelta(t, 90, p.Roll, 1e-9)
	assert.InDelta(t, 0, p.Pitch, 1e-9)

	// Nose down 90°.
	p = TiltFromAccel(telemetry.Vec3{X: -1, Y: 0, Z: 0})
	assert.InDelta(t, 90, p.Pitch, 1e-9)
}

func TestModelUnsmoothedTracksTarget(t *testing.T) {
	m := NewModel(0)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 1, Z: 0}, 0.01)
	assert.InDelta(t, 90, m.Pose().Roll, 1e-9)
}

func TestModelSmoothingLags(t *testing.T) {
	m := NewModel(200)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 0, Z: 1}, 0.01)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 1, Z: 0}, 0.01)

	roll := m.Pose().Roll
	assert.Greater(t, roll, 0.0, "filter must move towards the target")
	assert.Less(t, roll, 90.0, "filter must not jump straight to the target")

	// Converges with repeated updates.
	for i := 0; i < 500; i++ {
		m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 1, Z: 0}, 0.01)
	}
	assert.InDelta(t, 90, m.Pose().Roll, 0.5)
}

func TestModelSmoothingCrossesSeam(t *testing.T) {
	// Park the pose just below +180° roll with smoothing off, then
	// target just above -180°: the short way is across the seam, not
	// back through 0.
	m := NewModel(0)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 0.01, Z: -1}, 0.01)
	start := m.Pose().Roll
	assert.Greater(t, start, 170.0)

	m.SetSmoothingTimeConstant(100)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: -0.01, Z: -1}, 0.01)
	after := m.Pose().Roll
	// Still near the seam, not dragged towards zero.
	assert.Greater(t, after, 170.0)
}

func TestModelEulerIsNormalizedPassThrough(t *testing.T) {
	m := NewModel(500)
	m.UpdateFromEuler(telemetry.Euler{Roll: 190, Pitch: -190, Yaw: 540}, 0.01)

	p := m.Pose()
	assert.InDelta(t, -170, p.Roll, 1e-9)
	assert.InDelta(t, 170, p.Pitch, 1e-9)
	assert.InDelta(t, 180, p.Yaw, 1e-9)
}

func TestModelReset(t *testing.T) {
	m := NewModel(0)
	m.UpdateFromEuler(telemetry.Euler{Roll: 45, Pitch: 10, Yaw: 5}, 0.01)
	m.ResetOrientation()
	assert.Equal(t, Pose{}, m.Pose())
}

func TestModelNegativeSmoothingClamped(t *testing.T) {
	m := NewModel(0)
	m.SetSmoothingTimeConstant(-50)
	m.UpdateFromVector(telemetry.Vec3{X: 0, Y: 1, Z: 0}, 0.01)
	assert.InDelta(t, 90, m.Pose().Roll, 1e-9)
}
