package orientation

import (
	"sync"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// Model is the concrete Consumer behind every view in this repo. Tilt
// updates run through a first-order low-pass filter with a
// configurable time constant; euler updates are applied directly,
// normalized into (-180, 180].
//
// Pose() is read from HTTP handlers while the session loop writes, so
// the state is mutex-guarded.
type Model struct {
	mu          sync.RWMutex
	pose        Pose
	smoothingMS float64
}

var _ Consumer = (*Model)(nil)

// NewModel returns a model with the given initial smoothing constant
// in milliseconds.
func NewModel(smoothingMS float64) *Model {
	return &Model{smoothingMS: smoothingMS}
}

func (m *Model) UpdateFromVector(v telemetry.Vec3, dt float64) {
	target := TiltFromAccel(v)

	m.mu.Lock()
	defer m.mu.Unlock()

	tau := m.smoothingMS / 1000.0
	if tau <= 0 || dt <= 0 {
		m.pose = target
		return
	}

	// First-order low pass. Deltas are normalized so the filter takes
	// the short way across the ±180° seam instead of spinning the
	// model the long way round.
	alpha := dt / (tau + dt)
	m.pose = Pose{
		Roll:  telemetry.NormalizeDegrees(m.pose.Roll + alpha*telemetry.NormalizeDegrees(target.Roll-m.pose.Roll)),
		Pitch: telemetry.NormalizeDegrees(m.pose.Pitch + alpha*telemetry.NormalizeDegrees(target.Pitch-m.pose.Pitch)),
		Yaw:   0,
	}
}

func (m *Model) UpdateFromEuler(e telemetry.Euler, dt float64) {
	n := telemetry.NormalizeEuler(e)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = Pose{Roll: n.Roll, Pitch: n.Pitch, Yaw: n.Yaw}
}

func (m *Model) ResetOrientation() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pose = Pose{}
}

func (m *Model) SetSmoothingTimeConstant(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ms < 0 {
		ms = 0
	}
	m.smoothingMS = ms
}

// Pose returns the latest pose.
func (m *Model) Pose() Pose {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pose
}
