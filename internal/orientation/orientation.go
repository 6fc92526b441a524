package orientation

import (
	"math"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// Pose is the canonical representation of orientation for the viewer.
type Pose struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Consumer is the 3D view's entry point set. The dispatcher feeds one
// of these per sample; which call it makes depends on the active mode.
type Consumer interface {
	// UpdateFromVector derives orientation from a gravity vector
	// (accelerometer tilt).
	UpdateFromVector(v telemetry.Vec3, dt float64)
	// UpdateFromEuler applies an already-computed roll/pitch/yaw
	// triple in degrees.
	UpdateFromEuler(e telemetry.Euler, dt float64)
	// ResetOrientation snaps the view back to identity.
	ResetOrientation()
	// SetSmoothingTimeConstant sets the tilt smoothing constant in
	// milliseconds. Zero disables smoothing.
	SetSmoothingTimeConstant(ms float64)
}

// TiltFromAccel computes roll and pitch from a gravity vector using
// the plain tilt formulas:
//
//	roll  = atan2(ay, az)
//	pitch = atan2(-ax, sqrt(ay² + az²))
//
// Yaw is unobservable from gravity alone and stays 0.
func TiltFromAccel(v telemetry.Vec3) Pose {
	rollRad := math.Atan2(v.Y, v.Z)
	pitchRad := math.Atan2(-v.X, math.Sqrt(v.Y*v.Y+v.Z*v.Z))

	return Pose{
		Roll:  rollRad * 180.0 / math.Pi,
		Pitch: pitchRad * 180.0 / math.Pi,
		Yaw:   0,
	}
}
