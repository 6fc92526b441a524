package telemetry

import "math"

// NormalizeDegrees maps an angle into (-180, 180]. 180 stays 180; it
// never becomes -180. Every euler value derived from gyro integration
// or fusion goes through here before display.
func NormalizeDegrees(d float64) float64 {
	r := math.Mod(math.Mod(d+180, 360)+360, 360) - 180
	if r == -180 {
		return 180
	}
	return r
}

// NormalizeEuler normalizes all three components of a triple.
func NormalizeEuler(e Euler) Euler {
	return Euler{
		Roll:  NormalizeDegrees(e.Roll),
		Pitch: NormalizeDegrees(e.Pitch),
		Yaw:   NormalizeDegrees(e.Yaw),
	}
}
