package telemetry

import "math"

// ClockTracker turns consecutive device-reported timestamps into a
// clamped delta. The device clock restarts from zero on reboot and can
// arrive non-finite, so a single anchor plus a max(0, ...) clamp is
// all the state: a backward jump degrades to dt=0 for exactly one
// sample, then normal differencing resumes.
type ClockTracker struct {
	anchor    float64
	hasAnchor bool
}

// Observe reports the delta in seconds between t and the previous
// observation and advances the anchor. A non-finite t reports zero and
// leaves the anchor alone.
func (c *ClockTracker) Observe(t float64) float64 {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return 0
	}
	if !c.hasAnchor {
		c.anchor = t
		c.hasAnchor = true
		return 0
	}
	dt := t - c.anchor
	c.anchor = t
	if dt < 0 {
		return 0
	}
	return dt
}

// Reset invalidates the anchor. Callers invoke it on transport
// disconnect, on reconnect, on an explicit orientation reset, and when
// the dispatcher enters gyro-integration mode.
func (c *ClockTracker) Reset() {
	c.anchor = 0
	c.hasAnchor = false
}
