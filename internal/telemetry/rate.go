package telemetry

import "math"

// rateWindowSec is the trailing device-time window the throughput
// figure is computed over.
const rateWindowSec = 1.0

// RateMeter reports samples/sec over a sliding window keyed on device
// time, not wall time. Because the key is the device clock, the window
// must be cleared on every connect/disconnect transition; a window
// full of pre-reset timestamps would otherwise never drain after a
// device clock reset.
type RateMeter struct {
	times []float64
}

// Observe records a sample at device time t and returns the number of
// samples inside the trailing window. A non-finite t is ignored: once
// appended it could never satisfy the eviction comparison and would
// wedge the window.
func (r *RateMeter) Observe(t float64) int {
	if math.IsNaN(t) || math.IsInf(t, 0) {
		return len(r.times)
	}
	r.times = append(r.times, t)
	for len(r.times) > 0 && r.times[0] < t-rateWindowSec {
		r.times = r.times[1:]
	}
	return len(r.times)
}

// Reset drops the whole window.
func (r *RateMeter) Reset() {
	r.times = nil
}
