package telemetry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateMeterWindow(t *testing.T) {
	var r RateMeter
	var n int
	for _, ts := range []float64{0.0, 0.2, 0.4, 0.6, 0.8, 1.0, 1.2} {
		n = r.Observe(ts)
	}
	// The 0.0 entry is evicted at t=1.2 (0.0 < 1.2-1.0); the other six
	// remain.
	assert.Equal(t, 6, n)
}

func TestRateMeterSingleSample(t *testing.T) {
	var r RateMeter
	assert.Equal(t, 1, r.Observe(5.0))
}

func TestRateMeterIgnoresNonFinite(t *testing.T) {
	var r RateMeter
	r.Observe(1.0)
	assert.Equal(t, 1, r.Observe(math.NaN()))
	assert.Equal(t, 1, r.Observe(math.Inf(-1)))
	assert.Equal(t, 2, r.Observe(1.5))
}

func TestRateMeterResetAfterClockReset(t *testing.T) {
	var r RateMeter
	for ts := 100.0; ts < 101.0; ts += 0.1 {
		r.Observe(ts)
	}
	r.Reset()

	// After a device clock reset the window restarts; old large
	// timestamps must not linger and pin the rate at a stale value.
	assert.Equal(t, 1, r.Observe(0.0))
	assert.Equal(t, 2, r.Observe(0.5))
}
