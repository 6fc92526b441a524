package orientation

import (
	"fmt"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// Mode selects which orientation representation feeds the consumer.
type Mode int

const (
	// ModeAccelTilt derives orientation from the gravity vector with
	// smoothing. This is the default.
	ModeAccelTilt Mode = iota
	// ModeGyroIntegrated feeds the device's gyro-integrated euler
	// angles, unsmoothed.
	ModeGyroIntegrated
	// ModeFusion feeds the device's AHRS output (no magnetometer).
	ModeFusion
	// ModeFusionMag feeds the magnetometer-aided AHRS output.
	ModeFusionMag
)

func (m Mode) String() string {
	switch m {
	case ModeAccelTilt:
		return "accel_tilt"
	case ModeGyroIntegrated:
		return "gyro_integrated"
	case ModeFusion:
		return "fusion"
	case ModeFusionMag:
		return "fusion_mag"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode maps the wire/UI name of a mode back to its value.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "accel_tilt":
		return ModeAccelTilt, nil
	case "gyro_integrated":
		return ModeGyroIntegrated, nil
	case "fusion":
		return ModeFusion, nil
	case "fusion_mag":
		return ModeFusionMag, nil
	}
	return 0, fmt.Errorf("unknown orientation mode %q", s)
}

// Dispatcher is the 4-state machine routing samples to the consumer.
// Transitions are unconditional; entering a mode has side effects
// (smoothing control, clock anchor) and per-sample behavior differs
// per mode. Not safe for concurrent use; the session loop owns it.
type Dispatcher struct {
	mode     Mode
	consumer Consumer
	clock    *telemetry.ClockTracker

	// OnSmoothingControl, when set, is told whether the smoothing
	// time-constant control is meaningful in the current mode. Only
	// accel tilt is smoothed.
	OnSmoothingControl func(enabled bool)
}

// NewDispatcher starts in accel-tilt mode.
func NewDispatcher(consumer Consumer, clock *telemetry.ClockTracker) *Dispatcher {
	return &Dispatcher{consumer: consumer, clock: clock}
}

// Mode returns the active mode.
func (d *Dispatcher) Mode() Mode { return d.mode }

// SmoothingEnabled reports whether the active mode uses smoothing.
func (d *Dispatcher) SmoothingEnabled() bool { return d.mode == ModeAccelTilt }

// SetMode switches modes and runs the entry side effects. Entering
// gyro-integration invalidates the clock anchor so the first
// integrated sample starts from dt=0 instead of swallowing the gap
// since the previous mode's last sample.
func (d *Dispatcher) SetMode(m Mode) {
	d.mode = m
	if m == ModeGyroIntegrated {
		d.clock.Reset()
	}
	if d.OnSmoothingControl != nil {
		d.OnSmoothingControl(d.SmoothingEnabled())
	}
}

// Dispatch forwards one sample to the consumer according to the
// active mode. A sample lacking the mode's optional triple is skipped
// outright: substituting another representation would silently corrupt
// the view, which is worse than a stalled one.
func (d *Dispatcher) Dispatch(s telemetry.Sample, dt float64) {
	switch d.mode {
	case ModeAccelTilt:
		d.consumer.UpdateFromVector(s.Accel, dt)
	case ModeGyroIntegrated:
		if s.GyroIntegrated != nil {
			d.consumer.UpdateFromEuler(*s.GyroIntegrated, dt)
		}
	case ModeFusion:
		if s.Fusion != nil {
			d.consumer.UpdateFromEuler(*s.Fusion, dt)
		}
	case ModeFusionMag:
		if s.FusionMag != nil {
			d.consumer.UpdateFromEuler(*s.FusionMag, dt)
		}
	}
}
