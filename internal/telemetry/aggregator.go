package telemetry

// Aggregator caches the latest value per field group and coalesces
// asynchronously-arriving updates into atomic samples. Updates mark
// the aggregator pending; the owning loop calls Flush once per
// scheduling turn, so a burst of sub-field updates inside one turn
// yields at most one emission.
//
// Not safe for concurrent use: the session loop is the only caller.
type Aggregator struct {
	accel Vec3
	gyro  Vec3
	mag   Vec3

	gyroIntegrated Euler
	fusion         Euler
	fusionMag      Euler

	temperature float64
	deviceTime  float64

	haveAccel          bool
	haveGyro           bool
	haveMag            bool
	haveGyroIntegrated bool
	haveFusion         bool
	haveFusionMag      bool
	haveTemperature    bool
	haveDeviceTime     bool

	pending bool
}

var _ Sink = (*Aggregator)(nil)

func (a *Aggregator) SetAccel(v Vec3) { a.accel = v; a.haveAccel = true; a.pending = true }
func (a *Aggregator) SetGyro(v Vec3)  { a.gyro = v; a.haveGyro = true; a.pending = true }
func (a *Aggregator) SetMag(v Vec3)   { a.mag = v; a.haveMag = true; a.pending = true }

func (a *Aggregator) SetGyroIntegrated(e Euler) {
	a.gyroIntegrated = e
	a.haveGyroIntegrated = true
	a.pending = true
}

func (a *Aggregator) SetFusion(e Euler) {
	a.fusion = e
	a.haveFusion = true
	a.pending = true
}

func (a *Aggregator) SetFusionMag(e Euler) {
	a.fusionMag = e
	a.haveFusionMag = true
	a.pending = true
}

func (a *Aggregator) SetTemperature(t float64) {
	a.temperature = t
	a.haveTemperature = true
	a.pending = true
}

func (a *Aggregator) SetDeviceTime(t float64) {
	a.deviceTime = t
	a.haveDeviceTime = true
	a.pending = true
}

// ready reports whether every mandatory group has been seen since the
// last reset. The orientation triples are optional: older firmware
// never sends them.
func (a *Aggregator) ready() bool {
	return a.haveAccel && a.haveGyro && a.haveMag && a.haveTemperature
}

// Flush builds a sample from the current slot values and clears the
// pending flag. It returns false when nothing changed this turn or the
// mandatory groups are still incomplete.
func (a *Aggregator) Flush() (Sample, bool) {
	if !a.pending {
		return Sample{}, false
	}
	a.pending = false
	if !a.ready() {
		return Sample{}, false
	}

	s := Sample{
		Accel:       a.accel,
		Gyro:        a.gyro,
		Mag:         a.mag,
		Temperature: a.temperature,
		DeviceTime:  a.deviceTime,
	}
	if a.haveGyroIntegrated {
		e := a.gyroIntegrated
		s.GyroIntegrated = &e
	}
	if a.haveFusion {
		e := a.fusion
		s.Fusion = &e
	}
	if a.haveFusionMag {
		e := a.fusionMag
		s.FusionMag = &e
	}
	return s, true
}

// Reset clears every slot and the pending flag. It runs on transport
// disconnect and again on reconnect, before any update, so no stale
// value survives a session boundary.
func (a *Aggregator) Reset() {
	*a = Aggregator{}
}
