package telemetry

// Vec3 is a 3-component sensor reading in the sensor's native units
// (g for accel, °/s for gyro, µT for mag).
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Euler is a roll/pitch/yaw triple in degrees.
type Euler struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// Sample is one atomic snapshot of everything the device reports.
// Accel, gyro, mag and temperature are always set; the orientation
// triples are nil when the firmware never sent them. Consumers must
// skip a nil triple rather than substitute a default.
type Sample struct {
	Accel Vec3 `json:"accel"`
	Gyro  Vec3 `json:"gyro"`
	Mag   Vec3 `json:"mag"`

	GyroIntegrated *Euler `json:"gyro_integrated,omitempty"`
	Fusion         *Euler `json:"fusion,omitempty"`
	FusionMag      *Euler `json:"fusion_mag,omitempty"`

	Temperature float64 `json:"temp_c"`

	// DeviceTime is seconds since the device booted. It may be
	// non-finite, and it restarts from zero after a device reboot.
	DeviceTime float64 `json:"device_time_sec"`
}

// Sink receives per-field-group updates from a transport. Both
// transports normalize onto this interface; it is the unification
// point, not the wire format.
type Sink interface {
	SetAccel(Vec3)
	SetGyro(Vec3)
	SetMag(Vec3)
	SetGyroIntegrated(Euler)
	SetFusion(Euler)
	SetFusionMag(Euler)
	SetTemperature(float64)
	SetDeviceTime(float64)
}
