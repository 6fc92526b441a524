package telemetry

import (
	"encoding/binary"
	"errors"
	"math"
)

// PacketSize is the only accepted telemetry packet length: 20
// little-endian IEEE-754 float32s.
const PacketSize = 80

// ErrPacketLength reports a buffer whose length is not PacketSize.
// Such packets are dropped by the caller; they never abort the stream.
var ErrPacketLength = errors.New("telemetry packet is not 80 bytes")

// Packet is one decoded binary telemetry packet. Unlike Sample, every
// field is present: the binary layout always carries all 20 scalars.
type Packet struct {
	Accel          Vec3
	Gyro           Vec3
	Mag            Vec3
	GyroIntegrated Euler
	Fusion         Euler
	FusionMag      Euler
	Temperature    float64
	DeviceTime     float64
}

// DecodePacket decodes a fixed-layout telemetry packet. Only the
// buffer shape is validated; non-finite floats pass through untouched.
func DecodePacket(buf []byte) (Packet, error) {
	if len(buf) != PacketSize {
		return Packet{}, ErrPacketLength
	}

	var f [20]float64
	for i := range f {
		bits := binary.LittleEndian.Uint32(buf[i*4:])
		f[i] = float64(math.Float32frombits(bits))
	}

	return Packet{
		Accel:          Vec3{X: f[0], Y: f[1], Z: f[2]},
		Gyro:           Vec3{X: f[3], Y: f[4], Z: f[5]},
		Mag:            Vec3{X: f[6], Y: f[7], Z: f[8]},
		GyroIntegrated: Euler{Roll: f[9], Pitch: f[10], Yaw: f[11]},
		Fusion:         Euler{Roll: f[12], Pitch: f[13], Yaw: f[14]},
		FusionMag:      Euler{Roll: f[15], Pitch: f[16], Yaw: f[17]},
		Temperature:    f[18],
		DeviceTime:     f[19],
	}, nil
}

// Apply pushes every field group of the packet into a sink.
func (p Packet) Apply(s Sink) {
	s.SetAccel(p.Accel)
	s.SetGyro(p.Gyro)
	s.SetMag(p.Mag)
	s.SetGyroIntegrated(p.GyroIntegrated)
	s.SetFusion(p.Fusion)
	s.SetFusionMag(p.FusionMag)
	s.SetTemperature(p.Temperature)
	s.SetDeviceTime(p.DeviceTime)
}

// EncodePacket is the inverse of DecodePacket. The device simulator
// and the tests use it to produce wire-exact packets.
func EncodePacket(p Packet) []byte {
	f := [20]float64{
		p.Accel.X, p.Accel.Y, p.Accel.Z,
		p.Gyro.X, p.Gyro.Y, p.Gyro.Z,
		p.Mag.X, p.Mag.Y, p.Mag.Z,
		p.GyroIntegrated.Roll, p.GyroIntegrated.Pitch, p.GyroIntegrated.Yaw,
		p.Fusion.Roll, p.Fusion.Pitch, p.Fusion.Yaw,
		p.FusionMag.Roll, p.FusionMag.Pitch, p.FusionMag.Yaw,
		p.Temperature,
		p.DeviceTime,
	}

	buf := make([]byte, PacketSize)
	for i, v := range f {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
	}
	return buf
}
