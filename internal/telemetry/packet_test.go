package telemetry

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodePacketRejectsWrongLength(t *testing.T) {
	for _, n := range []int{0, 1, 79, 81, 160} {
		_, err := DecodePacket(make([]byte, n))
		assert.ErrorIs(t, err, ErrPacketLength, "length %d must be rejected", n)
	}
}

func TestDecodePacketFieldMapping(t *testing.T) {
	// Known bit patterns covering zero, negative, large magnitude and
	// NaN; each scalar carries its index so a positional mix-up shows
	// up immediately.
	vals := [20]float32{
		0, 1, 2,
		-3, 4.5, -5.25,
		6, -7, 8,
		90, -91, 92,
		1e30, -1e30, 14,
		15, 16, 17,
		36.5,
		123.25,
	}
	buf := make([]byte, PacketSize)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}

	p, err := DecodePacket(buf)
	require.NoError(t, err)

	assert.Equal(t, Vec3{X: 0, Y: 1, Z: 2}, p.Accel)
	assert.Equal(t, Vec3{X: -3, Y: 4.5, Z: -5.25}, p.Gyro)
	assert.Equal(t, Vec3{X: 6, Y: -7, Z: 8}, p.Mag)
	assert.Equal(t, Euler{Roll: 90, Pitch: -91, Yaw: 92}, p.GyroIntegrated)
	assert.Equal(t, float64(float32(1e30)), p.Fusion.Roll)
	assert.Equal(t, float64(float32(-1e30)), p.Fusion.Pitch)
	assert.Equal(t, Euler{Roll: 15, Pitch: 16, Yaw: 17}, p.FusionMag)
	assert.Equal(t, 36.5, p.Temperature)
	assert.Equal(t, 123.25, p.DeviceTime)
}

func TestDecodePacketPassesNonFiniteThrough(t *testing.T) {
	buf := make([]byte, PacketSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(math.NaN())))
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(float32(math.Inf(1))))

	p, err := DecodePacket(buf)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(p.Accel.X))
	assert.True(t, math.IsInf(p.DeviceTime, 1))
}

func TestEncodePacketRoundTrip(t *testing.T) {
	in := Packet{
		Accel:          Vec3{X: 0.5, Y: -0.25, Z: 1},
		Gyro:           Vec3{X: 10, Y: 20, Z: 30},
		Mag:            Vec3{X: -40, Y: 50, Z: -60},
		GyroIntegrated: Euler{Roll: 1, Pitch: 2, Yaw: 3},
		Fusion:         Euler{Roll: 4, Pitch: 5, Yaw: 6},
		FusionMag:      Euler{Roll: 7, Pitch: 8, Yaw: 9},
		Temperature:    25.5,
		DeviceTime:     42.75,
	}
	out, err := DecodePacket(EncodePacket(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

type recordingSink struct {
	accel, gyro, mag        []Vec3
	gyroInt, fusion, fusMag []Euler
	temperature, deviceTime []float64
}

func (r *recordingSink) SetAccel(v Vec3) { r.accel = append(r.accel, v) }
func (r *recordingSink) SetGyro(v Vec3)  { r.gyro = append(r.gyro, v) }
func (r *recordingSink) SetMag(v Vec3)   { r.mag = append(r.mag, v) }

func (r *recordingSink) SetGyroIntegrated(e Euler) { r.gyroInt = append(r.gyroInt, e) }
func (r *recordingSink) SetFusion(e Euler)         { r.fusion = append(r.fusion, e) }
func (r *recordingSink) SetFusionMag(e Euler)      { r.fusMag = append(r.fusMag, e) }
func (r *recordingSink) SetTemperature(t float64)  { r.temperature = append(r.temperature, t) }
func (r *recordingSink) SetDeviceTime(t float64)   { r.deviceTime = append(r.deviceTime, t) }

func TestPacketApplyPushesEveryGroup(t *testing.T) {
	p := Packet{Accel: Vec3{X: 1}, Temperature: 30, DeviceTime: 5}
	sink := &recordingSink{}
	p.Apply(sink)

	assert.Equal(t, []Vec3{{X: 1}}, sink.accel)
	assert.Len(t, sink.gyro, 1)
	assert.Len(t, sink.mag, 1)
	assert.Len(t, sink.gyroInt, 1)
	assert.Len(t, sink.fusion, 1)
	assert.Len(t, sink.fusMag, 1)
	assert.Equal(t, []float64{30}, sink.temperature)
	assert.Equal(t, []float64{5}, sink.deviceTime)
}
