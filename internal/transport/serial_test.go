package transport

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motion_console/internal/telemetry"
)

// captureHandler records every delivery and signals link closure.
type captureHandler struct {
	mu      sync.Mutex
	accel   []telemetry.Vec3
	gyro    []telemetry.Vec3
	mag     []telemetry.Vec3
	gyroInt []telemetry.Euler
	fusion  []telemetry.Euler
	fusMag  []telemetry.Euler
	temps   []float64
	clocks  []float64
	packets []telemetry.Packet
	faults  []string

	closed chan error
}

func newCaptureHandler() *captureHandler {
	return &captureHandler{closed: make(chan error, 1)}
}

func (c *captureHandler) SetAccel(v telemetry.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accel = append(c.accel, v)
}

func (c *captureHandler) SetGyro(v telemetry.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gyro = append(c.gyro, v)
}

func (c *captureHandler) SetMag(v telemetry.Vec3) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mag = append(c.mag, v)
}

func (c *captureHandler) SetGyroIntegrated(e telemetry.Euler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gyroInt = append(c.gyroInt, e)
}

func (c *captureHandler) SetFusion(e telemetry.Euler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fusion = append(c.fusion, e)
}

func (c *captureHandler) SetFusionMag(e telemetry.Euler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fusMag = append(c.fusMag, e)
}

func (c *captureHandler) SetTemperature(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.temps = append(c.temps, t)
}

func (c *captureHandler) SetDeviceTime(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clocks = append(c.clocks, t)
}

func (c *captureHandler) Packet(p telemetry.Packet) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.packets = append(c.packets, p)
}

func (c *captureHandler) DeviceFault(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.faults = append(c.faults, msg)
}

func (c *captureHandler) Closed(err error) { c.closed <- err }

func (c *captureHandler) waitClosed(t *testing.T) error {
	t.Helper()
	select {
	case err := <-c.closed:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("transport never reported closure")
		return nil
	}
}

// fakePort feeds the reader from a pipe and captures command writes.
type fakePort struct {
	r *io.PipeReader

	mu     sync.Mutex
	writes bytes.Buffer
}

func (f *fakePort) Read(p []byte) (int, error) { return f.r.Read(p) }

func (f *fakePort) Write(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.Write(p)
}

func (f *fakePort) Close() error { return f.r.Close() }

func (f *fakePort) written() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writes.String()
}

func newTestSerial(t *testing.T) (*Serial, *fakePort, *io.PipeWriter) {
	t.Helper()
	s, err := NewSerial("/dev/ttyTEST0", 115200)
	require.NoError(t, err)

	pr, pw := io.Pipe()
	port := &fakePort{r: pr}
	s.openPort = func() (io.ReadWriteCloser, error) { return port, nil }
	return s, port, pw
}

func TestSerialDeliversFieldGroups(t *testing.T) {
	s, _, pw := newTestSerial(t)
	h := newCaptureHandler()
	require.NoError(t, s.Connect(context.Background(), h))

	lines := []string{
		encodeTriple(sentenceAccel, 0.1, -0.2, 0.98),
		encodeTriple(sentenceGyro, 1, 2, 3),
		encodeTriple(sentenceMag, -40, 50, -60),
		encodeTriple(sentenceGyroIntegrated, 10, 20, 30),
		encodeTriple(sentenceFusion, 11, 21, 31),
		encodeTriple(sentenceFusionMag, 12, 22, 32),
		encodeScalar(sentenceTemperature, 25.5),
		encodeScalar(sentenceClock, 42.25),
		encodeSentence(sentenceFault, "low_battery"),
	}
	for _, l := range lines {
		_, err := io.WriteString(pw, l+"\r\n")
		require.NoError(t, err)
	}
	pw.Close()
	h.waitClosed(t)

	require.Len(t, h.accel, 1)
	assert.InDelta(t, 0.98, h.accel[0].Z, 1e-9)
	require.Len(t, h.gyro, 1)
	require.Len(t, h.mag, 1)
	require.Len(t, h.gyroInt, 1)
	assert.Equal(t, telemetry.Euler{Roll: 10, Pitch: 20, Yaw: 30}, h.gyroInt[0])
	require.Len(t, h.fusion, 1)
	require.Len(t, h.fusMag, 1)
	assert.Equal(t, []float64{25.5}, h.temps)
	assert.Equal(t, []float64{42.25}, h.clocks)
	assert.Equal(t, []string{"low_battery"}, h.faults)
}

func TestSerialDropsGarbledLines(t *testing.T) {
	s, _, pw := newTestSerial(t)
	h := newCaptureHandler()
	require.NoError(t, s.Connect(context.Background(), h))

	io.WriteString(pw, "$IMACC,1,2,3*00\r\n")       // bad checksum
	io.WriteString(pw, "not a sentence at all\r\n") // no framing
	io.WriteString(pw, "$GPRMC,,V,,,,,,,,,,N*31\r\n")
	io.WriteString(pw, encodeTriple(sentenceAccel, 1, 2, 3)+"\r\n")
	pw.Close()
	h.waitClosed(t)

	// Only the one well-formed device sentence got through.
	require.Len(t, h.accel, 1)
	assert.Equal(t, telemetry.Vec3{X: 1, Y: 2, Z: 3}, h.accel[0])
	assert.Empty(t, h.gyro)
	assert.Empty(t, h.faults)
}

func TestSerialSendCommand(t *testing.T) {
	s, port, pw := newTestSerial(t)
	h := newCaptureHandler()
	require.NoError(t, s.Connect(context.Background(), h))

	require.NoError(t, s.SendCommand(CmdResetGyro))
	assert.Equal(t, "RESET_GYRO\n", port.written())

	pw.Close()
	h.waitClosed(t)
}

func TestSerialSendCommandWhileDisconnected(t *testing.T) {
	s, err := NewSerial("/dev/ttyTEST0", 115200)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SendCommand(CmdResetGyro), ErrNotConnected)
}

func TestSerialCloseIsClean(t *testing.T) {
	s, _, _ := newTestSerial(t)
	h := newCaptureHandler()
	require.NoError(t, s.Connect(context.Background(), h))

	require.NoError(t, s.Close())
	assert.NoError(t, h.waitClosed(t))
}

func TestSerialUnsupportedWithoutPortName(t *testing.T) {
	_, err := NewSerial("", 115200)
	assert.ErrorIs(t, err, ErrUnsupported)
}
