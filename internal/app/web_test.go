package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/devicesim"
	"github.com/relabs-tech/motion_console/internal/transport"
)

// newWebHarness wires the web app to a simulated device speaking the
// given subprotocol.
func newWebHarness(t *testing.T, protocol string) *http.ServeMux {
	t.Helper()
	sim := devicesim.NewServer(devicesim.NewGenerator(), 5*time.Millisecond, protocol)
	srv := httptest.NewServer(sim)
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Transport:   "ws",
		DeviceWSURL: "ws" + strings.TrimPrefix(srv.URL, "http"),
		SmoothingMS: 100,
	}
	a := newWebApp(cfg)
	a.s.Start()
	t.Cleanup(a.s.Stop)
	return a.routes()
}

func getStatus(t *testing.T, mux *http.ServeMux) statusPayload {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var p statusPayload
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &p))
	return p
}

// connect POSTs /api/connect and waits for the session to report the
// link up.
func connect(t *testing.T, mux *http.ServeMux) statusPayload {
	t.Helper()
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/connect", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p := getStatus(t, mux); p.Connected {
			return p
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("session never reported connected")
	return statusPayload{}
}

func TestWebStatusReportsControlChannel(t *testing.T) {
	mux := newWebHarness(t, transport.ProtoTelemetryControl)
	p := connect(t, mux)
	assert.True(t, p.ControlAvailable)
}

// A device on the telemetry-only subprotocol must never be reported
// as command-capable, however the connect handler and the session
// loop interleave.
func TestWebStatusTelemetryOnlyFirmware(t *testing.T) {
	mux := newWebHarness(t, transport.ProtoTelemetryOnly)
	p := connect(t, mux)
	assert.False(t, p.ControlAvailable)
}

func TestWebModeEndpoint(t *testing.T) {
	mux := newWebHarness(t, transport.ProtoTelemetryControl)
	connect(t, mux)

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mode",
		strings.NewReader(`{"mode":"fusion"}`)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "fusion", getStatus(t, mux).Mode)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/mode",
		strings.NewReader(`{"mode":"sideways"}`)))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebConnectFailureClearsTransport(t *testing.T) {
	cfg := &config.Config{
		Transport:   "ws",
		DeviceWSURL: "ws://127.0.0.1:1/stream",
		SmoothingMS: 100,
	}
	a := newWebApp(cfg)
	a.s.Start()
	t.Cleanup(a.s.Stop)
	mux := a.routes()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/connect", nil))
	assert.Equal(t, http.StatusBadGateway, rr.Code)

	a.trMu.Lock()
	defer a.trMu.Unlock()
	assert.Nil(t, a.tr)
}
