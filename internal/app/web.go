package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/motion_console/internal/config"
	"github.com/relabs-tech/motion_console/internal/orientation"
	"github.com/relabs-tech/motion_console/internal/session"
	"github.com/relabs-tech/motion_console/internal/transport"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// webState is what /api/status reports; listeners keep it current.
type webState struct {
	mu sync.RWMutex

	connected        bool
	transportName    string
	controlAvailable bool
	mode             orientation.Mode
	smoothingMS      float64
	smoothingEnabled bool
	rate             int
	lastFault        string
}

type statusPayload struct {
	Connected        bool    `json:"connected"`
	Transport        string  `json:"transport,omitempty"`
	ControlAvailable bool    `json:"control_available"`
	Mode             string  `json:"mode"`
	SmoothingMS      float64 `json:"smoothing_ms"`
	SmoothingEnabled bool    `json:"smoothing_enabled"`
	RatePerSecond    int     `json:"rate_per_second"`
	LastFault        string  `json:"last_fault,omitempty"`
}

func (ws *webState) payload() statusPayload {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return statusPayload{
		Connected:        ws.connected,
		Transport:        ws.transportName,
		ControlAvailable: ws.controlAvailable,
		Mode:             ws.mode.String(),
		SmoothingMS:      ws.smoothingMS,
		SmoothingEnabled: ws.smoothingEnabled,
		RatePerSecond:    ws.rate,
		LastFault:        ws.lastFault,
	}
}

// hub fans session events out to every connected browser socket.
type hub struct {
	mu      sync.Mutex
	clients map[*websocket.Conn]bool
}

func newHub() *hub {
	return &hub{clients: make(map[*websocket.Conn]bool)}
}

func (h *hub) add(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *hub) remove(c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, c)
}

func (h *hub) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("web: broadcast marshal error: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.SetWriteDeadline(time.Now().Add(time.Second))
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			c.Close()
			delete(h.clients, c)
		}
	}
}

type webApp struct {
	cfg   *config.Config
	model *orientation.Model
	state *webState
	hub   *hub
	s     *session.Session

	trMu sync.Mutex
	tr   transport.Transport
}

func newWebApp(cfg *config.Config) *webApp {
	a := &webApp{
		cfg:   cfg,
		model: orientation.NewModel(cfg.SmoothingMS),
		state: &webState{smoothingMS: cfg.SmoothingMS, smoothingEnabled: true},
		hub:   newHub(),
	}
	a.s = session.New(a.model, session.Listeners{
		Connected:        a.onConnected,
		Disconnected:     a.onDisconnected,
		Sample:           a.onSample,
		DeviceFault:      a.onDeviceFault,
		TransportError:   a.onTransportError,
		SmoothingControl: a.onSmoothingControl,
	})
	return a
}

func (a *webApp) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", a.handleStatus)
	mux.HandleFunc("/api/orientation", a.handleOrientation)
	mux.HandleFunc("/api/connect", a.handleConnect)
	mux.HandleFunc("/api/disconnect", a.handleDisconnect)
	mux.HandleFunc("/api/mode", a.handleMode)
	mux.HandleFunc("/api/smoothing", a.handleSmoothing)
	mux.HandleFunc("/api/reset", a.handleReset)
	mux.HandleFunc("/ws", a.handleWS)
	mux.Handle("/", http.FileServer(http.Dir("web")))
	return mux
}

// RunWeb serves the 3D viewer: static files, a JSON API for status
// and control, and a push socket feeding every emission to the page.
func RunWeb() error {
	cfg := config.Get()

	a := newWebApp(cfg)
	a.s.Start()
	defer a.s.Stop()

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web: listening on %s", addr)
	return http.ListenAndServe(addr, a.routes())
}

func (a *webApp) onConnected(name string) {
	control := true
	a.trMu.Lock()
	if ws, ok := a.tr.(*transport.WS); ok {
		control = ws.ControlAvailable()
	}
	a.trMu.Unlock()

	a.state.mu.Lock()
	a.state.connected = true
	a.state.transportName = name
	a.state.controlAvailable = control
	a.state.lastFault = ""
	a.state.mu.Unlock()

	a.hub.broadcast(map[string]any{"type": "connected", "transport": name})
}

func (a *webApp) onDisconnected(err error) {
	a.state.mu.Lock()
	a.state.connected = false
	a.state.transportName = ""
	a.state.controlAvailable = false
	a.state.rate = 0
	a.state.mu.Unlock()

	msg := map[string]any{"type": "disconnected"}
	if err != nil {
		msg["error"] = err.Error()
	}
	a.hub.broadcast(msg)
}

func (a *webApp) onSample(e session.Emission) {
	a.state.mu.Lock()
	a.state.rate = e.Rate
	a.state.mu.Unlock()

	a.hub.broadcast(map[string]any{
		"type":   "sample",
		"sample": e.Sample,
		"dt":     e.DT,
		"rate":   e.Rate,
		"pose":   a.model.Pose(),
	})
}

func (a *webApp) onDeviceFault(msg string) {
	a.state.mu.Lock()
	a.state.lastFault = msg
	a.state.mu.Unlock()
	a.hub.broadcast(map[string]any{"type": "device_fault", "message": msg})
}

func (a *webApp) onTransportError(err error) {
	a.hub.broadcast(map[string]any{"type": "transport_error", "error": err.Error()})
}

func (a *webApp) onSmoothingControl(enabled bool) {
	a.state.mu.Lock()
	a.state.smoothingEnabled = enabled
	a.state.mu.Unlock()
	a.hub.broadcast(map[string]any{"type": "smoothing_control", "enabled": enabled})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

func (a *webApp) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.state.payload())
}

func (a *webApp) handleOrientation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.model.Pose())
}

func (a *webApp) handleConnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}

	tr, err := newTransport(a.cfg)
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	// Publish the transport before Connect: the Connected listener
	// reads it to report control availability.
	a.trMu.Lock()
	a.tr = tr
	a.trMu.Unlock()

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()
	if err := a.s.Connect(ctx, tr); err != nil {
		a.trMu.Lock()
		if a.tr == tr {
			a.tr = nil
		}
		a.trMu.Unlock()
		log.Printf("web: %v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, map[string]string{"status": "connecting"})
}

func (a *webApp) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	a.s.Disconnect()
	writeJSON(w, map[string]string{"status": "disconnecting"})
}

func (a *webApp) handleMode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}
	mode, err := orientation.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	a.state.mu.Lock()
	a.state.mode = mode
	a.state.mu.Unlock()
	a.s.SetMode(mode)
	writeJSON(w, map[string]string{"mode": mode.String()})
}

func (a *webApp) handleSmoothing(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		MS float64 `json:"ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MS < 0 {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	a.state.mu.Lock()
	a.state.smoothingMS = req.MS
	a.state.mu.Unlock()
	a.s.SetSmoothingTimeConstant(req.MS)
	writeJSON(w, map[string]float64{"ms": req.MS})
}

func (a *webApp) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST required", http.StatusMethodNotAllowed)
		return
	}
	a.s.ResetOrientation()
	writeJSON(w, map[string]string{"status": "reset"})
}

func (a *webApp) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}
	a.hub.add(conn)
	defer func() {
		a.hub.remove(conn)
		conn.Close()
	}()

	// Drain (and ignore) client messages so pings and closes are
	// processed.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
